package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"flowsentry/internal/model"
)

// FileWriter persists each finished window as an indented JSON document in
// a timestamped directory under a storage root. It implements the
// model.Writer interface.
type FileWriter struct {
	rootPath string
}

// NewFileWriter creates a new writer rooted at rootPath.
func NewFileWriter(rootPath string) model.Writer {
	return &FileWriter{rootPath: rootPath}
}

// Write serializes one report window to disk. Empty windows are skipped so
// the storage tree only holds windows with classified flows.
func (w *FileWriter) Write(report *model.Report) error {
	if report.TotalFlows == 0 {
		return nil
	}

	dir := filepath.Join(w.rootPath, report.WindowStart.Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, "report.json")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file '%s': %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report to json: %w", err)
	}

	return nil
}

// Close is a no-op for the file writer.
func (w *FileWriter) Close() error {
	return nil
}
