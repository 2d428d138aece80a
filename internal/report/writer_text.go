package report

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"

	"flowsentry/internal/model"
)

// TextWriter renders finished report windows as a table on an io.Writer,
// stdout by default. It implements the model.Writer interface.
type TextWriter struct {
	out io.Writer
}

// NewTextWriter creates a writer that renders to stdout.
func NewTextWriter() model.Writer {
	return &TextWriter{out: os.Stdout}
}

// NewTextWriterTo creates a writer that renders to the given destination.
func NewTextWriterTo(out io.Writer) model.Writer {
	return &TextWriter{out: out}
}

// Write renders one report window.
func (w *TextWriter) Write(report *model.Report) error {
	if report.TotalFlows == 0 {
		log.Printf("Report window %s - %s: no flows classified.",
			report.WindowStart.Format("15:04:05"), report.WindowEnd.Format("15:04:05"))
		return nil
	}

	fmt.Fprintf(w.out, "Report window %s - %s (%d flows)\n",
		report.WindowStart.Format("2006-01-02 15:04:05"),
		report.WindowEnd.Format("2006-01-02 15:04:05"),
		report.TotalFlows)

	classes := make([]string, 0, len(report.Counts))
	for class := range report.Counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	t := tablewriter.NewWriter(w.out)
	t.SetHeader([]string{"Class", "Clear", "Suspicious", "Critical", "Total"})
	t.SetAutoWrapText(false)
	for _, class := range classes {
		levels := report.Counts[class]
		total := levels[model.ThreatClear] + levels[model.ThreatSuspicious] + levels[model.ThreatCritical]
		t.Append([]string{
			class,
			fmt.Sprintf("%d", levels[model.ThreatClear]),
			fmt.Sprintf("%d", levels[model.ThreatSuspicious]),
			fmt.Sprintf("%d", levels[model.ThreatCritical]),
			fmt.Sprintf("%d", total),
		})
	}
	t.Render()

	return nil
}

// Close is a no-op for the text writer.
func (w *TextWriter) Close() error {
	return nil
}
