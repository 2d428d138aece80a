package report

import (
	"log"

	"flowsentry/internal/config"
	"flowsentry/internal/model"
)

// NewWriters creates every enabled report writer from the configuration.
// A writer that fails to initialize (for example an unreachable database)
// is skipped with a warning rather than failing the pipeline; at least the
// text writer is always available as a fallback when nothing else is
// configured.
func NewWriters(cfg config.ReportConfig) []model.Writer {
	writers := make([]model.Writer, 0, len(cfg.Writers))

	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}

		switch def.Type {
		case "text":
			writers = append(writers, NewTextWriter())
		case "file":
			if def.File.RootPath == "" {
				log.Printf("Warning: file writer has no root_path, skipping.")
				continue
			}
			writers = append(writers, NewFileWriter(def.File.RootPath))
		case "clickhouse":
			w, err := NewClickHouseWriter(def.ClickHouse)
			if err != nil {
				log.Printf("Warning: failed to create clickhouse writer: %v, skipping.", err)
				continue
			}
			writers = append(writers, w)
		default:
			log.Printf("Warning: unknown report writer type '%s' in config, skipping.", def.Type)
		}
	}

	if len(writers) == 0 {
		log.Println("No report writers configured, falling back to text output.")
		writers = append(writers, NewTextWriter())
	}

	return writers
}
