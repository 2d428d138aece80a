package report

import (
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"flowsentry/internal/config"
	"flowsentry/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS threat_reports (
    WindowStart DateTime,
    WindowEnd   DateTime,
    Class       String,
    ThreatLevel String,
    FlowCount   UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(WindowStart)
ORDER BY (Class, WindowStart);
`

// ClickHouseWriter persists report windows as one row per (class, threat
// level) cell. It implements the model.Writer interface.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the report table
// exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (model.Writer, error) {
	conn, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured threat_reports exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

// Connect opens a ClickHouse connection and verifies it with a ping.
func Connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Write inserts one report window into the threat_reports table.
func (w *ClickHouseWriter) Write(report *model.Report) error {
	if report.TotalFlows == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO threat_reports")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	rows := 0
	for class, levels := range report.Counts {
		for level, count := range levels {
			if err := batch.Append(report.WindowStart, report.WindowEnd, class, string(level), count); err != nil {
				return fmt.Errorf("failed to append report row: %w", err)
			}
			rows++
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d report rows to ClickHouse for window starting %s",
		rows, report.WindowStart.Format("2006-01-02 15:04:05"))
	return nil
}

// Close closes the ClickHouse connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
