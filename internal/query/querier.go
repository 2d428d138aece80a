package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"flowsentry/internal/config"
	"flowsentry/internal/report"
)

// ThreatSummary is one aggregated (class, threat level) cell over the
// queried time range.
type ThreatSummary struct {
	Class       string `json:"class"`
	ThreatLevel string `json:"threat_level"`
	FlowCount   uint64 `json:"flow_count"`
}

// Querier defines the interface for querying persisted threat reports.
type Querier interface {
	SummarizeThreats(ctx context.Context, since, until time.Time, class string) ([]ThreatSummary, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := report.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

// SummarizeThreats sums the persisted report rows per (class, threat
// level) within the time range, optionally restricted to one class.
func (q *clickhouseQuerier) SummarizeThreats(ctx context.Context, since, until time.Time, class string) ([]ThreatSummary, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			Class,
			ThreatLevel,
			SUM(FlowCount) AS TotalFlows
		FROM threat_reports
	`)

	var whereClauses []string
	args := []interface{}{}

	if !since.IsZero() {
		whereClauses = append(whereClauses, "WindowStart >= ?")
		args = append(args, since)
	}
	if !until.IsZero() {
		whereClauses = append(whereClauses, "WindowEnd <= ?")
		args = append(args, until)
	}
	if class != "" {
		whereClauses = append(whereClauses, "Class = ?")
		args = append(args, class)
	}

	if len(whereClauses) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	}
	queryBuilder.WriteString(" GROUP BY Class, ThreatLevel ORDER BY Class, ThreatLevel")

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var summaries []ThreatSummary
	for rows.Next() {
		var s ThreatSummary
		if err := rows.Scan(&s.Class, &s.ThreatLevel, &s.FlowCount); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}
