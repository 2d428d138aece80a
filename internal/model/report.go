package model

import (
	"time"
)

// Report is the aggregation of classified flows over one window. Counts is
// keyed by class name, then by threat level. A report handed out by the
// aggregator is a private copy and safe to retain.
type Report struct {
	WindowStart time.Time                         `json:"window_start"`
	WindowEnd   time.Time                         `json:"window_end"`
	TotalFlows  uint64                            `json:"total_flows"`
	Counts      map[string]map[ThreatLevel]uint64 `json:"counts"`
}

// LevelTotals sums the per-class counts into per-level totals.
func (r *Report) LevelTotals() map[ThreatLevel]uint64 {
	totals := make(map[ThreatLevel]uint64)
	for _, levels := range r.Counts {
		for level, n := range levels {
			totals[level] += n
		}
	}
	return totals
}
