// Package report accumulates threat verdicts into windowed summaries and
// persists finished windows through pluggable writers.
package report

import (
	"sync"
	"time"

	"flowsentry/internal/model"
)

// Aggregator maintains running counts keyed by (class, threat level) for
// the current window. It is the only mutable state shared between pipeline
// workers; a mutex serializes access so Record never fails and never blocks
// beyond the counter update.
type Aggregator struct {
	mu          sync.Mutex
	windowStart time.Time
	total       uint64
	counts      map[string]map[model.ThreatLevel]uint64
}

// NewAggregator creates an aggregator with an empty window starting now.
func NewAggregator() *Aggregator {
	return &Aggregator{
		windowStart: time.Now(),
		counts:      make(map[string]map[model.ThreatLevel]uint64),
	}
}

// Record increments the counters for one verdict.
func (a *Aggregator) Record(v model.ThreatVerdict) {
	a.mu.Lock()
	defer a.mu.Unlock()

	levels, ok := a.counts[v.TopClass]
	if !ok {
		levels = make(map[model.ThreatLevel]uint64)
		a.counts[v.TopClass] = levels
	}
	levels[v.Level]++
	a.total++
}

// Snapshot returns an immutable copy of the current window without
// resetting it. Two snapshots without an intervening Record or Rollover
// are equal.
func (a *Aggregator) Snapshot() *model.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copyLocked()
}

// Rollover atomically swaps in a fresh empty window and returns the
// completed one.
func (a *Aggregator) Rollover() *model.Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	finished := a.copyLocked()
	a.windowStart = time.Now()
	a.total = 0
	a.counts = make(map[string]map[model.ThreatLevel]uint64)
	return finished
}

func (a *Aggregator) copyLocked() *model.Report {
	counts := make(map[string]map[model.ThreatLevel]uint64, len(a.counts))
	for class, levels := range a.counts {
		cp := make(map[model.ThreatLevel]uint64, len(levels))
		for level, n := range levels {
			cp[level] = n
		}
		counts[class] = cp
	}
	return &model.Report{
		WindowStart: a.windowStart,
		WindowEnd:   time.Now(),
		TotalFlows:  a.total,
		Counts:      counts,
	}
}
