package report

import (
	"reflect"
	"sync"
	"testing"

	"flowsentry/internal/model"
)

func verdict(class string, level model.ThreatLevel) model.ThreatVerdict {
	return model.ThreatVerdict{FlowID: "f", TopClass: class, Level: level}
}

func TestAggregatorRecordAndSnapshot(t *testing.T) {
	agg := NewAggregator()

	agg.Record(verdict("BENIGN", model.ThreatClear))
	agg.Record(verdict("BENIGN", model.ThreatClear))
	agg.Record(verdict("DoS Hulk", model.ThreatCritical))

	snap := agg.Snapshot()
	if snap.TotalFlows != 3 {
		t.Errorf("Expected 3 flows, got %d", snap.TotalFlows)
	}
	if snap.Counts["BENIGN"][model.ThreatClear] != 2 {
		t.Errorf("Expected 2 clear benign flows, got %d", snap.Counts["BENIGN"][model.ThreatClear])
	}
	if snap.Counts["DoS Hulk"][model.ThreatCritical] != 1 {
		t.Errorf("Expected 1 critical DoS flow, got %d", snap.Counts["DoS Hulk"][model.ThreatCritical])
	}
}

func TestSnapshotIsIdempotent(t *testing.T) {
	agg := NewAggregator()
	agg.Record(verdict("BENIGN", model.ThreatClear))

	first := agg.Snapshot()
	second := agg.Snapshot()

	if first.TotalFlows != second.TotalFlows || !reflect.DeepEqual(first.Counts, second.Counts) {
		t.Errorf("Consecutive snapshots differ: %+v vs %+v", first, second)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	agg := NewAggregator()
	agg.Record(verdict("BENIGN", model.ThreatClear))

	snap := agg.Snapshot()
	snap.Counts["BENIGN"][model.ThreatClear] = 99

	if agg.Snapshot().Counts["BENIGN"][model.ThreatClear] != 1 {
		t.Error("Mutating a snapshot leaked into the aggregator")
	}
}

func TestRolloverSwapsWindow(t *testing.T) {
	agg := NewAggregator()
	agg.Record(verdict("PortScan", model.ThreatCritical))

	finished := agg.Rollover()
	if finished.TotalFlows != 1 {
		t.Errorf("Finished window has %d flows, want 1", finished.TotalFlows)
	}

	fresh := agg.Snapshot()
	if fresh.TotalFlows != 0 || len(fresh.Counts) != 0 {
		t.Errorf("Window not reset after rollover: %+v", fresh)
	}
	if !fresh.WindowStart.After(finished.WindowStart) && !fresh.WindowStart.Equal(finished.WindowStart) {
		t.Error("Fresh window starts before the finished one")
	}
}

func TestAggregatorConcurrentRecord(t *testing.T) {
	agg := NewAggregator()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				agg.Record(verdict("DoS Hulk", model.ThreatCritical))
			}
		}()
	}
	wg.Wait()

	if got := agg.Snapshot().TotalFlows; got != 800 {
		t.Errorf("Expected 800 flows after concurrent recording, got %d", got)
	}
}

func TestLevelTotals(t *testing.T) {
	agg := NewAggregator()
	agg.Record(verdict("BENIGN", model.ThreatClear))
	agg.Record(verdict("DoS Hulk", model.ThreatCritical))
	agg.Record(verdict("PortScan", model.ThreatCritical))

	totals := agg.Snapshot().LevelTotals()
	if totals[model.ThreatCritical] != 2 {
		t.Errorf("Expected 2 critical flows, got %d", totals[model.ThreatCritical])
	}
	if totals[model.ThreatClear] != 1 {
		t.Errorf("Expected 1 clear flow, got %d", totals[model.ThreatClear])
	}
}
