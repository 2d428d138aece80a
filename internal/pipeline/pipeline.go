// Package pipeline wires the classification stages into one concurrent,
// bounded, cancellable dispatch engine: source -> align -> classify ->
// aggregate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"flowsentry/internal/align"
	"flowsentry/internal/bundle"
	"flowsentry/internal/classify"
	"flowsentry/internal/config"
	"flowsentry/internal/model"
	"flowsentry/internal/report"
)

// State is the orchestrator lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const defaultGracePeriod = 5 * time.Second

// Pipeline runs one stage worker per pipeline step, joined by bounded
// channels. A full downstream channel blocks its producer, so memory stays
// bounded by the configured queue capacity; a cancelled context is checked
// before every blocking channel operation, so a stop request unblocks every
// stage within one queue-operation latency (one poll interval for the
// source).
type Pipeline struct {
	source     model.Source
	aligner    *align.Aligner
	classifier *classify.Classifier
	evaluator  *classify.Evaluator
	aggregator *report.Aggregator
	writers    []model.Writer

	queueCapacity  int
	windowInterval time.Duration // zero means a single whole-run window
	gracePeriod    time.Duration

	state atomic.Int32
}

// New assembles a pipeline from the loaded bundle, a flow source and the
// report writers. The engine configuration must already have passed
// validation.
func New(cfg config.EngineConfig, b *bundle.Bundle, src model.Source, writers []model.Writer) (*Pipeline, error) {
	var windowInterval time.Duration
	if cfg.Mode == "live" {
		var err error
		windowInterval, err = time.ParseDuration(cfg.WindowInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid window_interval: %w", err)
		}
		if windowInterval <= 0 {
			return nil, fmt.Errorf("window_interval must be positive")
		}
	}

	gracePeriod := defaultGracePeriod
	if cfg.GracePeriod != "" {
		var err error
		gracePeriod, err = time.ParseDuration(cfg.GracePeriod)
		if err != nil {
			return nil, fmt.Errorf("invalid grace_period: %w", err)
		}
	}

	if !b.HasLabel(cfg.BenignLabel) {
		return nil, fmt.Errorf("benign_label %q is not a class of the loaded bundle", cfg.BenignLabel)
	}

	p := &Pipeline{
		source:         src,
		aligner:        align.New(b),
		classifier:     classify.New(b),
		evaluator:      classify.NewEvaluator(cfg.BenignLabel, cfg.Thresholds.HighConfidence, cfg.Thresholds.Watch),
		aggregator:     report.NewAggregator(),
		writers:        writers,
		queueCapacity:  cfg.QueueCapacity,
		windowInterval: windowInterval,
		gracePeriod:    gracePeriod,
	}
	p.state.Store(int32(StateIdle))
	return p, nil
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Aggregator exposes the report aggregator for snapshot consumers (API,
// alerter). The aggregator serializes its own access.
func (p *Pipeline) Aggregator() *report.Aggregator {
	return p.aggregator
}

// Run executes the pipeline until the source is exhausted, ctx is
// cancelled, or a stage reports a fatal error. On cancellation the stages
// finish the records already dequeued and drain in order, bounded by the
// grace period. Run returns the first fatal error, or nil for a clean
// completion or cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("pipeline is %s, not idle", p.State())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make(chan *model.FlowRecord, p.queueCapacity)
	aligned := make(chan *model.AlignedRecord, p.queueCapacity)
	verdicts := make(chan model.ThreatVerdict, p.queueCapacity)

	// Buffered so a stage can report its fatal error and exit without a
	// receiver being ready.
	fatal := make(chan error, 3)

	var wg sync.WaitGroup
	wg.Add(4)
	go p.sourceStage(ctx, &wg, records, fatal)
	go p.alignStage(&wg, records, aligned)
	go p.classifyStage(&wg, aligned, verdicts)
	go p.aggregateStage(&wg, verdicts)

	// Mark the transition to draining when an external cancellation
	// arrives; the stages observe the same ctx and wind down on their own.
	go func() {
		<-ctx.Done()
		p.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var runErr error
	select {
	case runErr = <-fatal:
		// Non-recoverable: go straight to Stopped, give in-flight work a
		// bounded grace period instead of a full drain.
		cancel()
		select {
		case <-done:
		case <-time.After(p.gracePeriod):
			log.Printf("Pipeline stages did not drain within %s after fatal error.", p.gracePeriod)
		}
	case <-done:
		// Source exhausted or cancellation drained cleanly.
	}

	p.state.Store(int32(StateStopped))
	return runErr
}

// sourceStage pulls records from the flow source and feeds the first
// queue. End-of-stream and cancellation close the queue so downstream
// stages drain and exit; an exhausted-retry source error is fatal.
func (p *Pipeline) sourceStage(ctx context.Context, wg *sync.WaitGroup, out chan<- *model.FlowRecord, fatal chan<- error) {
	defer wg.Done()
	defer close(out)

	for {
		rec, err := p.source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, model.ErrEndOfStream):
				log.Println("Flow source exhausted, draining pipeline.")
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				log.Println("Flow source cancelled, draining pipeline.")
			default:
				fatal <- err
			}
			return
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return
		}
	}
}

// alignStage reconciles each record against the trained schema. Alignment
// never fails; malformed fields degrade to defaults, which are logged for
// audit when present.
func (p *Pipeline) alignStage(wg *sync.WaitGroup, in <-chan *model.FlowRecord, out chan<- *model.AlignedRecord) {
	defer wg.Done()
	defer close(out)

	for rec := range in {
		ar := p.aligner.Align(rec)
		if len(ar.Defaulted) > 0 {
			log.Printf("Flow %s: %d schema feature(s) defaulted to 0.0: %v",
				ar.FlowID, len(ar.Defaulted), ar.Defaulted)
		}
		out <- ar
	}
}

// classifyStage scores aligned records and derives threat verdicts. A
// schema mismatch drops the offending record and keeps the pipeline
// running.
func (p *Pipeline) classifyStage(wg *sync.WaitGroup, in <-chan *model.AlignedRecord, out chan<- model.ThreatVerdict) {
	defer wg.Done()
	defer close(out)

	for ar := range in {
		result, err := p.classifier.Classify(ar)
		if err != nil {
			var mismatch *model.SchemaMismatchError
			if errors.As(err, &mismatch) {
				log.Printf("Dropping flow %s: %v", ar.FlowID, err)
				continue
			}
			log.Printf("Dropping flow %s: classification failed: %v", ar.FlowID, err)
			continue
		}

		out <- p.evaluator.Evaluate(result)
	}
}

// aggregateStage folds verdicts into the current window and writes
// finished windows out. In live mode windows roll over on a fixed
// interval; in batch mode one window spans the run and is written when
// the verdict stream closes.
func (p *Pipeline) aggregateStage(wg *sync.WaitGroup, in <-chan model.ThreatVerdict) {
	defer wg.Done()

	var tick <-chan time.Time
	if p.windowInterval > 0 {
		ticker := time.NewTicker(p.windowInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case v, ok := <-in:
			if !ok {
				p.flushWindow()
				return
			}
			p.aggregator.Record(v)
			if v.Level == model.ThreatCritical {
				log.Printf("CRITICAL flow %s: %s", v.FlowID, v.Reason)
			}
		case <-tick:
			p.flushWindow()
		}
	}
}

// flushWindow rolls the aggregation window and hands the finished report
// to every writer. Writer failures are logged, not fatal: losing one sink
// must not stop classification.
func (p *Pipeline) flushWindow() {
	finished := p.aggregator.Rollover()
	for _, w := range p.writers {
		if err := w.Write(finished); err != nil {
			log.Printf("Error writing report window: %v", err)
		}
	}
}
