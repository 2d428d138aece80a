package alerter

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"flowsentry/internal/config"
	"flowsentry/internal/model"
	"flowsentry/internal/report"
)

// Alerter periodically evaluates the current report window against the
// configured rules and sends a consolidated notification when any rule
// fires. It reads snapshots only; window rollover stays with the pipeline.
type Alerter struct {
	aggregator    *report.Aggregator
	rules         []config.AlerterRule
	notifier      model.Notifier
	checkInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewAlerter creates a new Alerter instance.
func NewAlerter(cfg *config.AlerterConfig, agg *report.Aggregator, notifier model.Notifier) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval for alerter: %w", err)
	}

	return &Alerter{
		aggregator:    agg,
		rules:         cfg.Rules,
		notifier:      notifier,
		checkInterval: interval,
		stopChan:      make(chan struct{}),
	}, nil
}

// Start begins the periodic evaluation of alert rules.
func (a *Alerter) Start() {
	log.Println("Alerter started")

	a.wg.Add(1)
	defer a.wg.Done()

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.evaluate()
		case <-a.stopChan:
			return
		}
	}
}

// Stop gracefully stops the alerter's evaluation loop and runs one final
// evaluation over the last window.
func (a *Alerter) Stop() {
	log.Println("Stopping Alerter...")
	close(a.stopChan)
	a.wg.Wait()
	a.evaluate()
}

// evaluate checks every rule against the current window snapshot.
func (a *Alerter) evaluate() {
	snapshot := a.aggregator.Snapshot()
	totals := snapshot.LevelTotals()

	var messages []string
	for _, rule := range a.rules {
		level := model.ThreatLevel(rule.ThreatLevel)
		count := totals[level]
		if count >= rule.MinCount && rule.MinCount > 0 {
			messages = append(messages, fmt.Sprintf(
				"<p>Rule triggered: %d flow(s) at threat level <b>%s</b> in the window since %s (threshold %d).</p>%s",
				count, rule.ThreatLevel,
				snapshot.WindowStart.Format("15:04:05"),
				rule.MinCount,
				classBreakdown(snapshot, level)))
		}
	}

	if len(messages) == 0 {
		return
	}

	log.Printf("Alerter evaluation completed. %d alert(s) triggered.", len(messages))

	if a.notifier == nil {
		return
	}

	body := "<h1>FlowSentry Alert Summary</h1>" +
		"<p>The following alerts were triggered during the last check:</p><hr>" +
		strings.Join(messages, "<hr>")
	subject := fmt.Sprintf("FlowSentry Alert Summary (%d Triggered)", len(messages))

	if err := a.notifier.Send(subject, body); err != nil {
		log.Printf("ERROR: Failed to send consolidated alert notification: %v", err)
	} else {
		log.Printf("INFO: Consolidated alert notification sent successfully.")
	}
}

// classBreakdown renders the per-class counts behind one triggered level.
func classBreakdown(snapshot *model.Report, level model.ThreatLevel) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for class, levels := range snapshot.Counts {
		if n := levels[level]; n > 0 {
			fmt.Fprintf(&b, "<li>%s: %d</li>", class, n)
		}
	}
	b.WriteString("</ul>")
	return b.String()
}
