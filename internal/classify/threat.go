package classify

import (
	"fmt"

	"flowsentry/internal/model"
)

// Evaluator derives a threat verdict from ranked class probabilities. It is
// a pure, total function of its inputs: no state, no error paths.
type Evaluator struct {
	benign string
	high   float64
	watch  float64
}

// NewEvaluator creates an evaluator. benign names the non-attack class;
// high is the high-confidence cutoff in (0, 1], watch the watch cutoff in
// [0, high). Threshold validity is the config layer's responsibility.
func NewEvaluator(benign string, high, watch float64) *Evaluator {
	return &Evaluator{benign: benign, high: high, watch: watch}
}

// Evaluate maps a classification result to a threat verdict:
//
//	Critical    top class is an attack family at or above the
//	            high-confidence threshold
//	Suspicious  top class is benign but the runner-up attack signal is at
//	            or above the watch threshold, or the top class is an attack
//	            family below the high-confidence threshold
//	Clear       benign on top with the runner-up below the watch threshold
func (e *Evaluator) Evaluate(res *model.ClassificationResult) model.ThreatVerdict {
	top := res.Top()
	runnerUp := res.RunnerUp()

	verdict := model.ThreatVerdict{
		FlowID:       res.FlowID,
		Timestamp:    res.Timestamp,
		TopClass:     top.Class,
		TopProb:      top.Probability,
		RunnerUp:     runnerUp.Class,
		RunnerUpProb: runnerUp.Probability,
	}

	switch {
	case top.Class != e.benign && top.Probability >= e.high:
		verdict.Level = model.ThreatCritical
		verdict.Reason = fmt.Sprintf("%s at %.2f, above high-confidence threshold %.2f",
			top.Class, top.Probability, e.high)
	case top.Class != e.benign:
		verdict.Level = model.ThreatSuspicious
		verdict.Reason = fmt.Sprintf("%s leads at %.2f but below high-confidence threshold %.2f",
			top.Class, top.Probability, e.high)
	case runnerUp.Probability >= e.watch && runnerUp.Class != "":
		verdict.Level = model.ThreatSuspicious
		verdict.Reason = fmt.Sprintf("benign on top but %s at %.2f exceeds watch threshold %.2f",
			runnerUp.Class, runnerUp.Probability, e.watch)
	default:
		verdict.Level = model.ThreatClear
		verdict.Reason = fmt.Sprintf("benign at %.2f with no attack signal above watch threshold %.2f",
			top.Probability, e.watch)
	}

	return verdict
}
