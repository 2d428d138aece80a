package model

import (
	"time"
)

// ClassPrediction is a single (class name, probability) pair.
type ClassPrediction struct {
	Class       string  `json:"class"`
	Probability float64 `json:"probability"`
}

// ClassificationResult is the ranked class-probability list for one flow.
// Probabilities are non-negative, sum to 1.0 and are sorted descending,
// ties broken by ascending class name.
type ClassificationResult struct {
	FlowID      string
	Timestamp   time.Time
	Predictions []ClassPrediction
}

// Top returns the highest-ranked prediction.
func (r *ClassificationResult) Top() ClassPrediction {
	if len(r.Predictions) == 0 {
		return ClassPrediction{}
	}
	return r.Predictions[0]
}

// RunnerUp returns the second-ranked prediction, or a zero value if the
// result has fewer than two classes.
func (r *ClassificationResult) RunnerUp() ClassPrediction {
	if len(r.Predictions) < 2 {
		return ClassPrediction{}
	}
	return r.Predictions[1]
}

// ThreatLevel is the coarse severity derived from class probabilities.
type ThreatLevel string

const (
	ThreatClear      ThreatLevel = "clear"
	ThreatSuspicious ThreatLevel = "suspicious"
	ThreatCritical   ThreatLevel = "critical"
)

// ThreatVerdict is the per-flow outcome consumed by the report aggregator
// and any alerting collaborator.
type ThreatVerdict struct {
	FlowID    string
	Timestamp time.Time

	Level        ThreatLevel
	TopClass     string
	TopProb      float64
	RunnerUp     string
	RunnerUpProb float64

	// Reason is a short human-readable explanation of the level.
	Reason string
}
