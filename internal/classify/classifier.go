// Package classify turns aligned feature vectors into ranked class
// probabilities and threat verdicts.
package classify

import (
	"sort"

	"flowsentry/internal/bundle"
	"flowsentry/internal/model"
)

// Classifier wraps the bundle's trained scorer with the well-formedness
// guarantees the rest of the pipeline relies on: probabilities normalized,
// sorted descending, ties broken by class name. Safe for concurrent use.
type Classifier struct {
	scorer model.Scorer
	labels []string
}

// New creates a classifier bound to the loaded bundle.
func New(b *bundle.Bundle) *Classifier {
	return &Classifier{scorer: b.Scorer(), labels: b.Labels()}
}

// Classify scores one aligned record. A vector whose length disagrees with
// the model returns a SchemaMismatchError; with a correctly loaded bundle
// the aligner makes that unreachable, so the check is purely defensive.
func (c *Classifier) Classify(rec *model.AlignedRecord) (*model.ClassificationResult, error) {
	if len(rec.Vector) != c.scorer.NumFeatures() {
		return nil, &model.SchemaMismatchError{Got: len(rec.Vector), Want: c.scorer.NumFeatures()}
	}

	probs, err := c.scorer.Score(rec.Vector)
	if err != nil {
		return nil, err
	}

	predictions := make([]model.ClassPrediction, len(probs))
	var total float64
	for i, p := range probs {
		if p < 0 {
			p = 0
		}
		predictions[i] = model.ClassPrediction{Class: c.labels[i], Probability: p}
		total += p
	}

	// Renormalize so downstream consumers can rely on a unit sum even if a
	// scorer returns unnormalized scores.
	if total > 0 {
		for i := range predictions {
			predictions[i].Probability /= total
		}
	} else {
		uniform := 1.0 / float64(len(predictions))
		for i := range predictions {
			predictions[i].Probability = uniform
		}
	}

	sort.Slice(predictions, func(i, j int) bool {
		if predictions[i].Probability != predictions[j].Probability {
			return predictions[i].Probability > predictions[j].Probability
		}
		return predictions[i].Class < predictions[j].Class
	})

	return &model.ClassificationResult{
		FlowID:      rec.FlowID,
		Timestamp:   rec.Timestamp,
		Predictions: predictions,
	}, nil
}
