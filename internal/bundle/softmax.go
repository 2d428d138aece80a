package bundle

import (
	"fmt"
	"math"

	"flowsentry/internal/model"
)

// softmaxModel scores a feature vector with a linear model and a softmax
// over the class logits. It is one possible persisted artifact; the
// pipeline only ever sees it through model.Scorer.
type softmaxModel struct {
	weights   [][]float64 // one row per class
	intercept []float64
}

func newSoftmaxModel(weights [][]float64, intercept []float64) (model.Scorer, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("model has no weight rows")
	}
	if len(intercept) != len(weights) {
		return nil, fmt.Errorf("model has %d intercepts for %d classes", len(intercept), len(weights))
	}
	width := len(weights[0])
	for i, row := range weights {
		if len(row) != width {
			return nil, fmt.Errorf("model weight row %d has %d entries, expected %d", i, len(row), width)
		}
	}
	return &softmaxModel{weights: weights, intercept: intercept}, nil
}

// Score computes softmax(W*x + b). The max-logit shift keeps the
// exponentials finite for large logits.
func (m *softmaxModel) Score(vector []float64) ([]float64, error) {
	if len(vector) != m.NumFeatures() {
		return nil, &model.SchemaMismatchError{Got: len(vector), Want: m.NumFeatures()}
	}

	logits := make([]float64, len(m.weights))
	maxLogit := math.Inf(-1)
	for c, row := range m.weights {
		sum := m.intercept[c]
		for i, w := range row {
			sum += w * vector[i]
		}
		logits[c] = sum
		if sum > maxLogit {
			maxLogit = sum
		}
	}

	var total float64
	for c, l := range logits {
		logits[c] = math.Exp(l - maxLogit)
		total += logits[c]
	}
	for c := range logits {
		logits[c] /= total
	}
	return logits, nil
}

func (m *softmaxModel) NumFeatures() int {
	return len(m.weights[0])
}

func (m *softmaxModel) NumClasses() int {
	return len(m.weights)
}
