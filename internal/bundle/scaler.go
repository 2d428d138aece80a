package bundle

import (
	"fmt"
)

// StandardScaler normalizes a full-length feature vector with the per-feature
// mean and scale the training collaborator persisted. It must be applied to
// the full feature space the scaler was fit on, never to the selected subset.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

// NewStandardScaler validates the parameter arrays against the expected
// feature count.
func NewStandardScaler(mean, scale []float64, numFeatures int) (*StandardScaler, error) {
	if len(mean) != numFeatures {
		return nil, fmt.Errorf("scaler mean has %d entries, schema has %d features", len(mean), numFeatures)
	}
	if len(scale) != numFeatures {
		return nil, fmt.Errorf("scaler scale has %d entries, schema has %d features", len(scale), numFeatures)
	}
	return &StandardScaler{mean: mean, scale: scale}, nil
}

// Transform scales the vector in place and returns it. A zero scale entry
// (constant training feature) maps the value to 0 rather than dividing by
// zero.
func (s *StandardScaler) Transform(full []float64) []float64 {
	for i := range full {
		if s.scale[i] == 0 {
			full[i] = 0
			continue
		}
		full[i] = (full[i] - s.mean[i]) / s.scale[i]
	}
	return full
}

// NumFeatures returns the feature count the scaler was fit on.
func (s *StandardScaler) NumFeatures() int {
	return len(s.mean)
}
