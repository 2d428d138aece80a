package bundle

import (
	"fmt"
)

// FeatureSchema is the ordered feature contract of a trained model: the
// full feature order the scaler was fit on, and the reduced subset the
// classifier consumes after feature selection. Built once at bundle load
// and immutable afterwards.
type FeatureSchema struct {
	scalerFeatures   []string
	selectedFeatures []string

	scalerIndex map[string]int
	// selectedIdx[i] is the position of the i-th selected feature within
	// the scaler feature order. Computed once so alignment is an index
	// lookup per record, not a map walk.
	selectedIdx []int
}

// NewFeatureSchema validates the two orderings against each other and
// precomputes the selection index.
func NewFeatureSchema(scalerFeatures, selectedFeatures []string) (*FeatureSchema, error) {
	if len(scalerFeatures) == 0 {
		return nil, fmt.Errorf("scaler feature list is empty")
	}
	if len(selectedFeatures) == 0 {
		return nil, fmt.Errorf("selected feature list is empty")
	}

	index := make(map[string]int, len(scalerFeatures))
	for i, name := range scalerFeatures {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate scaler feature %q", name)
		}
		index[name] = i
	}

	selectedIdx := make([]int, len(selectedFeatures))
	for i, name := range selectedFeatures {
		pos, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("selected feature %q is not a scaler feature", name)
		}
		selectedIdx[i] = pos
	}

	return &FeatureSchema{
		scalerFeatures:   scalerFeatures,
		selectedFeatures: selectedFeatures,
		scalerIndex:      index,
		selectedIdx:      selectedIdx,
	}, nil
}

// ScalerFeatures returns the full ordered feature list the scaler expects.
func (s *FeatureSchema) ScalerFeatures() []string {
	return s.scalerFeatures
}

// SelectedFeatures returns the ordered subset the classifier consumes.
func (s *FeatureSchema) SelectedFeatures() []string {
	return s.selectedFeatures
}

// NumScalerFeatures returns the length of the full feature vector.
func (s *FeatureSchema) NumScalerFeatures() int {
	return len(s.scalerFeatures)
}

// NumSelectedFeatures returns the length of the reduced vector.
func (s *FeatureSchema) NumSelectedFeatures() int {
	return len(s.selectedFeatures)
}

// ScalerIndex returns the position of name in the scaler feature order.
func (s *FeatureSchema) ScalerIndex(name string) (int, bool) {
	i, ok := s.scalerIndex[name]
	return i, ok
}

// Select reduces a full-length vector to the selected subset, in selected
// order. The input must already be scaled; Select only slices.
func (s *FeatureSchema) Select(full []float64) []float64 {
	out := make([]float64, len(s.selectedIdx))
	for i, pos := range s.selectedIdx {
		out[i] = full[pos]
	}
	return out
}
