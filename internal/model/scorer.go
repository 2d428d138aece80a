package model

// Scorer is the capability exposed by a trained classification model.
// The pipeline treats the model as a black box: given a feature vector of
// the expected length it returns one probability per class, in the class
// order of the bundle's label encoder. Implementations must be
// deterministic for identical input and safe for concurrent use.
type Scorer interface {
	// Score returns class probabilities for one feature vector.
	Score(vector []float64) ([]float64, error)

	// NumFeatures returns the vector length the model expects.
	NumFeatures() int

	// NumClasses returns the number of classes the model scores.
	NumClasses() int
}
