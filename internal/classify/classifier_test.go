package classify

import (
	"errors"
	"math"
	"testing"
	"time"

	"flowsentry/internal/bundle"
	"flowsentry/internal/model"
)

// stubScorer returns fixed scores so the wrapper's post-processing can be
// tested in isolation.
type stubScorer struct {
	scores   []float64
	features int
}

func (s *stubScorer) Score(vector []float64) ([]float64, error) {
	out := make([]float64, len(s.scores))
	copy(out, s.scores)
	return out, nil
}

func (s *stubScorer) NumFeatures() int { return s.features }
func (s *stubScorer) NumClasses() int  { return len(s.scores) }

func stubBundle(t *testing.T, labels []string, scores []float64, features int) *bundle.Bundle {
	t.Helper()

	names := make([]string, features)
	mean := make([]float64, features)
	scale := make([]float64, features)
	for i := range names {
		names[i] = string(rune('a' + i))
		scale[i] = 1
	}

	schema, err := bundle.NewFeatureSchema(names, names)
	if err != nil {
		t.Fatalf("NewFeatureSchema failed: %v", err)
	}
	scaler, err := bundle.NewStandardScaler(mean, scale, features)
	if err != nil {
		t.Fatalf("NewStandardScaler failed: %v", err)
	}
	b, err := bundle.New(schema, scaler, &stubScorer{scores: scores, features: features}, labels)
	if err != nil {
		t.Fatalf("bundle.New failed: %v", err)
	}
	return b
}

func aligned(vector []float64) *model.AlignedRecord {
	return &model.AlignedRecord{FlowID: "f1", Timestamp: time.Now(), Vector: vector}
}

func TestClassifyWellFormed(t *testing.T) {
	b := stubBundle(t, []string{"BENIGN", "DoS", "PortScan"}, []float64{0.2, 0.5, 0.3}, 2)
	c := New(b)

	res, err := c.Classify(aligned([]float64{1, 2}))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	sum := 0.0
	for i, p := range res.Predictions {
		if p.Probability < 0 {
			t.Errorf("Negative probability at rank %d", i)
		}
		if i > 0 && p.Probability > res.Predictions[i-1].Probability {
			t.Errorf("Predictions not sorted descending at rank %d", i)
		}
		sum += p.Probability
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("Probabilities sum to %v, want 1.0", sum)
	}
	if res.Top().Class != "DoS" {
		t.Errorf("Expected DoS on top, got %s", res.Top().Class)
	}
	if res.RunnerUp().Class != "PortScan" {
		t.Errorf("Expected PortScan as runner-up, got %s", res.RunnerUp().Class)
	}
}

func TestClassifyTieBreakByClassName(t *testing.T) {
	b := stubBundle(t, []string{"zeta", "alpha"}, []float64{0.5, 0.5}, 1)
	c := New(b)

	res, err := c.Classify(aligned([]float64{0}))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if res.Predictions[0].Class != "alpha" {
		t.Errorf("Tie should rank alpha first, got %s", res.Predictions[0].Class)
	}
}

func TestClassifyNormalizesUnnormalizedScores(t *testing.T) {
	b := stubBundle(t, []string{"x", "y"}, []float64{3, 1}, 1)
	c := New(b)

	res, err := c.Classify(aligned([]float64{0}))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if math.Abs(res.Top().Probability-0.75) > 1e-9 {
		t.Errorf("Expected normalized 0.75, got %v", res.Top().Probability)
	}
}

func TestClassifySchemaMismatch(t *testing.T) {
	b := stubBundle(t, []string{"x", "y"}, []float64{0.5, 0.5}, 3)
	c := New(b)

	_, err := c.Classify(aligned([]float64{1}))
	var mismatch *model.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected SchemaMismatchError, got %v", err)
	}
	if mismatch.Got != 1 || mismatch.Want != 3 {
		t.Errorf("Mismatch reported %d/%d, want 1/3", mismatch.Got, mismatch.Want)
	}
}
