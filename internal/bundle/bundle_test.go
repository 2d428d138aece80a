package bundle

import (
	"math"
	"testing"
)

func TestLoad(t *testing.T) {
	b, err := Load("testdata/bundle")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := b.Schema().NumScalerFeatures(); got != 10 {
		t.Errorf("Expected 10 scaler features, got %d", got)
	}
	if got := b.Schema().NumSelectedFeatures(); got != 5 {
		t.Errorf("Expected 5 selected features, got %d", got)
	}
	if got := len(b.Labels()); got != 3 {
		t.Errorf("Expected 3 labels, got %d", got)
	}
	if b.Labels()[0] != "BENIGN" {
		t.Errorf("Expected first label BENIGN, got %q", b.Labels()[0])
	}
	if !b.HasLabel("PortScan") {
		t.Error("Expected PortScan to be a known label")
	}
	if b.HasLabel("Heartbleed") {
		t.Error("Heartbleed should not be a known label")
	}

	if got := b.Scorer().NumFeatures(); got != 5 {
		t.Errorf("Scorer expects %d features, want 5", got)
	}
	if got := b.Scorer().NumClasses(); got != 3 {
		t.Errorf("Scorer scores %d classes, want 3", got)
	}
}

func TestLoadInconsistentBundle(t *testing.T) {
	if _, err := Load("testdata/bundle_bad"); err == nil {
		t.Fatal("Expected error for a selected feature missing from the scaler schema")
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	if _, err := Load("testdata/does_not_exist"); err == nil {
		t.Fatal("Expected error for a missing bundle directory")
	}
}

func TestSchemaSelectOrder(t *testing.T) {
	schema, err := NewFeatureSchema(
		[]string{"a", "b", "c", "d"},
		[]string{"d", "b"},
	)
	if err != nil {
		t.Fatalf("NewFeatureSchema failed: %v", err)
	}

	out := schema.Select([]float64{1, 2, 3, 4})
	if len(out) != 2 || out[0] != 4 || out[1] != 2 {
		t.Errorf("Select returned %v, want [4 2]", out)
	}
}

func TestSchemaRejectsUnknownSelection(t *testing.T) {
	if _, err := NewFeatureSchema([]string{"a", "b"}, []string{"z"}); err == nil {
		t.Fatal("Expected error for selected feature not in scaler order")
	}
}

func TestScalerTransform(t *testing.T) {
	scaler, err := NewStandardScaler([]float64{10, 0}, []float64{2, 0}, 2)
	if err != nil {
		t.Fatalf("NewStandardScaler failed: %v", err)
	}

	out := scaler.Transform([]float64{14, 7})
	if out[0] != 2 {
		t.Errorf("Expected (14-10)/2 = 2, got %v", out[0])
	}
	// A zero scale entry must not divide by zero.
	if out[1] != 0 {
		t.Errorf("Expected zero-scale feature to map to 0, got %v", out[1])
	}
}

func TestSoftmaxScoreWellFormed(t *testing.T) {
	scorer, err := newSoftmaxModel(
		[][]float64{{1, 0}, {0, 1}, {-1, -1}},
		[]float64{0.1, -0.1, 0},
	)
	if err != nil {
		t.Fatalf("newSoftmaxModel failed: %v", err)
	}

	probs, err := scorer.Score([]float64{0.5, -0.5})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	sum := 0.0
	for _, p := range probs {
		if p < 0 {
			t.Errorf("Negative probability %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("Probabilities sum to %v, want 1.0", sum)
	}

	// Deterministic for identical input.
	again, err := scorer.Score([]float64{0.5, -0.5})
	if err != nil {
		t.Fatalf("Second Score failed: %v", err)
	}
	for i := range probs {
		if probs[i] != again[i] {
			t.Errorf("Score is not deterministic at index %d: %v vs %v", i, probs[i], again[i])
		}
	}
}

func TestSoftmaxScoreWrongLength(t *testing.T) {
	scorer, err := newSoftmaxModel([][]float64{{1, 0}}, []float64{0})
	if err != nil {
		t.Fatalf("newSoftmaxModel failed: %v", err)
	}
	if _, err := scorer.Score([]float64{1, 2, 3}); err == nil {
		t.Fatal("Expected error for wrong vector length")
	}
}

func TestSoftmaxLargeLogitsStayFinite(t *testing.T) {
	scorer, err := newSoftmaxModel([][]float64{{1000}, {-1000}}, []float64{0, 0})
	if err != nil {
		t.Fatalf("newSoftmaxModel failed: %v", err)
	}
	probs, err := scorer.Score([]float64{5})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Errorf("Probability %d is not finite: %v", i, p)
		}
	}
}
