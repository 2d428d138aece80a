package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"flowsentry/internal/model"
)

// Artifact file names within a bundle directory. The training collaborator
// owns these formats; this package only loads and validates them.
const (
	featuresFile = "features.json"
	scalerFile   = "scaler.json"
	modelFile    = "model.json"
	labelsFile   = "labels.json"
)

type featuresArtifact struct {
	ScalerFeatures   []string `json:"scaler_features"`
	SelectedFeatures []string `json:"selected_features"`
}

type scalerArtifact struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

type modelArtifact struct {
	Type      string      `json:"type"`
	Weights   [][]float64 `json:"weights"`
	Intercept []float64   `json:"intercept"`
}

type labelsArtifact struct {
	Classes []string `json:"classes"`
}

// Bundle is the loaded-once set of trained artifacts: feature schema,
// scaler, scorer and label encoding. It is immutable after Load and safe
// for lockless concurrent use by classifier workers.
type Bundle struct {
	schema *FeatureSchema
	scaler *StandardScaler
	scorer model.Scorer
	labels []string
}

// Load reads the four artifacts from dir and cross-validates them. Any
// missing, unreadable or mutually inconsistent artifact is a fatal
// configuration error; the process cannot classify without a coherent
// bundle.
func Load(dir string) (*Bundle, error) {
	var features featuresArtifact
	if err := readArtifact(dir, featuresFile, &features); err != nil {
		return nil, err
	}

	schema, err := NewFeatureSchema(features.ScalerFeatures, features.SelectedFeatures)
	if err != nil {
		return nil, fmt.Errorf("invalid feature schema: %w", err)
	}

	var scalerArt scalerArtifact
	if err := readArtifact(dir, scalerFile, &scalerArt); err != nil {
		return nil, err
	}
	if err := matchOrder(scalerArt.FeatureNames, schema.ScalerFeatures()); err != nil {
		return nil, fmt.Errorf("scaler feature order disagrees with schema: %w", err)
	}
	scaler, err := NewStandardScaler(scalerArt.Mean, scalerArt.Scale, schema.NumScalerFeatures())
	if err != nil {
		return nil, fmt.Errorf("invalid scaler artifact: %w", err)
	}

	var modelArt modelArtifact
	if err := readArtifact(dir, modelFile, &modelArt); err != nil {
		return nil, err
	}
	if modelArt.Type != "softmax_linear" {
		return nil, fmt.Errorf("unsupported model type %q", modelArt.Type)
	}
	scorer, err := newSoftmaxModel(modelArt.Weights, modelArt.Intercept)
	if err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}

	var labels labelsArtifact
	if err := readArtifact(dir, labelsFile, &labels); err != nil {
		return nil, err
	}

	return New(schema, scaler, scorer, labels.Classes)
}

// New assembles a bundle from already-built parts and cross-validates
// them. Load goes through here; it is also the entry point for callers
// that hold artifacts in memory.
func New(schema *FeatureSchema, scaler *StandardScaler, scorer model.Scorer, labels []string) (*Bundle, error) {
	if scaler.NumFeatures() != schema.NumScalerFeatures() {
		return nil, fmt.Errorf("scaler is fit on %d features, schema has %d",
			scaler.NumFeatures(), schema.NumScalerFeatures())
	}
	if scorer.NumFeatures() != schema.NumSelectedFeatures() {
		return nil, fmt.Errorf("model expects %d features, schema selects %d",
			scorer.NumFeatures(), schema.NumSelectedFeatures())
	}
	if len(labels) != scorer.NumClasses() {
		return nil, fmt.Errorf("label encoder has %d classes, model scores %d",
			len(labels), scorer.NumClasses())
	}
	seen := make(map[string]struct{}, len(labels))
	for _, class := range labels {
		if _, dup := seen[class]; dup {
			return nil, fmt.Errorf("duplicate class label %q", class)
		}
		seen[class] = struct{}{}
	}

	return &Bundle{
		schema: schema,
		scaler: scaler,
		scorer: scorer,
		labels: labels,
	}, nil
}

// Schema returns the feature schema.
func (b *Bundle) Schema() *FeatureSchema {
	return b.schema
}

// Scaler returns the input scaler.
func (b *Bundle) Scaler() *StandardScaler {
	return b.scaler
}

// Scorer returns the trained classification model.
func (b *Bundle) Scorer() model.Scorer {
	return b.scorer
}

// Labels returns the ordered class names matching scorer output indices.
func (b *Bundle) Labels() []string {
	return b.labels
}

// HasLabel reports whether class is a known label.
func (b *Bundle) HasLabel(class string) bool {
	for _, l := range b.labels {
		if l == class {
			return true
		}
	}
	return false
}

func readArtifact(dir, name string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("failed to read bundle artifact %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse bundle artifact %s: %w", name, err)
	}
	return nil
}

func matchOrder(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("got %d names, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			return fmt.Errorf("position %d is %q, want %q", i, got[i], want[i])
		}
	}
	return nil
}
