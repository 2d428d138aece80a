// Package align reconciles raw flow records against a trained feature
// schema. A flow exporter and a trained model rarely agree byte-for-byte on
// feature identity and order; this package is the single place where that
// gap is closed, deterministically and without ever failing a record.
package align

import (
	"math"
	"strconv"
	"strings"

	"flowsentry/internal/bundle"
	"flowsentry/internal/model"
)

// categoricalField describes one source field that expands into indicator
// features, one per recognized category value.
type categoricalField struct {
	// indicators maps a normalized category value to its indicator
	// feature name in the schema.
	indicators map[string]string
}

// protocolField is the transport-protocol expansion: the exporter may emit
// a name or an IANA protocol number, and either maps onto the same
// indicator column.
var protocolField = categoricalField{
	indicators: map[string]string{
		"tcp":  "protocol_tcp",
		"6":    "protocol_tcp",
		"udp":  "protocol_udp",
		"17":   "protocol_udp",
		"icmp": "protocol_icmp",
		"1":    "protocol_icmp",
	},
}

// categoricalFields maps a raw field name to its expansion rule.
var categoricalFields = map[string]categoricalField{
	"protocol": protocolField,
}

// Aligner maps FlowRecords with arbitrary key sets onto the bundle's fixed
// feature order: default, copy, expand, scale, then select. Stateless and
// safe for concurrent use.
type Aligner struct {
	schema *bundle.FeatureSchema
	scaler *bundle.StandardScaler
}

// New creates an aligner bound to the loaded bundle's schema and scaler.
func New(b *bundle.Bundle) *Aligner {
	return &Aligner{schema: b.Schema(), scaler: b.Scaler()}
}

// Align produces a fixed-length vector for the record. Schema features
// absent from the record, or carrying non-numeric or non-finite values,
// keep a 0.0 default and are reported in AlignedRecord.Defaulted. Align
// never fails: malformed input degrades to defaults.
//
// Scaling is applied to the full feature space the scaler was fit on, and
// only then is the vector reduced to the classifier's selected subset.
// Reversing those two steps scales with the wrong per-feature parameters;
// the order here is load-bearing.
func (a *Aligner) Align(rec *model.FlowRecord) *model.AlignedRecord {
	n := a.schema.NumScalerFeatures()
	full := make([]float64, n)
	present := make([]bool, n)

	for name, raw := range rec.Features {
		key := normalizeName(name)

		if cat, ok := categoricalFields[key]; ok {
			a.expandCategorical(cat, raw, full, present)
			continue
		}

		idx, ok := a.schema.ScalerIndex(key)
		if !ok {
			// Exporter field the model was not trained on.
			continue
		}
		if v, ok := coerceNumeric(raw); ok {
			full[idx] = v
			present[idx] = true
		}
	}

	var defaulted []string
	for i, name := range a.schema.ScalerFeatures() {
		if !present[i] {
			defaulted = append(defaulted, name)
		}
	}

	a.scaler.Transform(full)
	for i, v := range full {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			full[i] = 0
		}
	}

	return &model.AlignedRecord{
		FlowID:    rec.FlowID,
		Timestamp: rec.Timestamp,
		Vector:    a.schema.Select(full),
		Defaulted: defaulted,
	}
}

// expandCategorical sets the indicator column for a recognized category
// value. An unrecognized value leaves every indicator at its default; the
// category's columns are then reported as defaulted rather than failing
// the record.
func (a *Aligner) expandCategorical(cat categoricalField, raw interface{}, full []float64, present []bool) {
	value, ok := categoryValue(raw)
	if !ok {
		return
	}
	indicator, ok := cat.indicators[value]
	if !ok {
		return
	}

	// A recognized value defines the whole indicator group: the matched
	// column is 1 and its siblings are a deliberate 0, not a default.
	for _, feature := range cat.indicators {
		if idx, ok := a.schema.ScalerIndex(feature); ok {
			present[idx] = true
		}
	}
	if idx, ok := a.schema.ScalerIndex(indicator); ok {
		full[idx] = 1
	}
}

// normalizeName lowercases and underscores a feature name so that exporter
// spellings like "Flow Duration" and "flow_duration" address the same
// schema slot.
func normalizeName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "/", "_per_")
	return name
}

// coerceNumeric converts a raw feature value to a finite float64. The
// second return is false for non-numeric types, unparseable strings and
// non-finite values.
func coerceNumeric(raw interface{}) (float64, bool) {
	var v float64
	switch t := raw.(type) {
	case float64:
		v = t
	case float32:
		v = float64(t)
	case int:
		v = float64(t)
	case int32:
		v = float64(t)
	case int64:
		v = float64(t)
	case uint16:
		v = float64(t)
	case uint32:
		v = float64(t)
	case uint64:
		v = float64(t)
	case bool:
		if t {
			v = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	default:
		return 0, false
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// categoryValue normalizes a categorical raw value for indicator lookup.
// Numbers are rendered without a fractional part so 6.0 matches "6".
func categoryValue(raw interface{}) (string, bool) {
	switch t := raw.(type) {
	case string:
		return strings.TrimSpace(strings.ToLower(t)), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return "", false
		}
		return strconv.FormatInt(int64(t), 10), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	default:
		return "", false
	}
}
