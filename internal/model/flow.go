package model

import (
	"time"
)

// FlowRecord is one observed network flow as produced by a flow exporter.
// Features is a variable key set: the exporter decides which fields it
// emits, and the aligner reconciles them against the trained schema.
type FlowRecord struct {
	// FlowID identifies the flow, typically derived from the 5-tuple.
	FlowID string

	// Timestamp is the capture time of the flow summary.
	Timestamp time.Time

	// Features maps feature name to raw value. Values are numeric or
	// categorical strings (e.g. a transport protocol name).
	Features map[string]interface{}
}

// AlignedRecord is a FlowRecord after schema reconciliation: a fixed-order
// numeric vector matching the classifier's selected-feature schema.
type AlignedRecord struct {
	FlowID    string
	Timestamp time.Time

	// Vector has exactly one entry per selected feature, in schema order.
	Vector []float64

	// Defaulted lists the schema features that were absent or malformed in
	// the source record and resolved to 0.0.
	Defaulted []string
}
