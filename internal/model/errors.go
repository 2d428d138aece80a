package model

import (
	"fmt"
)

// SchemaMismatchError reports a feature vector whose length disagrees with
// the model's expectation. With a correctly loaded bundle the aligner makes
// this unreachable; the classifier keeps the check as a guard. The record
// is dropped and the pipeline continues.
type SchemaMismatchError struct {
	Got  int
	Want int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: vector has %d features, model expects %d", e.Got, e.Want)
}

// SourceError reports a flow source failure after its retry budget is
// exhausted. It is fatal to the pipeline.
type SourceError struct {
	Attempts int
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("flow source failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
