package model

import (
	"context"
	"errors"
)

// ErrEndOfStream is returned by a finite Source once every record has been
// produced. It is a completion signal, not a failure.
var ErrEndOfStream = errors.New("end of flow stream")

// Source produces a lazy sequence of flow records. Live sources are
// unbounded and non-restartable; batch sources are finite and signal
// completion with ErrEndOfStream.
type Source interface {
	// Next blocks until a record is available, the stream ends, or ctx is
	// cancelled. Implementations must bound every internal wait so that
	// cancellation is observed promptly.
	Next(ctx context.Context) (*FlowRecord, error)

	// Close releases any resources held by the source.
	Close() error
}
