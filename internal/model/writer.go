package model

// Writer persists one finished report window. Implementations decide the
// destination (log output, file tree, database) and must tolerate empty
// reports.
type Writer interface {
	Write(report *Report) error

	// Close flushes and releases the writer's resources.
	Close() error
}
