package chunk

import "errors"

var (
	// ErrChunkMissing is returned when a chunk file referenced by a file
	// record no longer exists on disk. The owning record is unrecoverable;
	// callers must surface this distinctly from transient I/O failures.
	ErrChunkMissing = errors.New("chunk missing")

	// ErrStorageIO is returned for any other filesystem failure while
	// reading or writing chunks.
	ErrStorageIO = errors.New("storage i/o error")
)
