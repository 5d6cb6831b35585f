package index

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrIndexRepositoryRequired is returned when an index repository is not provided.
	ErrIndexRepositoryRequired = errors.New("index repository required")

	// ErrDimensionMismatch indicates an embedding whose dimension does
	// not match the engine's fixed vector dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexCorruption indicates persisted index state failed
	// integrity checks on load. The engine refuses to serve until the
	// index is rebuilt.
	ErrIndexCorruption = errors.New("index corruption detected")

	// ErrCommitConflict indicates two commits raced on the published
	// snapshot. This is internal and should never be observable; seeing
	// it means the consistency model was violated.
	ErrCommitConflict = errors.New("commit conflict")
)
