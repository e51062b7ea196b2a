package retrieval

import "errors"

var (
	// ErrIndexMissing is returned when the index directory lacks either the
	// vector file or the chunk metadata file. An absent index is a distinct
	// condition from an index that exists but is unreadable.
	ErrIndexMissing = errors.New("index files not found")

	// ErrIndexCorrupt is returned when the persisted index pair cannot be
	// decoded or the two files disagree with each other.
	ErrIndexCorrupt = errors.New("index files corrupt")

	// ErrDimensionMismatch is returned when a loaded index does not match the
	// configured embedding dimension.
	ErrDimensionMismatch = errors.New("index dimension mismatch")

	// ErrEmptyIndex is returned when an index would be built with no chunks.
	ErrEmptyIndex = errors.New("no chunks to index")
)
