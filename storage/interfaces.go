package storage

import (
	"context"

	"github.com/poiesic/retrievit/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the repository and releases resources.
	Close() error
}

// DocumentRepository provides operations for the document table.
type DocumentRepository interface {
	Repository

	// AddDocuments adds one or more documents to storage.
	// For documents with ID=0, generates new IDs from sequence.
	// Sets CreatedAt if not already set.
	// Returns the documents with generated IDs and timestamps populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
}

// ChunkRepository provides operations for the chunk table and the
// document-to-chunk relation.
type ChunkRepository interface {
	Repository

	// AddChunks adds one or more chunks to storage.
	// For chunks with ID=0, generates new IDs from sequence; sequence
	// IDs are monotonic, so ascending chunk ID is insertion order.
	// Also records the document-to-chunk relation for cascade deletes.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// GetChunksByDocument retrieves all chunks of a document, ordered
	// by insertion (ascending chunk ID, which matches ordinal order).
	GetChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// DeleteChunksByDocument removes all chunks of a document and the
	// relation entries. Returns the IDs of the removed chunks.
	DeleteChunksByDocument(ctx context.Context, documentID core.ID) ([]core.ID, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)
}

// IndexRepository persists derived index state: per-chunk postings and
// the segment manifest.
type IndexRepository interface {
	Repository

	// SavePostings stores the term-frequency map of a chunk.
	SavePostings(ctx context.Context, chunkID core.ID, postings map[string]uint32) error

	// GetPostings retrieves the term-frequency map of a chunk.
	// Returns ErrNotFound if no postings are stored for the chunk.
	GetPostings(ctx context.Context, chunkID core.ID) (map[string]uint32, error)

	// DeletePostings removes postings for the given chunks.
	// Missing entries are ignored.
	DeletePostings(ctx context.Context, chunkIDs ...core.ID) error

	// SaveManifest persists the segment manifest, replacing any
	// previous manifest atomically.
	SaveManifest(ctx context.Context, manifest *core.Manifest) error

	// LoadManifest retrieves the segment manifest.
	// Returns nil, nil if no manifest has been saved yet.
	LoadManifest(ctx context.Context) (*core.Manifest, error)

	// NextSegmentID returns a fresh segment identifier.
	NextSegmentID(ctx context.Context) (core.ID, error)
}
