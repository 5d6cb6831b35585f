package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Document is the source-of-truth record for a piece of ingested text.
// Documents are immutable after ingestion; changing a document means
// deleting and re-indexing it.
type Document struct {
	Id        ID
	Title     string
	Content   string
	Metadata  map[string]string // Optional metadata (e.g., "source", "path", "language")
	CreatedAt time.Time         // When the document was first ingested
}

// Chunk is a bounded slice of a document's content, the unit of
// indexing and scoring. Its lifecycle is bound to its document:
// deleting the document removes all of its chunks from both indexes.
type Chunk struct {
	Id         ID
	DocumentId ID
	Ordinal    int // Position of the chunk within its document
	Text       string
	TokenCount int
	Embedding  []float32 // Populated by the embedding provider; may be empty
}

// Query describes a single search request.
type Query struct {
	Text     string
	Limit    int               // Maximum candidate chunks per signal; 0 uses the engine default
	Page     int               // Zero-based page index
	PageSize int
	Filter   map[string]string // Equality match over Document.Metadata; nil matches everything
	Timeout  time.Duration     // Optional per-query deadline; 0 means no limit
}

// ScoredDocument pairs a document with its fused relevance score.
type ScoredDocument struct {
	Document *Document
	Score    float64
}

// SearchResult holds one page of ranked documents for a query.
type SearchResult struct {
	Documents   []ScoredDocument
	TotalHits   int // Distinct matching documents before pagination
	QueryTimeMs int64
	Page        int
	PageSize    int
	HasMore     bool
	LexicalOnly bool // True when vector scoring was skipped (embedding unavailable)
}

// PagedResult is a SearchResult plus page arithmetic derived from
// TotalHits and PageSize.
type PagedResult struct {
	SearchResult
	CurrentPage int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

// NewPagedResult derives page navigation fields from a SearchResult.
func NewPagedResult(result *SearchResult) *PagedResult {
	totalPages := 0
	if result.PageSize > 0 {
		totalPages = (result.TotalHits + result.PageSize - 1) / result.PageSize
	}
	return &PagedResult{
		SearchResult: *result,
		CurrentPage:  result.Page,
		TotalPages:   totalPages,
		HasNext:      result.Page < totalPages-1,
		HasPrevious:  result.Page > 0,
	}
}

// SegmentInfo records one committed segment in the manifest.
type SegmentInfo struct {
	Id        ID
	CreatedAt time.Time
	ChunkIds  []ID // Chunks in insertion order
}

// Manifest records which segments are committed, in commit order,
// together with document tombstones awaiting compaction. It is
// sufficient to rebuild the in-memory indexes on restart without
// recomputing embeddings.
type Manifest struct {
	Segments   []SegmentInfo
	Tombstones []ID // Tombstoned document IDs, purged on optimize
	UpdatedAt  time.Time
}

// CacheStats reports result-cache effectiveness.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// HitRate returns the fraction of lookups served from the cache.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Statistics is an observability snapshot of the engine.
type Statistics struct {
	DocumentCount int
	ChunkCount    int
	SegmentCount  int
	Cache         CacheStats
}
