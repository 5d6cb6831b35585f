package index

import (
	"time"

	"github.com/poiesic/retrievit/core"
)

// chunkEntry is the per-chunk index record held inside a segment.
type chunkEntry struct {
	id       core.ID
	document core.ID
	length   int // token count, used for BM25 length normalization
	terms    map[string]uint32
	vector   []float32 // unit vector, or all zeros
}

// posting links a term occurrence to its chunk.
type posting struct {
	chunk *chunkEntry
	freq  uint32
}

// Segment is an immutable batch of postings and vectors produced by
// one commit. Chunks are held in insertion order; postings lists
// follow that order, which gives BM25 its stable tie-break.
type Segment struct {
	id        core.ID
	createdAt time.Time
	chunks    []*chunkEntry
	postings  map[string][]posting
}

// newSegment builds a segment from staged chunks. The staged order is
// preserved.
func newSegment(id core.ID, createdAt time.Time, staged []*stagedChunk) *Segment {
	seg := &Segment{
		id:        id,
		createdAt: createdAt,
		chunks:    make([]*chunkEntry, 0, len(staged)),
		postings:  make(map[string][]posting),
	}
	for _, sc := range staged {
		entry := &chunkEntry{
			id:       sc.chunk.Id,
			document: sc.chunk.DocumentId,
			length:   sc.chunk.TokenCount,
			terms:    sc.terms,
			vector:   sc.vector,
		}
		seg.addEntry(entry)
	}
	return seg
}

// addEntry appends a chunk entry and its postings.
func (s *Segment) addEntry(entry *chunkEntry) {
	s.chunks = append(s.chunks, entry)
	for term, freq := range entry.terms {
		s.postings[term] = append(s.postings[term], posting{chunk: entry, freq: freq})
	}
}

// Id returns the segment identifier.
func (s *Segment) Id() core.ID {
	return s.id
}

// Len returns the number of chunks in the segment.
func (s *Segment) Len() int {
	return len(s.chunks)
}

// Info returns the manifest record for this segment.
func (s *Segment) Info() core.SegmentInfo {
	ids := make([]core.ID, len(s.chunks))
	for i, c := range s.chunks {
		ids[i] = c.id
	}
	return core.SegmentInfo{
		Id:        s.id,
		CreatedAt: s.createdAt,
		ChunkIds:  ids,
	}
}

// corpusStats holds BM25 global statistics, computed once per commit
// over live chunks and frozen until the next commit.
type corpusStats struct {
	chunkCount int
	avgLength  float64
	docFreq    map[string]int // term -> number of live chunks containing it
}

// Snapshot is an immutable view of the committed index state. Readers
// obtain one at query start and keep using it regardless of
// concurrent commits.
type Snapshot struct {
	segments   []*Segment
	tombstones map[core.ID]struct{} // tombstoned document IDs
	stats      *corpusStats
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		tombstones: map[core.ID]struct{}{},
		stats:      &corpusStats{docFreq: map[string]int{}},
	}
}

// SegmentCount returns the number of committed segments.
func (s *Snapshot) SegmentCount() int {
	return len(s.segments)
}

// ChunkCount returns the number of live (non-tombstoned) chunks.
func (s *Snapshot) ChunkCount() int {
	return s.stats.chunkCount
}

// IsTombstoned reports whether a document is deleted but not yet
// purged by compaction.
func (s *Snapshot) IsTombstoned(documentID core.ID) bool {
	_, ok := s.tombstones[documentID]
	return ok
}

// live reports whether a chunk entry should be visible to readers.
func (s *Snapshot) live(entry *chunkEntry) bool {
	_, dead := s.tombstones[entry.document]
	return !dead
}

// computeStats derives frozen BM25 statistics from the snapshot's
// live chunks.
func (s *Snapshot) computeStats() {
	stats := &corpusStats{docFreq: map[string]int{}}
	totalLength := 0
	for _, seg := range s.segments {
		for _, entry := range seg.chunks {
			if !s.live(entry) {
				continue
			}
			stats.chunkCount++
			totalLength += entry.length
			for term := range entry.terms {
				stats.docFreq[term]++
			}
		}
	}
	if stats.chunkCount > 0 {
		stats.avgLength = float64(totalLength) / float64(stats.chunkCount)
	}
	s.stats = stats
}
