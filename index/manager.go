// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/retrievit/analysis"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/storage"
)

// stagedChunk is a pending write: a chunk with its derived term
// frequencies and normalized embedding, held until the next commit.
type stagedChunk struct {
	chunk  *core.Chunk
	terms  map[string]uint32
	vector []float32
}

// Manager owns the index lifecycle: staging, commit, compaction and
// restart recovery. It publishes immutable snapshots through an atomic
// pointer so readers never contend with writers.
type Manager struct {
	chunks    storage.ChunkRepository
	indexRepo storage.IndexRepository
	logger    *slog.Logger
	params    BM25Params
	dimension int

	mu                sync.Mutex // guards pending state
	pending           []*stagedChunk
	pendingTombstones map[core.ID]struct{}

	commitMu sync.Mutex // serializes Commit and Optimize
	current  atomic.Pointer[Snapshot]

	hookMu   sync.Mutex
	onCommit []func()
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithDimension fixes the expected embedding dimension. Chunks staged
// with a different dimension are rejected.
func WithDimension(dim int) ManagerOption {
	return func(m *Manager) {
		m.dimension = dim
	}
}

// WithBM25Params overrides the default BM25 parameters.
func WithBM25Params(params BM25Params) ManagerOption {
	return func(m *Manager) {
		m.params = params
	}
}

// NewManager creates an index manager over the given repositories. The
// manager starts empty; call Load to recover committed state from
// storage.
func NewManager(chunks storage.ChunkRepository, indexRepo storage.IndexRepository, opts ...ManagerOption) (*Manager, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if indexRepo == nil {
		return nil, ErrIndexRepositoryRequired
	}

	m := &Manager{
		chunks:            chunks,
		indexRepo:         indexRepo,
		logger:            slog.Default(),
		params:            DefaultBM25Params(),
		pendingTombstones: map[core.ID]struct{}{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.current.Store(emptySnapshot())
	return m, nil
}

// Params returns the BM25 parameters used for lexical scoring.
func (m *Manager) Params() BM25Params {
	return m.params
}

// Snapshot returns the current committed view. The returned snapshot
// is immutable and remains valid across concurrent commits.
func (m *Manager) Snapshot() *Snapshot {
	return m.current.Load()
}

// OnCommit registers a hook invoked after every successful commit or
// optimize. Hooks run synchronously on the committing goroutine.
func (m *Manager) OnCommit(fn func()) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.onCommit = append(m.onCommit, fn)
}

func (m *Manager) fireCommitHooks() {
	m.hookMu.Lock()
	hooks := make([]func(), len(m.onCommit))
	copy(hooks, m.onCommit)
	m.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// StageChunks adds chunks to the pending buffer. Term frequencies are
// derived from the chunk text and embeddings are normalized to unit
// length. Staged chunks are invisible to readers until Commit.
func (m *Manager) StageChunks(chunks ...*core.Chunk) error {
	staged := make([]*stagedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if m.dimension > 0 && len(chunk.Embedding) > 0 && len(chunk.Embedding) != m.dimension {
			return fmt.Errorf("chunk %d has dimension %d, want %d: %w",
				chunk.Id, len(chunk.Embedding), m.dimension, ErrDimensionMismatch)
		}
		terms := make(map[string]uint32)
		for _, token := range analysis.Tokenize(chunk.Text) {
			terms[token]++
		}
		vector := make([]float32, len(chunk.Embedding))
		copy(vector, chunk.Embedding)
		staged = append(staged, &stagedChunk{
			chunk:  chunk,
			terms:  terms,
			vector: Normalize(vector),
		})
	}

	m.mu.Lock()
	m.pending = append(m.pending, staged...)
	m.mu.Unlock()
	return nil
}

// StageRemoval marks a document deleted. Pending chunks of the
// document are dropped immediately; committed chunks are tombstoned at
// the next commit and purged by Optimize.
func (m *Manager) StageRemoval(documentID core.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.pending[:0]
	for _, sc := range m.pending {
		if sc.chunk.DocumentId != documentID {
			kept = append(kept, sc)
		}
	}
	m.pending = kept
	m.pendingTombstones[documentID] = struct{}{}
}

// PendingCount returns the number of staged chunks awaiting commit.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Commit promotes the pending buffer into a new immutable segment,
// persists postings and the manifest, and publishes a fresh snapshot.
// A commit with nothing pending is a no-op and does not publish.
func (m *Manager) Commit(ctx context.Context) error {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.mu.Lock()
	staged := m.pending
	tombstones := m.pendingTombstones
	m.pending = nil
	m.pendingTombstones = map[core.ID]struct{}{}
	m.mu.Unlock()

	if len(staged) == 0 && len(tombstones) == 0 {
		return nil
	}

	restore := func() {
		m.mu.Lock()
		m.pending = append(staged, m.pending...)
		for id := range tombstones {
			m.pendingTombstones[id] = struct{}{}
		}
		m.mu.Unlock()
	}

	old := m.current.Load()
	next := &Snapshot{
		segments:   make([]*Segment, len(old.segments)),
		tombstones: make(map[core.ID]struct{}, len(old.tombstones)+len(tombstones)),
	}
	copy(next.segments, old.segments)
	for id := range old.tombstones {
		next.tombstones[id] = struct{}{}
	}
	for id := range tombstones {
		next.tombstones[id] = struct{}{}
	}

	if len(staged) > 0 {
		segID, err := m.indexRepo.NextSegmentID(ctx)
		if err != nil {
			restore()
			return fmt.Errorf("allocating segment id: %w", err)
		}
		for _, sc := range staged {
			if err := m.indexRepo.SavePostings(ctx, sc.chunk.Id, sc.terms); err != nil {
				restore()
				return fmt.Errorf("persisting postings for chunk %d: %w", sc.chunk.Id, err)
			}
		}
		next.segments = append(next.segments, newSegment(segID, time.Now().UTC(), staged))
	}

	next.computeStats()

	if err := m.indexRepo.SaveManifest(ctx, manifestFromSnapshot(next)); err != nil {
		restore()
		return fmt.Errorf("persisting manifest: %w", err)
	}

	if !m.current.CompareAndSwap(old, next) {
		return ErrCommitConflict
	}

	m.logger.Debug("committed index segment",
		"segments", next.SegmentCount(),
		"chunks", next.ChunkCount(),
		"tombstones", len(next.tombstones))

	m.fireCommitHooks()
	return nil
}

// Optimize merges all committed segments into one, purging tombstoned
// chunks together with their persisted postings and chunk records.
// Corpus statistics are recomputed over the surviving chunks.
func (m *Manager) Optimize(ctx context.Context) error {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	old := m.current.Load()
	if len(old.segments) == 0 && len(old.tombstones) == 0 {
		return nil
	}

	var live []*chunkEntry
	var purged []core.ID
	for _, seg := range old.segments {
		for _, entry := range seg.chunks {
			if old.live(entry) {
				live = append(live, entry)
			} else {
				purged = append(purged, entry.id)
			}
		}
	}

	next := &Snapshot{tombstones: map[core.ID]struct{}{}}
	if len(live) > 0 {
		segID, err := m.indexRepo.NextSegmentID(ctx)
		if err != nil {
			return fmt.Errorf("allocating segment id: %w", err)
		}
		merged := &Segment{
			id:        segID,
			createdAt: time.Now().UTC(),
			postings:  make(map[string][]posting),
		}
		for _, entry := range live {
			merged.addEntry(entry)
		}
		next.segments = []*Segment{merged}
	}
	next.computeStats()

	if err := m.indexRepo.SaveManifest(ctx, manifestFromSnapshot(next)); err != nil {
		return fmt.Errorf("persisting manifest: %w", err)
	}
	if len(purged) > 0 {
		if err := m.indexRepo.DeletePostings(ctx, purged...); err != nil {
			return fmt.Errorf("purging postings: %w", err)
		}
	}
	for id := range old.tombstones {
		if _, err := m.chunks.DeleteChunksByDocument(ctx, id); err != nil {
			return fmt.Errorf("purging chunks for document %d: %w", id, err)
		}
	}

	if !m.current.CompareAndSwap(old, next) {
		return ErrCommitConflict
	}

	m.logger.Info("optimized index",
		"segments_before", len(old.segments),
		"chunks", next.ChunkCount(),
		"purged", len(purged))

	m.fireCommitHooks()
	return nil
}

// Load rebuilds the committed snapshot from the persisted manifest.
// Embeddings are read back from chunk storage, so no re-embedding
// happens. A missing manifest leaves the index empty. Chunks or
// postings named by the manifest but absent from storage indicate
// corruption.
func (m *Manager) Load(ctx context.Context) error {
	manifest, err := m.indexRepo.LoadManifest(ctx)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	if manifest == nil {
		m.current.Store(emptySnapshot())
		return nil
	}

	snap := &Snapshot{
		segments:   make([]*Segment, 0, len(manifest.Segments)),
		tombstones: make(map[core.ID]struct{}, len(manifest.Tombstones)),
	}
	for _, id := range manifest.Tombstones {
		snap.tombstones[id] = struct{}{}
	}

	for _, info := range manifest.Segments {
		chunks, err := m.chunks.GetChunks(ctx, info.ChunkIds...)
		if err != nil {
			return fmt.Errorf("loading chunks for segment %d: %w", info.Id, err)
		}
		if len(chunks) != len(info.ChunkIds) {
			return fmt.Errorf("segment %d names %d chunks but %d found: %w",
				info.Id, len(info.ChunkIds), len(chunks), ErrIndexCorruption)
		}

		seg := &Segment{
			id:        info.Id,
			createdAt: info.CreatedAt,
			chunks:    make([]*chunkEntry, 0, len(chunks)),
			postings:  make(map[string][]posting),
		}
		for _, chunk := range chunks {
			terms, err := m.indexRepo.GetPostings(ctx, chunk.Id)
			if err != nil {
				if err == storage.ErrNotFound {
					return fmt.Errorf("postings missing for chunk %d: %w", chunk.Id, ErrIndexCorruption)
				}
				return fmt.Errorf("loading postings for chunk %d: %w", chunk.Id, err)
			}
			vector := make([]float32, len(chunk.Embedding))
			copy(vector, chunk.Embedding)
			seg.addEntry(&chunkEntry{
				id:       chunk.Id,
				document: chunk.DocumentId,
				length:   chunk.TokenCount,
				terms:    terms,
				vector:   Normalize(vector),
			})
		}
		snap.segments = append(snap.segments, seg)
	}

	snap.computeStats()
	m.current.Store(snap)

	m.logger.Info("recovered index from manifest",
		"segments", snap.SegmentCount(),
		"chunks", snap.ChunkCount(),
		"tombstones", len(snap.tombstones))
	return nil
}

// manifestFromSnapshot renders the snapshot's durable form.
func manifestFromSnapshot(s *Snapshot) *core.Manifest {
	manifest := &core.Manifest{
		Segments:   make([]core.SegmentInfo, 0, len(s.segments)),
		Tombstones: make([]core.ID, 0, len(s.tombstones)),
	}
	for _, seg := range s.segments {
		manifest.Segments = append(manifest.Segments, seg.Info())
	}
	for id := range s.tombstones {
		manifest.Tombstones = append(manifest.Tombstones, id)
	}
	return manifest
}
