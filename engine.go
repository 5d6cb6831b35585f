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


// Package retrievit is an embeddable hybrid retrieval engine. It
// chunks ingested documents, indexes them both lexically (BM25) and
// semantically (embedding vectors), and answers queries by fusing the
// two signals. All state lives in a local BadgerDB store; no external
// services are required beyond an optional OpenAI-compatible
// embedding endpoint.
//
// Writes follow a staged lifecycle: Index stages chunks invisibly,
// Commit publishes them atomically to readers, OptimizeIndex compacts
// committed segments and purges deleted documents.
package retrievit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/retrievit/ai"
	"github.com/poiesic/retrievit/ai/openai"
	"github.com/poiesic/retrievit/analysis"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/index"
	"github.com/poiesic/retrievit/search"
	"github.com/poiesic/retrievit/storage"
	"github.com/poiesic/retrievit/storage/badger"
)

// Engine is the top-level facade over storage, indexing and search.
// All methods are safe for concurrent use.
type Engine struct {
	backend   *badger.Backend
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	indexRepo storage.IndexRepository
	manager   *index.Manager
	searcher  *search.Engine
	embedder  ai.Embedder
	chunker   *analysis.Chunker
	logger    *slog.Logger

	batchWorkers int
}

// Open creates an engine backed by a BadgerDB store at filePath and
// recovers any previously committed index state from its manifest.
func Open(filePath string, opts ...EngineOption) (*Engine, error) {
	// Apply options
	options := &engineOptions{
		aiConfig:     ai.DefaultConfig(), // Default if not provided
		logger:       slog.Default(),
		batchWorkers: DefaultBatchWorkers,
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create document repository
	documents, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create chunk repository
	chunks, err := badger.NewChunkRepository(backend)
	if err != nil {
		documents.Close()
		backend.Close()
		return nil, err
	}

	// Create index repository
	indexRepo, err := badger.NewIndexRepository(backend)
	if err != nil {
		chunks.Close()
		documents.Close()
		backend.Close()
		return nil, err
	}

	cleanup := func() {
		indexRepo.Close()
		chunks.Close()
		documents.Close()
		backend.Close()
	}

	// Create embedder with configured settings unless one was supplied
	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			cleanup()
			return nil, err
		}
	}

	manager, err := index.NewManager(chunks, indexRepo,
		index.WithLogger(options.logger),
		index.WithDimension(embedder.Dimension()))
	if err != nil {
		cleanup()
		return nil, err
	}
	if err := manager.Load(context.Background()); err != nil {
		cleanup()
		return nil, err
	}

	searchOpts := []search.Option{search.WithLogger(options.logger)}
	if options.cacheTTL > 0 {
		searchOpts = append(searchOpts, search.WithCache(search.NewCache(options.cacheTTL)))
	}
	searchOpts = append(searchOpts, options.searchOpts...)
	searcher, err := search.NewEngine(documents, manager, embedder, searchOpts...)
	if err != nil {
		cleanup()
		return nil, err
	}

	chunkerOpts := []analysis.ChunkerOption{}
	if options.maxTokens > 0 {
		chunkerOpts = append(chunkerOpts, analysis.WithMaxTokens(options.maxTokens))
	}

	return &Engine{
		backend:      backend,
		documents:    documents,
		chunks:       chunks,
		indexRepo:    indexRepo,
		manager:      manager,
		searcher:     searcher,
		embedder:     embedder,
		chunker:      analysis.NewChunker(chunkerOpts...),
		logger:       options.logger,
		batchWorkers: options.batchWorkers,
	}, nil
}

// Index ingests a document: stores it, chunks it, embeds every chunk
// and stages the chunks for the next commit. The stored document is
// returned with its assigned ID. The document is retrievable by ID
// immediately; it becomes searchable only after Commit.
func (e *Engine) Index(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	stored, err := e.documents.AddDocuments(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc = stored[0]

	chunks := e.chunker.Chunk(doc)
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		// Roll back the stored document so a failed ingest leaves no trace.
		if delErr := e.documents.DeleteDocuments(ctx, doc.Id); delErr != nil {
			e.logger.Error("error rolling back document after embedding failure",
				"documentID", doc.Id, "err", delErr)
		}
		return nil, fmt.Errorf("embedding document %d: %w", doc.Id, err)
	}
	if len(vectors) != len(chunks) {
		if delErr := e.documents.DeleteDocuments(ctx, doc.Id); delErr != nil {
			e.logger.Error("error rolling back document after embedding failure",
				"documentID", doc.Id, "err", delErr)
		}
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	refs := make([]*core.Chunk, len(chunks))
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		refs[i] = &chunks[i]
	}

	added, err := e.chunks.AddChunks(ctx, refs...)
	if err != nil {
		return nil, err
	}
	if err := e.manager.StageChunks(added...); err != nil {
		return nil, err
	}

	e.logger.Debug("indexed document", "documentID", doc.Id, "chunks", len(added))
	return doc, nil
}

// Search executes a hybrid query against the committed state and
// returns one page of ranked documents.
func (e *Engine) Search(ctx context.Context, query core.Query) (*core.SearchResult, error) {
	return e.searcher.Search(ctx, query)
}

// SearchWithMonitor is Search with stage callbacks for observability.
func (e *Engine) SearchWithMonitor(ctx context.Context, query core.Query, monitor search.SearchMonitor) (*core.SearchResult, error) {
	return e.searcher.SearchWithMonitor(ctx, query, monitor)
}

// SearchPaged executes a hybrid query and wraps the result with page
// navigation arithmetic.
func (e *Engine) SearchPaged(ctx context.Context, query core.Query) (*core.PagedResult, error) {
	result, err := e.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return core.NewPagedResult(result), nil
}

// GetDocument retrieves a document by ID. Unlike search visibility,
// retrieval by ID does not wait for a commit: a document is readable
// as soon as Index returns. Returns nil without error when the
// document does not exist.
func (e *Engine) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	doc, err := e.documents.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document and tombstones its chunks.
// Committed index entries are tombstoned at the next commit; the chunk
// records themselves stay in storage, hidden behind the tombstone,
// until OptimizeIndex purges them. The committed manifest therefore
// remains loadable across restarts. Returns false without error when
// the document does not exist.
func (e *Engine) DeleteDocument(ctx context.Context, id core.ID) (bool, error) {
	if err := e.documents.DeleteDocuments(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	e.manager.StageRemoval(id)

	e.logger.Debug("deleted document", "documentID", id)
	return true, nil
}

// Commit publishes all staged writes and removals atomically. Queries
// started before Commit keep their snapshot; queries started after
// see the new state. The result cache is invalidated. Committing with
// nothing staged is a no-op.
func (e *Engine) Commit(ctx context.Context) error {
	return e.manager.Commit(ctx)
}

// OptimizeIndex merges all committed segments into one and purges
// tombstoned documents. Search results are unchanged except where
// purged documents stop contributing to corpus statistics.
func (e *Engine) OptimizeIndex(ctx context.Context) error {
	return e.manager.Optimize(ctx)
}

// Statistics reports document, chunk and segment counts together with
// result cache effectiveness.
func (e *Engine) Statistics(ctx context.Context) (*core.Statistics, error) {
	docCount, err := e.documents.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	snap := e.manager.Snapshot()
	return &core.Statistics{
		DocumentCount: docCount,
		ChunkCount:    snap.ChunkCount(),
		SegmentCount:  snap.SegmentCount(),
		Cache:         e.searcher.Cache().Stats(),
	}, nil
}

// PendingChunks returns the number of staged chunks awaiting commit.
func (e *Engine) PendingChunks() int {
	return e.manager.PendingCount()
}

// Close releases all repositories and the storage backend. The engine
// must not be used afterwards.
func (e *Engine) Close() error {
	if err := e.indexRepo.Close(); err != nil {
		e.logger.Error("error closing index repository", "err", err)
		return err
	}
	if err := e.chunks.Close(); err != nil {
		e.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := e.documents.Close(); err != nil {
		e.logger.Error("error closing document repository", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
