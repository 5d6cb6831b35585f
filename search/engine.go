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


package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/poiesic/retrievit/ai"
	"github.com/poiesic/retrievit/analysis"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/index"
	"github.com/poiesic/retrievit/storage"
)

// Engine defaults.
const (
	DefaultCandidateLimit  = 100
	DefaultPageSize        = 10
	DefaultVectorThreshold = 0.60
	DefaultLexicalWeight   = 0.5
	DefaultVectorWeight    = 0.5
)

// Engine executes hybrid lexical and semantic queries over the
// committed index snapshot.
type Engine struct {
	documents storage.DocumentRepository
	manager   *index.Manager
	embedder  ai.Embedder
	cache     *Cache
	logger    *slog.Logger

	candidateLimit  int
	vectorThreshold float64
	lexicalWeight   float64
	vectorWeight    float64
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithCache replaces the default result cache.
func WithCache(cache *Cache) Option {
	return func(e *Engine) error {
		e.cache = cache
		return nil
	}
}

// WithCandidateLimit sets the default number of candidate chunks
// gathered per signal when the query does not specify a limit.
func WithCandidateLimit(limit int) Option {
	return func(e *Engine) error {
		e.candidateLimit = limit
		return nil
	}
}

// WithVectorThreshold sets the minimum cosine similarity for a chunk
// to count as a vector match.
func WithVectorThreshold(threshold float64) Option {
	return func(e *Engine) error {
		e.vectorThreshold = threshold
		return nil
	}
}

// WithWeights sets the fusion weights for the lexical and vector
// signals.
func WithWeights(lexical, vector float64) Option {
	return func(e *Engine) error {
		e.lexicalWeight = lexical
		e.vectorWeight = vector
		return nil
	}
}

// NewEngine creates a search engine over the given repositories and
// index manager. The engine registers a commit hook that drops the
// result cache whenever committed state changes.
func NewEngine(
	documents storage.DocumentRepository,
	manager *index.Manager,
	embedder ai.Embedder,
	opts ...Option,
) (*Engine, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if manager == nil {
		return nil, ErrIndexManagerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		documents:       documents,
		manager:         manager,
		embedder:        embedder,
		cache:           NewCache(DefaultCacheTTL),
		logger:          slog.Default(),
		candidateLimit:  DefaultCandidateLimit,
		vectorThreshold: DefaultVectorThreshold,
		lexicalWeight:   DefaultLexicalWeight,
		vectorWeight:    DefaultVectorWeight,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	manager.OnCommit(e.cache.InvalidateAll)
	return e, nil
}

// Cache exposes the engine's result cache for statistics.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Search executes a hybrid query and returns one page of ranked
// documents.
func (e *Engine) Search(ctx context.Context, query core.Query) (*core.SearchResult, error) {
	return e.SearchWithMonitor(ctx, query, nil)
}

// SearchWithMonitor executes a hybrid query with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (e *Engine) SearchWithMonitor(ctx context.Context, query core.Query, monitor SearchMonitor) (*core.SearchResult, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if query.PageSize == 0 {
		query.PageSize = DefaultPageSize
	}
	if query.Limit == 0 {
		query.Limit = e.candidateLimit
	}
	if err := core.ValidateQuery(&query); err != nil {
		return nil, err
	}

	monitor.Start(query)

	if cached := e.cache.Get(query); cached != nil {
		monitor.CacheHit(cached)
		return cached, nil
	}

	// Read before the snapshot is taken so a commit while the search is
	// in flight outdates the result at Put time.
	gen := e.cache.Generation()

	if query.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, query.Timeout)
		defer cancel()
	}

	type outcome struct {
		result *core.SearchResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := e.execute(ctx, query, monitor)
		done <- outcome{result, err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrQueryTimeout
		}
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if !out.result.LexicalOnly {
			e.cache.Put(query, out.result, gen)
		}
		monitor.Finish(out.result)
		return out.result, nil
	}
}

func (e *Engine) execute(ctx context.Context, query core.Query, monitor SearchMonitor) (*core.SearchResult, error) {
	start := time.Now()
	snap := e.manager.Snapshot()
	terms := analysis.Tokenize(query.Text)

	result := &core.SearchResult{
		Documents: []core.ScoredDocument{},
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if len(terms) == 0 {
		result.QueryTimeMs = time.Since(start).Milliseconds()
		return result, nil
	}

	// Run both signals against the same snapshot concurrently.
	var (
		wg       sync.WaitGroup
		lexical  []index.LexicalMatch
		vector   []index.VectorMatch
		embedErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		lexical = snap.SearchLexical(terms, e.manager.Params())
		if len(lexical) > query.Limit {
			lexical = lexical[:query.Limit]
		}
	}()
	go func() {
		defer wg.Done()
		embedding, err := e.embedder.EmbedText(ctx, query.Text)
		if err != nil {
			embedErr = err
			return
		}
		vector = snap.SearchVector(normalizeQuery(embedding), query.Limit)
	}()
	wg.Wait()

	if embedErr != nil {
		// Degrade to lexical-only rather than failing the query.
		e.logger.Warn("embedding unavailable, serving lexical-only results",
			"query", query.Text, "err", embedErr)
		monitor.EmbeddingUnavailable(embedErr)
		result.LexicalOnly = true
	}
	monitor.AfterLexicalSearch(lexical)
	monitor.AfterVectorSearch(vector)

	// Rescale both signals to [0, 1] and fuse per chunk, then collapse
	// to documents keeping each document's best chunk score.
	chunkScores := make(map[core.ID]float64)
	chunkDocs := make(map[core.ID]core.ID)

	var maxLexical float64
	for _, m := range lexical {
		if m.Score > maxLexical {
			maxLexical = m.Score
		}
	}
	if maxLexical > 0 {
		for _, m := range lexical {
			chunkScores[m.ChunkId] += e.lexicalWeight * (m.Score / maxLexical)
			chunkDocs[m.ChunkId] = m.DocumentId
		}
	}
	for _, m := range vector {
		if m.Similarity < e.vectorThreshold {
			continue
		}
		chunkScores[m.ChunkId] += e.vectorWeight * ((m.Similarity + 1) / 2)
		chunkDocs[m.ChunkId] = m.DocumentId
	}

	documentScores := make(map[core.ID]float64)
	for chunkID, score := range chunkScores {
		docID := chunkDocs[chunkID]
		if score > documentScores[docID] {
			documentScores[docID] = score
		}
	}
	monitor.AfterFusion(documentScores)

	if len(documentScores) == 0 {
		result.QueryTimeMs = time.Since(start).Milliseconds()
		return result, nil
	}

	ids := make([]core.ID, 0, len(documentScores))
	for id := range documentScores {
		ids = append(ids, id)
	}
	documents, err := e.documents.GetDocuments(ctx, ids...)
	if err != nil {
		e.logger.Error("error retrieving documents", "documentCount", len(ids), "err", err)
		return nil, err
	}
	monitor.AfterDocumentRetrieval(documents)

	scored := make([]core.ScoredDocument, 0, len(documents))
	for _, doc := range documents {
		if doc == nil || !matchesFilter(doc, query.Filter) {
			continue
		}
		scored = append(scored, core.ScoredDocument{
			Document: doc,
			Score:    documentScores[doc.Id],
		})
	}

	// Sort by score descending; equal scores rank the earliest
	// ingested document first.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if !scored[i].Document.CreatedAt.Equal(scored[j].Document.CreatedAt) {
			return scored[i].Document.CreatedAt.Before(scored[j].Document.CreatedAt)
		}
		return scored[i].Document.Id < scored[j].Document.Id
	})

	result.TotalHits = len(scored)
	offset := query.Page * query.PageSize
	if offset < len(scored) {
		end := offset + query.PageSize
		if end > len(scored) {
			end = len(scored)
		}
		result.Documents = scored[offset:end]
		result.HasMore = end < len(scored)
	}
	result.QueryTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

// matchesFilter reports whether a document's metadata satisfies every
// equality pair of the filter. A nil or empty filter matches
// everything.
func matchesFilter(doc *core.Document, filter map[string]string) bool {
	for key, want := range filter {
		if doc.Metadata[key] != want {
			return false
		}
	}
	return true
}

// normalizeQuery rescales a query embedding to unit length without
// mutating the caller's slice.
func normalizeQuery(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return index.Normalize(out)
}
