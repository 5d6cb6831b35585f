package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/retrievit/ai/mock"
	"github.com/poiesic/retrievit/analysis"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/index"
	"github.com/poiesic/retrievit/storage"
	"github.com/poiesic/retrievit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	engine   *Engine
	manager  *index.Manager
	docs     storage.DocumentRepository
	chunks   storage.ChunkRepository
	embedder *mock.Embedder
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	docRepo, chunkRepo, indexRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		indexRepo.Close()
		chunkRepo.Close()
		docRepo.Close()
		backend.Close()
	})

	manager, err := index.NewManager(chunkRepo, indexRepo)
	require.NoError(t, err)

	embedder := mock.NewEmbedder()
	engine, err := NewEngine(docRepo, manager, embedder, opts...)
	require.NoError(t, err)

	return &testEnv{
		engine:   engine,
		manager:  manager,
		docs:     docRepo,
		chunks:   chunkRepo,
		embedder: embedder,
	}
}

// indexDoc stores a document with a single chunk and stages it. The
// caller decides when to commit.
func (env *testEnv) indexDoc(t *testing.T, doc *core.Document) *core.Document {
	t.Helper()
	ctx := context.Background()

	stored, err := env.docs.AddDocuments(ctx, doc)
	require.NoError(t, err)
	d := stored[0]

	vec, err := env.embedder.EmbedText(ctx, d.Content)
	require.NoError(t, err)
	chunk := &core.Chunk{
		DocumentId: d.Id,
		Text:       d.Content,
		TokenCount: analysis.TokenCount(d.Content),
		Embedding:  vec,
	}
	added, err := env.chunks.AddChunks(ctx, chunk)
	require.NoError(t, err)
	require.NoError(t, env.manager.StageChunks(added...))
	return d
}

func TestNewEngine(t *testing.T) {
	env := newTestEnv(t)

	t.Run("nil document repository", func(t *testing.T) {
		_, err := NewEngine(nil, env.manager, env.embedder)
		assert.Equal(t, ErrDocumentRepositoryRequired, err)
	})

	t.Run("nil manager", func(t *testing.T) {
		_, err := NewEngine(env.docs, nil, env.embedder)
		assert.Equal(t, ErrIndexManagerRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewEngine(env.docs, env.manager, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})
}

func TestSearch_EmptyIndex(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.engine.Search(context.Background(), core.Query{Text: "anything"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalHits)
	assert.Empty(t, result.Documents)
}

func TestSearch_EmptyQueryText(t *testing.T) {
	env := newTestEnv(t)
	env.indexDoc(t, &core.Document{Content: "some content"})
	require.NoError(t, env.manager.Commit(context.Background()))

	result, err := env.engine.Search(context.Background(), core.Query{Text: "   "})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalHits)
	assert.Empty(t, result.Documents)
}

func TestSearch_InvalidQuery(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Search(context.Background(), core.Query{Text: "q", Page: -1})
	assert.ErrorIs(t, err, core.ErrInvalidQuery)
}

func TestSearch_FindsCommittedDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.indexDoc(t, &core.Document{Title: "fox", Content: "the quick brown fox jumps"})
	require.NoError(t, env.manager.Commit(ctx))

	result, err := env.engine.Search(ctx, core.Query{Text: "quick brown fox"})
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalHits)
	assert.Equal(t, doc.Id, result.Documents[0].Document.Id)
	assert.Greater(t, result.Documents[0].Score, 0.0)
	assert.False(t, result.LexicalOnly)
}

func TestSearch_StagedDocumentInvisible(t *testing.T) {
	env := newTestEnv(t)

	env.indexDoc(t, &core.Document{Content: "uncommitted fox"})

	result, err := env.engine.Search(context.Background(), core.Query{Text: "fox"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalHits)
}

func TestSearch_Pagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 97; i++ {
		env.indexDoc(t, &core.Document{
			Title:   fmt.Sprintf("doc %d", i),
			Content: fmt.Sprintf("fox sighting number %d", i),
		})
	}
	require.NoError(t, env.manager.Commit(ctx))

	firstPage, err := env.engine.Search(ctx, core.Query{Text: "fox", PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 97, firstPage.TotalHits)
	assert.Len(t, firstPage.Documents, 10)
	assert.True(t, firstPage.HasMore)

	lastPage, err := env.engine.Search(ctx, core.Query{Text: "fox", Page: 9, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 97, lastPage.TotalHits)
	assert.Len(t, lastPage.Documents, 7)
	assert.False(t, lastPage.HasMore)

	beyond, err := env.engine.Search(ctx, core.Query{Text: "fox", Page: 10, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond.Documents)
	assert.False(t, beyond.HasMore)

	// No document appears on two pages.
	seen := map[core.ID]bool{}
	for page := 0; page < 10; page++ {
		result, err := env.engine.Search(ctx, core.Query{Text: "fox", Page: page, PageSize: 10})
		require.NoError(t, err)
		for _, hit := range result.Documents {
			assert.False(t, seen[hit.Document.Id])
			seen[hit.Document.Id] = true
		}
	}
	assert.Len(t, seen, 97)
}

func TestSearch_MetadataFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	docs := env.indexDoc(t, &core.Document{
		Content:  "fox in the documentation",
		Metadata: map[string]string{"source": "docs"},
	})
	env.indexDoc(t, &core.Document{
		Content:  "fox in the wiki",
		Metadata: map[string]string{"source": "wiki"},
	})
	require.NoError(t, env.manager.Commit(ctx))

	result, err := env.engine.Search(ctx, core.Query{
		Text:   "fox",
		Filter: map[string]string{"source": "docs"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalHits)
	assert.Equal(t, docs.Id, result.Documents[0].Document.Id)
}

func TestSearch_LexicalOnlyDegrade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.indexDoc(t, &core.Document{Content: "resilient fox"})
	require.NoError(t, env.manager.Commit(ctx))

	env.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	result, err := env.engine.Search(ctx, core.Query{Text: "fox"})
	require.NoError(t, err)
	assert.True(t, result.LexicalOnly)
	require.Equal(t, 1, result.TotalHits)
	assert.Equal(t, doc.Id, result.Documents[0].Document.Id)

	// Degraded results are not cached.
	assert.Equal(t, 0, env.engine.Cache().Stats().Entries)
}

func TestSearch_CacheHit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.indexDoc(t, &core.Document{Content: "cached fox"})
	require.NoError(t, env.manager.Commit(ctx))

	query := core.Query{Text: "fox"}
	first, err := env.engine.Search(ctx, query)
	require.NoError(t, err)

	calls := env.embedder.CallCount()
	second, err := env.engine.Search(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, calls, env.embedder.CallCount())
	assert.Equal(t, uint64(1), env.engine.Cache().Stats().Hits)
}

func TestSearch_CacheInvalidatedOnCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.indexDoc(t, &core.Document{Content: "first fox"})
	require.NoError(t, env.manager.Commit(ctx))

	query := core.Query{Text: "fox"}
	first, err := env.engine.Search(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalHits)

	env.indexDoc(t, &core.Document{Content: "second fox"})
	require.NoError(t, env.manager.Commit(ctx))

	second, err := env.engine.Search(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 2, second.TotalHits)
}

func TestSearch_InFlightResultNotCachedAcrossCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.indexDoc(t, &core.Document{Content: "racing fox one"})
	require.NoError(t, env.manager.Commit(ctx))

	plain := mock.NewEmbedder()
	entered := make(chan struct{})
	gate := make(chan struct{})
	env.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		close(entered)
		<-gate
		return plain.EmbedText(ctx, text)
	}

	query := core.Query{Text: "fox"}
	type searchOut struct {
		result *core.SearchResult
		err    error
	}
	done := make(chan searchOut, 1)
	go func() {
		result, err := env.engine.Search(ctx, query)
		done <- searchOut{result, err}
	}()
	<-entered

	// Commit a second matching document while the first search is held
	// inside the embedder.
	env.embedder.EmbedTextFunc = nil
	env.indexDoc(t, &core.Document{Content: "racing fox two"})
	require.NoError(t, env.manager.Commit(ctx))

	close(gate)
	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, 1, out.result.TotalHits)

	// The held search saw pre-commit state; its result must not be
	// served to queries running against the new commit.
	fresh, err := env.engine.Search(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalHits)
}

func TestSearch_Timeout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.indexDoc(t, &core.Document{Content: "slow fox"})
	require.NoError(t, env.manager.Commit(ctx))

	env.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		time.Sleep(500 * time.Millisecond)
		return nil, ctx.Err()
	}

	_, err := env.engine.Search(ctx, core.Query{
		Text:    "fox",
		Timeout: 10 * time.Millisecond,
	})
	assert.ErrorIs(t, err, ErrQueryTimeout)
}

func TestSearch_TieBreakEarliestDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	older := env.indexDoc(t, &core.Document{
		Content:   "twin fox content",
		CreatedAt: time.Now().Add(-time.Hour).UTC(),
	})
	newer := env.indexDoc(t, &core.Document{
		Content:   "twin fox content",
		CreatedAt: time.Now().Add(-time.Minute).UTC(),
	})
	require.NoError(t, env.manager.Commit(ctx))

	result, err := env.engine.Search(ctx, core.Query{Text: "twin fox content"})
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalHits)
	assert.Equal(t, older.Id, result.Documents[0].Document.Id)
	assert.Equal(t, newer.Id, result.Documents[1].Document.Id)
}

func TestSearchWithMonitor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.indexDoc(t, &core.Document{Content: "observed fox"})
	require.NoError(t, env.manager.Commit(ctx))

	monitor := &recordingMonitor{}
	_, err := env.engine.SearchWithMonitor(ctx, core.Query{Text: "fox"}, monitor)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "lexical", "vector", "fusion", "retrieval", "finish"}, monitor.stages)
}

type recordingMonitor struct {
	noopMonitor
	stages []string
}

func (r *recordingMonitor) Start(_ core.Query)                        { r.stages = append(r.stages, "start") }
func (r *recordingMonitor) AfterLexicalSearch(_ []index.LexicalMatch) { r.stages = append(r.stages, "lexical") }
func (r *recordingMonitor) AfterVectorSearch(_ []index.VectorMatch)   { r.stages = append(r.stages, "vector") }
func (r *recordingMonitor) AfterFusion(_ map[core.ID]float64)         { r.stages = append(r.stages, "fusion") }
func (r *recordingMonitor) AfterDocumentRetrieval(_ []*core.Document) { r.stages = append(r.stages, "retrieval") }
func (r *recordingMonitor) Finish(_ *core.SearchResult)               { r.stages = append(r.stages, "finish") }
