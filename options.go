package retrievit

import (
	"log/slog"
	"time"

	"github.com/poiesic/retrievit/ai"
	"github.com/poiesic/retrievit/search"
)

// Pool and chunking defaults.
const (
	DefaultBatchWorkers = 4
)

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig     *ai.Config
	embedder     ai.Embedder
	logger       *slog.Logger
	inMemory     bool
	maxTokens    int
	cacheTTL     time.Duration
	batchWorkers int
	searchOpts   []search.Option
}

// WithAIConfig sets the embedding provider configuration used when no
// explicit embedder is supplied.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithEmbedder supplies an embedder directly, bypassing the OpenAI
// provider. Useful for tests and custom providers.
func WithEmbedder(embedder ai.Embedder) EngineOption {
	return func(o *engineOptions) {
		o.embedder = embedder
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// WithInMemory opens the storage backend in memory, discarding all
// state on Close. Useful for tests and ephemeral indexes.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithMaxChunkTokens sets the chunker's token bound per chunk.
func WithMaxChunkTokens(max int) EngineOption {
	return func(o *engineOptions) {
		o.maxTokens = max
	}
}

// WithCacheTTL sets the result cache TTL.
func WithCacheTTL(ttl time.Duration) EngineOption {
	return func(o *engineOptions) {
		o.cacheTTL = ttl
	}
}

// WithBatchWorkers sets the worker pool size for IndexBatch.
func WithBatchWorkers(workers int) EngineOption {
	return func(o *engineOptions) {
		if workers < 1 {
			workers = 1
		}
		o.batchWorkers = workers
	}
}

// WithSearchOptions forwards options to the underlying search engine.
func WithSearchOptions(opts ...search.Option) EngineOption {
	return func(o *engineOptions) {
		o.searchOpts = append(o.searchOpts, opts...)
	}
}
