package retrievit

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/retrievit/core"
)

// BatchResult summarizes an IndexBatch run.
type BatchResult struct {
	Indexed   int
	Failed    int
	Errors    map[int]error    // input position -> indexing error
	Documents []*core.Document // stored documents, nil at failed positions
}

// IndexBatch ingests documents concurrently on a worker pool. Failures
// are isolated per document: a document that fails to validate or
// embed is reported in the result and does not affect the others.
// Successfully indexed documents are staged and become searchable at
// the next Commit.
func (e *Engine) IndexBatch(ctx context.Context, docs []*core.Document) (*BatchResult, error) {
	result := &BatchResult{
		Errors:    make(map[int]error),
		Documents: make([]*core.Document, len(docs)),
	}
	if len(docs) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(e.batchWorkers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i, doc := range docs {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			stored, indexErr := e.Index(ctx, doc)
			mu.Lock()
			defer mu.Unlock()
			if indexErr != nil {
				result.Failed++
				result.Errors[i] = indexErr
				return
			}
			result.Indexed++
			result.Documents[i] = stored
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			result.Failed++
			result.Errors[i] = submitErr
			mu.Unlock()
		}
	}
	wg.Wait()

	if result.Failed > 0 {
		e.logger.Warn("batch indexing completed with failures",
			"indexed", result.Indexed, "failed", result.Failed)
	} else {
		e.logger.Debug("batch indexing completed", "indexed", result.Indexed)
	}
	return result, nil
}
