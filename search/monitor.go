package search

import (
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/index"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query core.Query)
	CacheHit(result *core.SearchResult)
	AfterLexicalSearch(matches []index.LexicalMatch)
	AfterVectorSearch(matches []index.VectorMatch)
	EmbeddingUnavailable(err error)
	AfterFusion(documentScores map[core.ID]float64)
	AfterDocumentRetrieval(documents []*core.Document)
	Finish(result *core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.Query)                        {}
func (n *noopMonitor) CacheHit(_ *core.SearchResult)             {}
func (n *noopMonitor) AfterLexicalSearch(_ []index.LexicalMatch) {}
func (n *noopMonitor) AfterVectorSearch(_ []index.VectorMatch)   {}
func (n *noopMonitor) EmbeddingUnavailable(_ error)              {}
func (n *noopMonitor) AfterFusion(_ map[core.ID]float64)         {}
func (n *noopMonitor) AfterDocumentRetrieval(_ []*core.Document) {}
func (n *noopMonitor) Finish(_ *core.SearchResult)               {}
