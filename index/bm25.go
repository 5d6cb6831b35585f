package index

import (
	"math"
	"sort"

	"github.com/poiesic/retrievit/core"
)

// Default BM25 tuning parameters.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// BM25Params tunes term-frequency saturation (K1) and length
// normalization (B).
type BM25Params struct {
	K1 float64
	B  float64
}

// DefaultBM25Params returns the standard parameterization.
func DefaultBM25Params() BM25Params {
	return BM25Params{K1: DefaultK1, B: DefaultB}
}

// LexicalMatch is a BM25-scored chunk.
type LexicalMatch struct {
	ChunkId    core.ID
	DocumentId core.ID
	Score      float64
}

// SearchLexical scores all live chunks containing at least one query
// term with BM25 against the snapshot's frozen corpus statistics.
// Results are ordered by descending score; equal scores keep chunk
// insertion order (first-indexed wins). Terms absent from the
// committed corpus contribute nothing. An empty term list returns an
// empty result.
func (s *Snapshot) SearchLexical(terms []string, params BM25Params) []LexicalMatch {
	if len(terms) == 0 || s.stats.chunkCount == 0 {
		return nil
	}

	unique := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		unique[term] = struct{}{}
	}

	scores := make(map[*chunkEntry]float64)
	for term := range unique {
		df := s.stats.docFreq[term]
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (float64(s.stats.chunkCount)-float64(df)+0.5)/(float64(df)+0.5))
		for _, seg := range s.segments {
			for _, p := range seg.postings[term] {
				if !s.live(p.chunk) {
					continue
				}
				tf := float64(p.freq)
				norm := params.K1 * (1 - params.B + params.B*float64(p.chunk.length)/s.stats.avgLength)
				scores[p.chunk] += idf * (tf * (params.K1 + 1)) / (tf + norm)
			}
		}
	}

	if len(scores) == 0 {
		return nil
	}

	// Collect in insertion order so the stable sort breaks ties by
	// first-indexed chunk.
	matches := make([]LexicalMatch, 0, len(scores))
	for _, seg := range s.segments {
		for _, entry := range seg.chunks {
			if score, ok := scores[entry]; ok {
				matches = append(matches, LexicalMatch{
					ChunkId:    entry.id,
					DocumentId: entry.document,
					Score:      score,
				})
				delete(scores, entry)
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
