package index

import (
	"math"
	"sort"

	"github.com/poiesic/retrievit/core"
)

// VectorMatch is a cosine-scored chunk.
type VectorMatch struct {
	ChunkId    core.ID
	DocumentId core.ID
	Similarity float64
}

// Normalize rescales a vector to unit length in place and returns it.
// Zero vectors are returned unchanged; their similarity against any
// query is 0.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := 1 / math.Sqrt(sum)
	for i, v := range vec {
		vec[i] = float32(float64(v) * inv)
	}
	return vec
}

// dot computes the inner product of two vectors of equal length. With
// unit vectors this is cosine similarity.
func dot(a, b []float32) float64 {
	var sum float64
	for i, v := range a {
		sum += float64(v) * float64(b[i])
	}
	return sum
}

// SearchVector scans all live chunks and returns the topK most similar
// to the query vector by cosine similarity. The query vector must
// already be normalized. Results are ordered by descending similarity;
// equal similarities keep chunk insertion order. topK <= 0 returns
// nil.
func (s *Snapshot) SearchVector(query []float32, topK int) []VectorMatch {
	if topK <= 0 || len(query) == 0 {
		return nil
	}

	matches := make([]VectorMatch, 0, s.stats.chunkCount)
	for _, seg := range s.segments {
		for _, entry := range seg.chunks {
			if !s.live(entry) {
				continue
			}
			if len(entry.vector) != len(query) {
				continue
			}
			matches = append(matches, VectorMatch{
				ChunkId:    entry.id,
				DocumentId: entry.document,
				Similarity: dot(query, entry.vector),
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
