package analysis

import (
	"strings"
	"testing"

	"github.com/poiesic/retrievit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_ShortDocumentSingleChunk(t *testing.T) {
	chunker := NewChunker()
	doc := &core.Document{Id: 1, Content: "A short document. It fits in one chunk."}

	chunks := chunker.Chunk(doc)
	require.Len(t, chunks, 1)
	assert.Equal(t, core.ID(1), chunks[0].DocumentId)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, "A short document. It fits in one chunk.", chunks[0].Text)
	assert.Equal(t, TokenCount(chunks[0].Text), chunks[0].TokenCount)
}

func TestChunk_EmptyContent(t *testing.T) {
	chunker := NewChunker()
	assert.Empty(t, chunker.Chunk(&core.Document{Id: 1, Content: "   \n  "}))
}

func TestChunk_RespectsTokenBound(t *testing.T) {
	chunker := NewChunker(WithMaxTokens(10))

	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString("one two three four five. ")
	}
	doc := &core.Document{Id: 2, Content: sb.String()}

	chunks := chunker.Chunk(doc)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, 10)
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestChunk_OrdinalsSequential(t *testing.T) {
	chunker := NewChunker(WithMaxTokens(5))
	doc := &core.Document{
		Id:      3,
		Content: "First sentence here. Second sentence here. Third sentence here. Fourth sentence here.",
	}

	chunks := chunker.Chunk(doc)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Ordinal)
		assert.Equal(t, core.ID(3), chunk.DocumentId)
	}
}

func TestChunk_CutsAtSentenceBoundaries(t *testing.T) {
	chunker := NewChunker(WithMaxTokens(6))
	doc := &core.Document{
		Id:      4,
		Content: "The fox runs fast. The dog sleeps all day. The cat watches quietly.",
	}

	chunks := chunker.Chunk(doc)
	require.Greater(t, len(chunks), 1)
	// No chunk starts mid-sentence: each begins with a capitalized word
	// from the original sentence starts.
	for _, chunk := range chunks {
		assert.True(t, strings.HasPrefix(chunk.Text, "The "), "chunk %q", chunk.Text)
	}
}

func TestChunk_CJKSentenceEndings(t *testing.T) {
	chunker := NewChunker(WithMaxTokens(2))
	doc := &core.Document{
		Id:      5,
		Content: "第一句。第二句！第三句？",
	}

	chunks := chunker.Chunk(doc)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestChunk_OversizedSentenceHardSplit(t *testing.T) {
	chunker := NewChunker(WithMaxTokens(4))
	// One long sentence with no terminators.
	doc := &core.Document{
		Id:      6,
		Content: "alpha beta gamma delta epsilon zeta eta theta iota kappa",
	}

	chunks := chunker.Chunk(doc)
	require.Greater(t, len(chunks), 1)
	total := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, 4)
		total += chunk.TokenCount
	}
	assert.Equal(t, 10, total)
}

func TestChunk_HyphenatedWordsRespectTokenBound(t *testing.T) {
	chunker := NewChunker(WithMaxTokens(4))
	// Each hyphenated word tokenizes to two tokens, so bounding runs by
	// word count would overshoot the token bound.
	doc := &core.Document{
		Id:      8,
		Content: "one-two three-four five-six seven-eight nine-ten",
	}

	chunks := chunker.Chunk(doc)
	require.Greater(t, len(chunks), 1)
	total := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, 4)
		total += chunk.TokenCount
	}
	assert.Equal(t, 10, total)
}

func TestChunk_Deterministic(t *testing.T) {
	chunker := NewChunker(WithMaxTokens(8))
	doc := &core.Document{
		Id:      7,
		Content: "Repeatable input. Same chunks every time. No randomness anywhere in the pipeline. That is the contract.",
	}

	first := chunker.Chunk(doc)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, chunker.Chunk(doc))
	}
}
