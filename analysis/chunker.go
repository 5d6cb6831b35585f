package analysis

import (
	"strings"

	"github.com/poiesic/retrievit/core"
)

const (
	// DefaultMaxTokens is the default upper bound on tokens per chunk.
	DefaultMaxTokens = 256
)

// sentenceEndings terminate a sentence. Newlines count so paragraph
// boundaries are preferred cut points too.
var sentenceEndings = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
	'\n': true,
}

// Chunker splits document content into bounded, overlap-free chunks.
type Chunker struct {
	maxTokens int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithMaxTokens sets the per-chunk token bound.
// Values below 1 fall back to DefaultMaxTokens.
func WithMaxTokens(max int) ChunkerOption {
	return func(c *Chunker) {
		if max >= 1 {
			c.maxTokens = max
		}
	}
}

// NewChunker creates a chunker with the default token bound.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{maxTokens: DefaultMaxTokens}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxTokens returns the configured per-chunk token bound.
func (c *Chunker) MaxTokens() int {
	return c.maxTokens
}

// Chunk splits a document into ordered chunks. Sentences are packed
// greedily up to the token bound; a sentence that alone exceeds the
// bound is hard-split at the token limit. A document at or under the
// bound yields exactly one chunk. Empty content yields no chunks.
func (c *Chunker) Chunk(doc *core.Document) []core.Chunk {
	content := strings.TrimSpace(doc.Content)
	if content == "" {
		return nil
	}

	if TokenCount(content) <= c.maxTokens {
		return []core.Chunk{{
			DocumentId: doc.Id,
			Ordinal:    0,
			Text:       content,
			TokenCount: TokenCount(content),
		}}
	}

	var pieces []string
	for _, sentence := range splitSentences(content) {
		pieces = append(pieces, c.splitOversized(sentence)...)
	}

	var (
		chunks  []core.Chunk
		current []string
		tokens  int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, " ")
		chunks = append(chunks, core.Chunk{
			DocumentId: doc.Id,
			Ordinal:    len(chunks),
			Text:       text,
			TokenCount: TokenCount(text),
		})
		current = current[:0]
		tokens = 0
	}

	for _, piece := range pieces {
		count := TokenCount(piece)
		if count == 0 {
			continue
		}
		if tokens+count > c.maxTokens {
			flush()
		}
		current = append(current, piece)
		tokens += count
	}
	flush()

	return chunks
}

// splitOversized breaks a sentence whose token count exceeds the
// bound into runs of whole words, each run at most maxTokens tokens.
// A word can tokenize to several tokens, so runs are bounded by token
// count rather than word count. A single word above the bound is
// emitted alone.
func (c *Chunker) splitOversized(sentence string) []string {
	if TokenCount(sentence) <= c.maxTokens {
		return []string{sentence}
	}

	var (
		runs    []string
		current []string
		tokens  int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		runs = append(runs, strings.Join(current, " "))
		current = current[:0]
		tokens = 0
	}
	for _, word := range strings.Fields(sentence) {
		count := TokenCount(word)
		if tokens > 0 && tokens+count > c.maxTokens {
			flush()
		}
		current = append(current, word)
		tokens += count
	}
	flush()
	return runs
}

// splitSentences cuts text at sentence endings and paragraph breaks.
// Consecutive terminators stay attached to the preceding sentence.
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
		inEnding  bool
	)
	runes := []rune(text)
	for i, r := range runes {
		if sentenceEndings[r] {
			inEnding = true
			continue
		}
		if inEnding {
			sentence := strings.TrimSpace(string(runes[start:i]))
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = i
			inEnding = false
		}
	}
	tail := strings.TrimSpace(string(runes[start:]))
	if tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
