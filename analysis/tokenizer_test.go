package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple words", "The Quick Brown Fox", []string{"the", "quick", "brown", "fox"}},
		{"punctuation split", "hello, world! foo-bar", []string{"hello", "world", "foo", "bar"}},
		{"numbers kept", "version 2 of go1 tooling", []string{"version", "2", "of", "go1", "tooling"}},
		{"unicode letters", "Größe café 日本語", []string{"größe", "café", "日本語"}},
		{"empty", "", nil},
		{"only punctuation", "... !!! ---", nil},
		{"repeated terms survive", "fox fox fox", []string{"fox", "fox", "fox"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestTokenize_Deterministic(t *testing.T) {
	input := "Determinism matters: the same input, the same output."
	first := Tokenize(input)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Tokenize(input))
	}
}

func TestTokenCount(t *testing.T) {
	assert.Equal(t, 0, TokenCount(""))
	assert.Equal(t, 4, TokenCount("one two three four"))
	assert.Equal(t, 3, TokenCount("hyphen-split counts"))
}
