package analysis

import (
	"strings"
	"unicode"
)

// Tokenize splits text into normalized tokens: lower-cased, split on
// any rune that is neither a letter nor a digit. Punctuation-only
// runs therefore never yield a token.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// TokenCount returns the number of tokens Tokenize would produce.
func TokenCount(text string) int {
	return len(Tokenize(text))
}
