// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input, strips every character that is neither a word
// character nor whitespace, and splits what remains on whitespace. No
// stemming or stop-word removal is applied.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize breaks text into normalised terms in their original order.
// Repeated terms are kept; the result never contains empty strings.
func Tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}

// Normalize lower-cases text and drops every rune that is not a word
// character (ASCII letter, ASCII digit or underscore) or whitespace.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if isWordRune(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '_'
}
