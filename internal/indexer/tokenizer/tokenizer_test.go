package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", " \t\n ", []string{}},
		{"lowercases", "Cat DOG", []string{"cat", "dog"}},
		{"strips punctuation inside words", "don't re-use e-mail", []string{"dont", "reuse", "email"}},
		{"keeps digits and underscore", "snake_case v2 42", []string{"snake_case", "v2", "42"}},
		{"keeps repeats in order", "cat dog cat", []string{"cat", "dog", "cat"}},
		{"punctuation-only word disappears", "hello , world !!!", []string{"hello", "world"}},
		{"citation markers collapse", "retrieval[12] systems", []string{"retrieval12", "systems"}},
		{"non-ascii letters are stripped", "café naïve", []string{"caf", "nave"}},
		{"mixed whitespace", "a\tb\nc  d", []string{"a", "b", "c", "d"}},
		{"no stopword removal", "the and or not", []string{"the", "and", "or", "not"}},
		{"no stemming", "running runs", []string{"running", "runs"}},
		{"single letters kept", "a b c", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenizeNeverEmitsEmptyTokens(t *testing.T) {
	inputs := []string{"--- ... ???", "a -- b", "  x  ", "!@#$%^&*()"}
	for _, in := range inputs {
		for _, tok := range Tokenize(in) {
			assert.NotEmpty(t, tok, "input %q", in)
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello world", Normalize("Hello, World!"))
	assert.Equal(t, "a\tb", Normalize("A\t-B"))
}

func TestTokenizeDeterministic(t *testing.T) {
	text := strings.Repeat("Information retrieval, search engines; ranking! ", 20)
	assert.Equal(t, Tokenize(text), Tokenize(text))
}

func BenchmarkTokenize(b *testing.B) {
	text := strings.Repeat(`Information retrieval systems form the backbone of modern search
        infrastructure. The inverted index maps each term to the documents containing it. `, 20)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = Tokenize(text)
	}
}
