// Package tokenize normalizes raw chat messages into the ordered token
// sequence the rest of ARIA's core operates on.
package tokenize

import (
	"strings"
	"unicode"
)

// MinTokenLength is the shortest token the tokenizer will emit.
const MinTokenLength = 2

// Tokenize lowercases text, replaces every character outside
// [A-Za-z0-9_'-\s] with a space, collapses whitespace, splits on space,
// and drops tokens shorter than MinTokenLength. Tokenization never
// fails; an empty slice means the message short-circuits the pipeline.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range text {
		if isTokenRune(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= MinTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// IsStandalone reports whether a tokenized message counts as the
// single-token "standalone" case used by the stats accumulator.
func IsStandalone(tokens []string) bool {
	return len(tokens) == 1
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '\'', r == '-':
		return true
	default:
		return false
	}
}
