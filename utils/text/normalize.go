package text

import (
	"strings"
	"unicode"
)

// NormalizeToken lowercases a word and strips everything that is not a letter
// or digit, so that transcribed tokens and display tokens compare equal
// regardless of punctuation and casing.
func NormalizeToken(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokenize splits text on whitespace and normalizes each token, dropping
// tokens that normalize to nothing (punctuation, emoji, stray symbols).
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := NormalizeToken(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
