// Package normalize reduces raw transcription text to the canonical form
// the command registry is keyed by.
package normalize

import (
	"strings"
	"unicode"
)

// Canonical strips punctuation and symbols, lowercases what remains, and
// returns the first whitespace-delimited word. Text that contains no words
// canonicalizes to the empty token. The function is idempotent: feeding its
// output back in returns the same token.
func Canonical(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	fields := strings.Fields(b.String())
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
