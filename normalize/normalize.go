// Package normalize canonicalizes free-text plant and company names into
// comparable keys. Normalization is a pure function: no I/O, no errors,
// and idempotent: normalizing an already-normalized string returns it
// unchanged.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize produces the canonical key for a raw name:
//  1. decompose and strip diacritics to the nearest ASCII equivalent
//  2. replace non-breaking and other whitespace variants with a space
//  3. lowercase
//  4. trim leading/trailing whitespace
//  5. collapse internal whitespace runs to a single space
//
// Any input, including the empty string, yields a deterministic result.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = stripDiacritics(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSpace(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// stripDiacritics decomposes to NFD, drops combining marks and
// recomposes, so "É" becomes "E" and "ñ" becomes "n".
func stripDiacritics(text string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, text)
	if err != nil {
		// Transform only fails on malformed UTF-8; keep the original
		// bytes and let the remaining steps do what they can.
		return text
	}
	return folded
}
