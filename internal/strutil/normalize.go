// Package strutil provides text normalization helpers for matching user input
// against Spanish phrase tables and station names.
package strutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold removes diacritical marks ("qué" -> "que", "Estación" -> "Estacion").
// Input is returned unchanged if the transform fails.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize trims surrounding whitespace, lower-cases and folds diacritics.
// All user-facing matching (phrase tables, intent rules, station lookup) goes
// through this single pass so accented and unaccented spellings are equivalent.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(Fold(s)))
}
