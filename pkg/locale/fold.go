// Package locale holds the Brazilian Portuguese text helpers shared by the
// pipeline: accent folding for keyword matching, BRL formatting and the
// output-language checks applied to every stage response.
package locale

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips diacritics ("Promoção" -> "promocao").
func Fold(s string) string {
	// transform.Chain is stateful; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Words folds s and splits it into letter/digit tokens.
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Normalize folds s and collapses every separator to a single space.
func Normalize(s string) string {
	return strings.Join(Words(s), " ")
}

// ContainsTerm reports whether term occurs in text on word boundaries,
// ignoring case and accents. A trailing plural "s" on the text side matches.
func ContainsTerm(text, term string) bool {
	t := Normalize(term)
	if t == "" {
		return false
	}
	padded := " " + Normalize(text) + " "
	return strings.Contains(padded, " "+t+" ") || strings.Contains(padded, " "+t+"s ")
}
