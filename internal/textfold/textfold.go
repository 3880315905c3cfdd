// Package textfold normalizes chat text so that watch expressions can be
// compared regardless of case, diacritics and surrounding punctuation.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold trims surrounding whitespace and punctuation, then folds case and
// removes diacritics, so "  Café!" and "cafe" compare equal.
func Fold(text string) string {
	text = strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if text == "" {
		return ""
	}

	// transform.Chain keeps state, so a fresh one is built per call
	folder := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		cases.Fold(),
		norm.NFC,
	)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		return strings.ToLower(text)
	}
	return folded
}

// DivideForExactMatch returns two tokenizations of already folded text: one
// split on whitespace only, and one additionally split on punctuation. Both
// are checked for exact phrase matching so that "word," still matches "word".
func DivideForExactMatch(text string) [][]string {
	words := strings.FieldsFunc(text, unicode.IsSpace)

	var pieces []string
	for _, word := range words {
		pieces = append(pieces, strings.FieldsFunc(word, unicode.IsPunct)...)
	}

	return [][]string{words, pieces}
}

// SplitWords splits a phrase into whitespace separated tokens.
func SplitWords(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}
