// Package resolve decides whether records from different sources describe
// the same monument: text normalization, similarity scoring, candidate
// selection and redirect verification.
package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords are French and English determiners, articles and short
// prepositions dropped before token comparison. Generic attraction words
// (church, tower, museum) are kept: they carry identity for monuments.
var stopWords = map[string]struct{}{
	"a": {}, "au": {}, "aux": {}, "d": {}, "de": {}, "des": {}, "du": {},
	"en": {}, "et": {}, "l": {}, "la": {}, "le": {}, "les": {}, "sur": {},
	"un": {}, "une": {},
	"an": {}, "and": {}, "at": {}, "in": {}, "of": {}, "on": {}, "the": {},
}

// Normalize case-folds text, strips diacritics, collapses punctuation and
// whitespace to single spaces and drops stop words:
//  1. "&" becomes "and" (then dropped as a stop word)
//  2. NFD decomposition, combining marks removed, NFC recomposition
//  3. every run of non letters/digits becomes one space
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = cases.Fold().String(text)
	text = strings.ReplaceAll(text, "&", " and ")

	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err == nil {
		text = stripped
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	kept := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// Tokens returns the distinct tokens of already-normalized text.
func Tokens(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		set[tok] = struct{}{}
	}
	return set
}
