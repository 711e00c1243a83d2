// Package rules holds the word predicates of the standard game.
package rules

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Standard compares words without case, diacritics or extra whitespace, and
// accepts an answer unless more voters rejected it than approved it.
type Standard struct{}

// IsAnswerValid reports whether word is non-empty and starts with letter.
func (Standard) IsAnswerValid(letter, word string) bool {
	normalized := Normalize(word)
	prefix := Normalize(letter)
	if normalized == "" || prefix == "" {
		return false
	}
	return strings.HasPrefix(normalized, prefix)
}

// IsAnswerAccepted applies the majority rule. Ties and empty vote maps accept.
func (Standard) IsAnswerAccepted(votes map[uuid.UUID]bool) bool {
	approvals := 0
	for _, approved := range votes {
		if approved {
			approvals++
		}
	}
	return approvals >= len(votes)-approvals
}

// CompareAnswers reports whether a and b are the same answer once normalized.
func (Standard) CompareAnswers(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Normalize folds case, strips diacritics and collapses whitespace, so that
// "  Évier " and "evier" normalize to the same string.
func Normalize(word string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, word)
	if err != nil {
		stripped = word
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}
