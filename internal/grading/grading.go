// Package grading decides whether a typed answer matches a reference
// sentence and produces a word-level annotation of the reference for display.
//
// Comparison is positional: word i of the input is compared against word i of
// the reference. An inserted or deleted word therefore cascades mismatches
// for everything after it. That behavior is intentional and relied upon by
// callers; do not replace it with an alignment diff.
package grading

import (
	"strings"

	"github.com/samber/lo"
)

// strippedPunctuation is the fixed set removed before comparison.
const strippedPunctuation = ".,!?;:"

// WordAnnotation marks one reference word as matched or not by the input.
// Word keeps its original casing and punctuation for display.
type WordAnnotation struct {
	Word    string `json:"word"`
	Correct bool   `json:"correct"`
}

// Result is the outcome of grading one submission. It is recomputed on every
// submission and never persisted.
type Result struct {
	Match bool             `json:"match"`
	Words []WordAnnotation `json:"words"`
}

// Normalize lower-cases s, strips the fixed punctuation set and trims outer
// whitespace. Runs of inner whitespace are kept as-is. Idempotent.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedPunctuation, r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// IsMatch reports whether input equals reference after normalization.
// Equality is exact, not fuzzy: differing inner whitespace is a mismatch.
func IsMatch(reference, input string) bool {
	return Normalize(reference) == Normalize(input)
}

// Diff compares input against reference word by word. The returned slice
// always has exactly one annotation per reference word, so the displayed
// sentence never changes shape between attempts: missing input words mark
// the tail incorrect, extra input words are ignored.
func Diff(reference, input string) []WordAnnotation {
	referenceWords := strings.Fields(reference)
	inputWords := lo.Map(strings.Fields(input), func(w string, _ int) string {
		return Normalize(w)
	})

	annotations := make([]WordAnnotation, len(referenceWords))
	for i, word := range referenceWords {
		correct := i < len(inputWords) && inputWords[i] == Normalize(word)
		annotations[i] = WordAnnotation{Word: word, Correct: correct}
	}

	return annotations
}

// Grade bundles IsMatch and Diff for one submission.
func Grade(reference, input string) Result {
	return Result{
		Match: IsMatch(reference, input),
		Words: Diff(reference, input),
	}
}
