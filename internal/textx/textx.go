// Package textx implements the fuzzy duplicate test shared by the insight
// queue and behavioral-loop tags: two strings overlap when either one,
// case-folded, contains the other.
package textx

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded, trimmed form of s.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Overlaps reports whether a contains b or b contains a, ignoring case.
// Blank strings never overlap.
func Overlaps(a, b string) bool {
	fa, fb := Fold(a), Fold(b)
	if fa == "" || fb == "" {
		return false
	}
	return strings.Contains(fa, fb) || strings.Contains(fb, fa)
}

// OverlapsAny reports whether s overlaps any element of list.
func OverlapsAny(list []string, s string) bool {
	for _, item := range list {
		if Overlaps(item, s) {
			return true
		}
	}
	return false
}

// MergeUnique appends each incoming string that does not overlap an
// existing or already-accepted one. Order is preserved; blanks are dropped.
func MergeUnique(existing, incoming []string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	out = append(out, existing...)
	for _, s := range incoming {
		s = strings.TrimSpace(s)
		if s == "" || OverlapsAny(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
