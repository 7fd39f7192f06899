// Package querykey derives the canonical cache key of a styling query.
package querykey

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormVersion identifies the normalization rule. Bump it when Canonicalize changes
// so stale envelopes stop matching.
const NormVersion = "v1"

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespace = regexp.MustCompile(`\s+`)
	folder     = cases.Fold()
)

// Canonicalize maps a raw query to its canonical key: NFKC plus case fold,
// combining marks stripped, anything outside [a-z0-9 ] dropped, whitespace
// collapsed and trimmed. The result is stable under repeated application.
func Canonicalize(query string) string {
	s := folder.String(norm.NFKC.String(query))
	s = stripMarks(s)
	s = disallowed.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Equivalent reports whether two raw queries share a canonical key.
func Equivalent(a, b string) bool {
	return Canonicalize(a) == Canonicalize(b)
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
