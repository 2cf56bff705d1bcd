// Package textnorm provides the shared text normalization applied to both
// incoming questions and indexed knowledge documents. Queries and corpus
// text must go through the same transform or scores drift.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	// \p{L}\p{N} rather than \w: RE2's \w is ASCII-only and would strip
	// accented letters from non-English questions.
	nonWordRE    = regexp.MustCompile(`[^\p{L}\p{N}_\s\-.]`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// Normalize lowercases text, strips every character except word
// characters, whitespace, hyphens and periods, and collapses runs of
// whitespace to a single space.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWordRE.ReplaceAllString(s, " ")
	s = whitespaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens normalizes text and splits it on whitespace.
func Tokens(s string) []string {
	n := Normalize(s)
	if n == "" {
		return nil
	}
	return strings.Fields(n)
}
