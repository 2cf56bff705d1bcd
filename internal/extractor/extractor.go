// Package extractor turns raw unstructured text (email bodies, text
// extracted from documents) into candidate RFP question strings. It is
// pure and stateless; safe for concurrent use.
package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledgerworks/rfpd/internal/textnorm"
)

// minQuestionLen is the minimum normalized length, in runes, for a
// candidate to be kept. Anything shorter is noise ("why?", "how so?").
const minQuestionLen = 15

// minTriggerLineLen gates the secondary whole-line pass: short lines
// containing a trigger phrase are almost always fragments of an already
// extracted question.
const minTriggerLineLen = 25

// Lines whose lowercased content starts with one of these are email
// headers or boilerplate, never questions.
var stopPrefixes = []string{
	"from:", "sent:", "subject:", "to:", "cc:", "bcc:", "attachments:",
	"unsubscribe", "confidential", "disclaimer",
}

// Phrases that mark a sentence as a request for information even without
// a terminal question mark.
var questionTriggers = []string{
	"please provide", "please share", "kindly provide", "kindly share",
	"provide a", "provide the", "provide your",
	"please tell us", "let us know", "could you", "can you",
	"we would appreciate", "we'd appreciate", "we would like to request",
	"we'd like to request", "we request", "request if you can share",
	"we'd like to ask", "we would like to ask",
	"how does", "how do", "how is", "how are", "how will",
	"what is", "what are", "what's", "which", "when", "why",
	"justify", "outline", "explain", "describe", "bsp:",
}

var (
	bulletRE       = regexp.MustCompile(`^\s*(?:[-*\x{2022}]|\d+\)|\d+\.)\s+`)
	urlOnlyRE      = regexp.MustCompile(`(?i)^https?://\S+$`)
	quotedReplyRE  = regexp.MustCompile(`(?i)\nOn .+ wrote:\n`)
	leadingVerbRE  = regexp.MustCompile(`^\s*(provide|outline|explain|describe|justify)\b`)
	sourceLabelRE  = regexp.MustCompile(`^\s*(bsp|regulator)\s*:\s*`)
	sentenceEndRE  = regexp.MustCompile(`[.!?]\s*$`)
	curlyQuoteRepl = strings.NewReplacer("‘", "'", "’", "'")
)

// ExtractQuestions extracts the ordered, de-duplicated list of question
// strings from raw text. It never fails: any input, including the empty
// string, yields a (possibly empty) list.
func ExtractQuestions(raw string) []string {
	lines := cleanLines(raw)

	var candidates []string
	produced := make([]bool, len(lines))
	for i, line := range lines {
		for _, piece := range splitOnQuestionMarks(line) {
			if looksLikeQuestion(piece) {
				candidates = append(candidates, piece)
				produced[i] = true
			}
		}
	}

	// Secondary pass: long logical lines containing a trigger phrase are
	// requests even when the question-mark splitter produced nothing.
	// Lines already consumed above are skipped so a compound line does
	// not reappear whole alongside its split questions.
	for i, line := range lines {
		if produced[i] {
			continue
		}
		if utf8.RuneCountInString(textnorm.Normalize(line)) > minTriggerLineLen && containsTrigger(line) {
			candidates = append(candidates, line)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	var questions []string
	for _, q := range candidates {
		qn := textnorm.Normalize(q)
		if utf8.RuneCountInString(qn) < minQuestionLen {
			continue
		}
		if _, dup := seen[qn]; dup {
			continue
		}
		seen[qn] = struct{}{}
		questions = append(questions, strings.TrimSpace(q))
	}

	return questions
}

// cleanLines truncates quoted replies, drops headers/boilerplate/bare
// URLs, and merges wrapped lines back into logical paragraphs. Bulleted
// or numbered lines always start a fresh logical line.
func cleanLines(raw string) []string {
	if loc := quotedReplyRE.FindStringIndex(raw); loc != nil {
		raw = raw[:loc[0]]
	}

	var lines []string
	for _, ln := range strings.Split(raw, "\n") {
		l := strings.TrimSpace(ln)
		if l == "" {
			continue
		}
		if hasStopPrefix(strings.ToLower(l)) {
			continue
		}
		if urlOnlyRE.MatchString(l) {
			continue
		}
		lines = append(lines, l)
	}

	var merged []string
	var buf string
	for _, l := range lines {
		if bulletRE.MatchString(l) {
			if buf != "" {
				merged = append(merged, strings.TrimSpace(buf))
				buf = ""
			}
			merged = append(merged, l)
			continue
		}
		switch {
		case buf == "":
			buf = l
		case sourceLabelRE.MatchString(strings.ToLower(l)):
			// Labeled items ("BSP: ...", "Regulator: ...") are distinct
			// questions even when the previous line lacks terminal
			// punctuation.
			merged = append(merged, strings.TrimSpace(buf))
			buf = l
		case !sentenceEndRE.MatchString(buf):
			buf += " " + l
		default:
			merged = append(merged, strings.TrimSpace(buf))
			buf = l
		}
	}
	if buf != "" {
		merged = append(merged, strings.TrimSpace(buf))
	}
	return merged
}

// splitOnQuestionMarks splits a logical line on '?' retaining the mark,
// plus a trailing remainder if non-empty.
func splitOnQuestionMarks(s string) []string {
	var out []string
	var acc strings.Builder
	for _, r := range s {
		acc.WriteRune(r)
		if r == '?' {
			if piece := strings.TrimSpace(acc.String()); piece != "" {
				out = append(out, piece)
			}
			acc.Reset()
		}
	}
	if piece := strings.TrimSpace(acc.String()); piece != "" {
		out = append(out, piece)
	}
	return out
}

func looksLikeQuestion(s string) bool {
	low := strings.ToLower(strings.TrimSpace(curlyQuoteRepl.Replace(s)))
	if strings.HasSuffix(low, "?") {
		return true
	}
	if bulletRE.MatchString(s) && containsTriggerLower(low) {
		return true
	}
	if containsTriggerLower(low) {
		return true
	}
	if leadingVerbRE.MatchString(low) {
		return true
	}
	if sourceLabelRE.MatchString(low) {
		return true
	}
	return false
}

func containsTrigger(s string) bool {
	return containsTriggerLower(strings.ToLower(curlyQuoteRepl.Replace(s)))
}

func containsTriggerLower(low string) bool {
	for _, tr := range questionTriggers {
		if strings.Contains(low, tr) {
			return true
		}
	}
	return false
}

func hasStopPrefix(low string) bool {
	for _, p := range stopPrefixes {
		if strings.HasPrefix(low, p) {
			return true
		}
	}
	return false
}
