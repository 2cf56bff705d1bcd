// Package matcher implements tiered matching of incoming questions
// against a knowledge corpus: an exact tier on normalized question text,
// then a semantic tier scoring TF-IDF cosine similarity fused with
// token-set Jaccard overlap.
//
// An Index is an immutable snapshot. Corpus mutations produce a new
// Index via BuildIndex; an Index is never patched in place, so readers
// holding one always observe a consistent view.
package matcher

import (
	"math"
	"sort"
	"strings"

	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/textnorm"
)

const (
	cosineWeight  = 0.7
	jaccardWeight = 0.3

	// substringMatchMinLen is the minimum normalized length for the
	// mutual-substring rule in the exact tier. Shorter strings produce
	// too many accidental containments.
	substringMatchMinLen = 20
)

type document struct {
	entry        *domain.Entry
	normQuestion string
	vector       map[string]float64
	tokens       map[string]struct{}
}

// Index is a read-only view over the active knowledge entries at build
// time. Safe for concurrent use.
type Index struct {
	docs []document
	idf  map[string]float64
}

// BuildIndex constructs an index over the active entries. Inactive
// entries and entries with no indexable text are skipped. The entry
// order is preserved and acts as the tie-break for equal scores.
func BuildIndex(entries []*domain.Entry) *Index {
	idx := &Index{idf: make(map[string]float64)}

	type rawDoc struct {
		entry    *domain.Entry
		normQ    string
		termFreq map[string]float64
		tokens   map[string]struct{}
	}

	var raws []rawDoc
	df := make(map[string]int)
	for _, e := range entries {
		if e == nil || !e.Active {
			continue
		}
		tokens := textnorm.Tokens(e.IndexText())
		if len(tokens) == 0 {
			continue
		}
		tf := termFrequencies(tokens)
		for term := range tf {
			df[term]++
		}
		raws = append(raws, rawDoc{
			entry:    e,
			normQ:    textnorm.Normalize(e.Question),
			termFreq: tf,
			tokens:   tokenSet(tokens),
		})
	}
	if len(raws) == 0 {
		return idx
	}

	// Smoothed inverse document frequency, so terms seen in every
	// document still carry weight and unseen-corpus division never
	// occurs.
	n := float64(len(raws))
	for term, count := range df {
		idx.idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	idx.docs = make([]document, 0, len(raws))
	for _, r := range raws {
		idx.docs = append(idx.docs, document{
			entry:        r.entry,
			normQuestion: r.normQ,
			vector:       idx.weigh(r.termFreq),
			tokens:       r.tokens,
		})
	}
	return idx
}

// Size reports the number of indexed documents.
func (idx *Index) Size() int {
	if idx == nil {
		return 0
	}
	return len(idx.docs)
}

// Search returns matches for the question with confidence at or above
// minConfidence, highest confidence first. Exact matches take absolute
// precedence: when the exact tier fires the semantic tier is skipped
// entirely. A nil or empty index, or a blank question, yields no
// matches. minConfidence is clamped to [0, 1]; entries scoring exactly
// zero are excluded even at minConfidence 0, since a zero score means
// no term overlap at all.
func (idx *Index) Search(question string, minConfidence float64) []domain.Match {
	if idx == nil || len(idx.docs) == 0 {
		return nil
	}
	normQ := textnorm.Normalize(question)
	if normQ == "" {
		return nil
	}

	if matches := idx.exactMatches(normQ); len(matches) > 0 {
		return matches
	}
	return idx.semanticMatches(normQ, clamp01(minConfidence))
}

// exactMatches fires on normalized equality, or on mutual containment
// when both sides exceed substringMatchMinLen. All exact matches carry
// confidence 1.0 and are ordered by canonical question length
// descending: the longer phrasing is assumed more specific.
func (idx *Index) exactMatches(normQ string) []domain.Match {
	var matches []domain.Match
	for i := range idx.docs {
		d := &idx.docs[i]
		if normQ == d.normQuestion || mutualSubstring(normQ, d.normQuestion) {
			matches = append(matches, newMatch(d.entry, 1.0, domain.MatchTypeExact))
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return len(matches[i].Question) > len(matches[j].Question)
	})
	return matches
}

func (idx *Index) semanticMatches(normQ string, minConfidence float64) []domain.Match {
	qTokens := strings.Fields(normQ)
	qVector := idx.weigh(termFrequencies(qTokens))
	qSet := tokenSet(qTokens)

	var matches []domain.Match
	for i := range idx.docs {
		d := &idx.docs[i]
		score := cosineWeight*dot(qVector, d.vector) + jaccardWeight*jaccard(qSet, d.tokens)
		if score > 0 && score >= minConfidence {
			matches = append(matches, newMatch(d.entry, score, domain.MatchTypeSemantic))
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// weigh turns raw term frequencies into an L2-normalized TF-IDF vector.
// Terms absent from the corpus vocabulary are dropped.
func (idx *Index) weigh(termFreq map[string]float64) map[string]float64 {
	vec := make(map[string]float64, len(termFreq))
	var sumSquares float64
	for term, tf := range termFreq {
		idf, ok := idx.idf[term]
		if !ok {
			continue
		}
		w := tf * idf
		vec[term] = w
		sumSquares += w * w
	}
	if sumSquares == 0 {
		return vec
	}
	norm := math.Sqrt(sumSquares)
	for term, w := range vec {
		vec[term] = w / norm
	}
	return vec
}

// termFrequencies counts unigrams and bigrams over the token stream.
func termFrequencies(tokens []string) map[string]float64 {
	tf := make(map[string]float64, 2*len(tokens))
	for i, tok := range tokens {
		tf[tok]++
		if i+1 < len(tokens) {
			tf[tok+" "+tokens[i+1]]++
		}
	}
	return tf
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func mutualSubstring(a, b string) bool {
	if len(a) <= substringMatchMinLen || len(b) <= substringMatchMinLen {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// dot computes cosine similarity directly because both vectors are
// L2-normalized.
func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for term, w := range a {
		sum += w * b[term]
	}
	return sum
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	var intersection int
	for tok := range small {
		if _, ok := large[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func newMatch(e *domain.Entry, confidence float64, matchType domain.MatchType) domain.Match {
	return domain.Match{
		EntryID:    e.ID,
		Question:   e.Question,
		Answer:     e.Answer,
		Category:   e.Category,
		Tags:       e.Tags,
		Confidence: confidence,
		Type:       matchType,
	}
}
