package storage

import (
	"sort"
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"do": {}, "for": {}, "from": {}, "how": {}, "i": {}, "in": {}, "is": {}, "it": {},
	"me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "s": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "was": {}, "what": {}, "whats": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "with": {}, "you": {}, "your": {},
}

// tokenize lowercases text and splits it on anything that is not a letter or digit.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// keywordScore counts the distinct query terms present in the candidate text.
func keywordScore(queryTerms []string, text string) int {
	if len(queryTerms) == 0 {
		return 0
	}
	words := make(map[string]struct{})
	for _, w := range tokenize(text) {
		words[w] = struct{}{}
	}
	score := 0
	seen := make(map[string]struct{}, len(queryTerms))
	for _, term := range queryTerms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		if _, ok := words[term]; ok {
			score++
		}
	}
	return score
}

// rankByKeyword returns the indexes of texts with a positive score, best first.
// Ties keep insertion order so results are deterministic.
func rankByKeyword(query string, texts []string, limit int) []int {
	terms := tokenize(query)
	type scored struct {
		idx   int
		score int
	}
	var hits []scored
	for i, t := range texts {
		if s := keywordScore(terms, t); s > 0 {
			hits = append(hits, scored{idx: i, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if limit >= 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	idx := make([]int, len(hits))
	for i, h := range hits {
		idx[i] = h.idx
	}
	return idx
}

// containsFold is a case-insensitive substring test.
func containsFold(text, sub string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(sub))
}
