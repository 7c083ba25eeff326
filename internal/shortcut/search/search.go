// Package search finds shortcut definitions by text.
//
// A definition is searched by its name, keys, action type, scope and
// category joined with spaces. Filter keeps the definitions containing the
// query and preserves their order. Rank matches the query characters in
// order, allowing gaps, and sorts by score:
//
//	results := search.Rank(defs, "scrtop", 10)
//	for _, r := range results {
//	    fmt.Printf("%s (score: %d)\n", r.Definition.Label(), r.Score)
//	}
package search

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/dshills/keyweave/internal/shortcut"
)

// Result is one ranked definition.
type Result struct {
	Definition shortcut.Definition

	// Score is higher for better matches.
	Score int

	// Matches holds the rune indices of the matched characters in the
	// haystack.
	Matches []int
}

// Haystack returns the text d is searched by.
func Haystack(d shortcut.Definition) string {
	action := ""
	if d.Action != nil {
		action = string(d.Action.Type())
	}
	return strings.Join([]string{d.Name, d.Keys, action, d.Scope, d.Category}, " ")
}

// Filter returns the definitions whose haystack contains query, ignoring
// case, in their original order. A blank query keeps everything.
func Filter(defs []shortcut.Definition, query string) []shortcut.Definition {
	query = strings.TrimSpace(query)
	if query == "" {
		return defs
	}
	fold := cases.Fold()
	q := fold.String(query)

	var out []shortcut.Definition
	for _, d := range defs {
		if strings.Contains(fold.String(Haystack(d)), q) {
			out = append(out, d)
		}
	}
	return out
}

// Rank scores every definition matching query with DefaultWeights and
// returns at most limit results, best first. Equal scores keep the
// original order. A limit of zero or less means no limit.
func Rank(defs []shortcut.Definition, query string, limit int) []Result {
	return DefaultWeights().Rank(defs, query, limit)
}

// Weights tunes the ranking.
type Weights struct {
	Base         int // every match
	Consecutive  int // per matched character following another
	WordBoundary int // per matched character starting a word
	Prefix       int // first match at position 0
	ExactPrefix  int // query is a prefix of the haystack
	Gap          int // per skipped character between matches
	Leading      int // per character before the first match
	ShortText    int // haystacks shorter than this gain the difference
}

// DefaultWeights returns the standard weights.
func DefaultWeights() Weights {
	return Weights{
		Base:         100,
		Consecutive:  20,
		WordBoundary: 15,
		Prefix:       25,
		ExactPrefix:  50,
		Gap:          2,
		Leading:      1,
		ShortText:    40,
	}
}

// Rank is the package Rank with w.
func (w Weights) Rank(defs []shortcut.Definition, query string, limit int) []Result {
	q := lowerRunes(strings.TrimSpace(query))

	results := make([]Result, 0, len(defs))
	for _, d := range defs {
		if len(q) == 0 {
			results = append(results, Result{Definition: d})
			continue
		}
		text := []rune(Haystack(d))
		matches := subsequence(q, lowerRunes(string(text)))
		if matches == nil {
			continue
		}
		results = append(results, Result{Definition: d, Score: w.score(q, text, matches), Matches: matches})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

// lowerRunes lowercases rune by rune so indices line up with the original.
func lowerRunes(s string) []rune {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return rs
}

// subsequence returns the indices of a greedy left-to-right match of query
// in text, or nil when some query rune is missing.
func subsequence(query, text []rune) []int {
	matches := make([]int, 0, len(query))
	qi := 0
	for i := 0; i < len(text) && qi < len(query); i++ {
		if text[i] == query[qi] {
			matches = append(matches, i)
			qi++
		}
	}
	if qi != len(query) {
		return nil
	}
	return matches
}

func (w Weights) score(query, text []rune, matches []int) int {
	score := w.Base

	for i := 1; i < len(matches); i++ {
		if matches[i] == matches[i-1]+1 {
			score += w.Consecutive
		}
	}
	for _, idx := range matches {
		if isWordBoundary(text, idx) {
			score += w.WordBoundary
		}
	}

	if matches[0] == 0 {
		score += w.Prefix
	}
	if gap := matches[len(matches)-1] - matches[0] - len(matches) + 1; gap > 0 {
		score -= gap * w.Gap
	}
	score -= matches[0] * w.Leading

	if n := len(text); n < w.ShortText {
		score += w.ShortText - n
	}
	if matches[len(matches)-1] == len(query)-1 {
		score += w.ExactPrefix
	}

	return max(score, 1)
}

// isWordBoundary reports whether text[idx] starts a word: the first rune,
// a rune after a space or punctuation, or an upper case rune after a lower
// case one.
func isWordBoundary(text []rune, idx int) bool {
	if idx == 0 {
		return true
	}
	if idx >= len(text) {
		return false
	}
	prev, cur := text[idx-1], text[idx]
	if unicode.IsSpace(prev) || unicode.IsPunct(prev) || unicode.IsSymbol(prev) {
		return true
	}
	return unicode.IsLower(prev) && unicode.IsUpper(cur)
}
