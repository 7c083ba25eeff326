package sequence

import "github.com/dshills/keyweave/internal/input/key"

// Candidate is one applicable pattern, in stored order.
type Candidate struct {
	ID      string
	Pattern key.Pattern
}

// Result describes the winning candidate.
type Result struct {
	// Index is the winner's position in the candidate slice.
	Index int

	// ID is the winner's identifier.
	ID string

	// Length is the number of chords in the winning pattern.
	Length int

	// Ambiguous is set when a longer candidate could still complete with
	// further keystrokes, e.g. "g" winning while "g g" is half typed.
	Ambiguous bool
}

// Match resolves the buffered events against the candidates. Empty patterns
// never match.
func Match(events []key.Event, candidates []Candidate) (Result, bool) {
	best := -1
	for i, c := range candidates {
		if len(c.Pattern) == 0 || !c.Pattern.MatchesTail(events) {
			continue
		}
		if best < 0 || len(c.Pattern) > len(candidates[best].Pattern) {
			best = i
		}
	}
	if best < 0 {
		return Result{}, false
	}

	winner := candidates[best]
	res := Result{Index: best, ID: winner.ID, Length: len(winner.Pattern)}
	for _, c := range candidates {
		if len(c.Pattern) > res.Length && c.Pattern.PrefixOfTail(events) {
			res.Ambiguous = true
			break
		}
	}
	return res, true
}

// HasPrefix reports whether any candidate is partially typed at the tail of
// the events.
func HasPrefix(events []key.Event, candidates []Candidate) bool {
	for _, c := range candidates {
		if c.Pattern.PrefixOfTail(events) {
			return true
		}
	}
	return false
}
