// Package conflict detects shortcuts that compete for the same keystrokes
// and applies the save-time conflict strategy.
package conflict

import (
	"fmt"
	"strings"

	"github.com/dshills/keyweave/internal/input/key"
	"github.com/dshills/keyweave/internal/input/scope"
)

// Strategy is the save-time policy for conflicting definitions.
type Strategy string

const (
	// Warn keeps both definitions and reports the conflict.
	Warn Strategy = "warn"
	// Override disables the pre-existing conflicting definitions.
	Override Strategy = "override"
	// Disable saves the new definition disabled.
	Disable Strategy = "disable"
)

// ParseStrategy validates a strategy name. Empty means Warn.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return Warn, nil
	case Warn, Override, Disable:
		return st, nil
	default:
		return "", fmt.Errorf("unknown conflict strategy %q", s)
	}
}

// Entry is the part of a shortcut definition conflict detection looks at.
type Entry struct {
	ID      string
	Name    string
	Pattern string
	Scope   string
	Enabled bool
}

// Label returns the name, or the id when the name is empty.
func (e Entry) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Warning reports conflicting definitions. It is never fatal on its own.
type Warning struct {
	Candidate Entry
	Conflicts []Entry
}

func (w *Warning) Error() string {
	names := make([]string, len(w.Conflicts))
	for i, c := range w.Conflicts {
		names[i] = c.Label()
	}
	return fmt.Sprintf("%q on %s conflicts with: %s",
		w.Candidate.Pattern, scope.Parse(w.Candidate.Scope), strings.Join(names, ", "))
}

// IDs returns the ids of the conflicting definitions.
func (w *Warning) IDs() []string {
	ids := make([]string, len(w.Conflicts))
	for i, c := range w.Conflicts {
		ids[i] = c.ID
	}
	return ids
}

// Find returns the other enabled definitions whose normalized pattern equals
// the candidate's and whose scope can apply to a common host.
func Find(candidate Entry, existing []Entry) []Entry {
	norm := key.NormalizePattern(candidate.Pattern)
	if norm == "" {
		return nil
	}
	cs := scope.Parse(candidate.Scope)

	var out []Entry
	for _, e := range existing {
		if e.ID == candidate.ID || !e.Enabled {
			continue
		}
		if key.NormalizePattern(e.Pattern) != norm {
			continue
		}
		if cs.Overlaps(scope.Parse(e.Scope)) {
			out = append(out, e)
		}
	}
	return out
}

// Decision is the outcome of the save-time policy.
type Decision struct {
	// Disable lists pre-existing definitions to disable (Override).
	Disable []string

	// SaveDisabled is set when the candidate must be stored disabled.
	SaveDisabled bool

	// Warning is non-nil when conflicts were found.
	Warning *Warning
}

// Resolve applies the strategy to a candidate about to be saved.
func Resolve(candidate Entry, existing []Entry, strategy Strategy) Decision {
	found := Find(candidate, existing)
	if len(found) == 0 {
		return Decision{}
	}

	d := Decision{Warning: &Warning{Candidate: candidate, Conflicts: found}}
	switch strategy {
	case Override:
		d.Disable = d.Warning.IDs()
	case Disable:
		d.SaveDisabled = true
	}
	return d
}

// Live returns the enabled definitions that compete with firing on host
// right now.
func Live(firing Entry, existing []Entry, host string) []Entry {
	norm := key.NormalizePattern(firing.Pattern)
	if norm == "" {
		return nil
	}

	var out []Entry
	for _, e := range existing {
		if e.ID == firing.ID || !e.Enabled {
			continue
		}
		if key.NormalizePattern(e.Pattern) == norm && scope.Matches(e.Scope, host) {
			out = append(out, e)
		}
	}
	return out
}
