package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Parse errors. A definition whose pattern fails to parse is kept but never
// matches.
var (
	ErrEmptyPattern   = errors.New("empty key pattern")
	ErrInvalidPattern = errors.New("invalid key pattern")
)

// Chord is a single keystroke specification: modifiers plus a key token.
type Chord struct {
	Key       string
	Modifiers Modifier
}

// Pattern is an ordered list of chords. A pattern of length one is a direct
// chord; longer patterns are sequences.
type Pattern []Chord

// Len returns the number of chords in the pattern.
func (p Pattern) Len() int {
	return len(p)
}

// IsSequence reports whether the pattern spans more than one keystroke.
func (p Pattern) IsSequence() bool {
	return len(p) > 1
}

// String formats the pattern back into its human-readable form.
func (p Pattern) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// MatchesTail reports whether the last len(p) events equal the pattern in
// order. It returns false when fewer events are available.
func (p Pattern) MatchesTail(events []Event) bool {
	if len(p) == 0 || len(events) < len(p) {
		return false
	}
	start := len(events) - len(p)
	for i, c := range p {
		if !c.Matches(events[start+i]) {
			return false
		}
	}
	return true
}

// PrefixOfTail reports whether the last k events equal the first k chords of
// the pattern for some k in [1, len(p)). Such a pattern could still be
// completed by further keystrokes.
func (p Pattern) PrefixOfTail(events []Event) bool {
	for k := len(p) - 1; k >= 1; k-- {
		if p[:k].MatchesTail(events) {
			return true
		}
	}
	return false
}

// String formats the chord as "Ctrl+Alt+Shift+Meta+Key".
func (c Chord) String() string {
	mods := c.Modifiers.String()
	if mods == "" {
		return displayKey(c.Key)
	}
	return mods + "+" + displayKey(c.Key)
}

// Matches reports whether a normalized event satisfies the chord.
//
// Ctrl, Alt and Meta must match exactly and keys compare case-insensitively.
// Shift follows the key: a bare uppercase letter ("G") requires Shift without
// the pattern spelling it out, a lowercase letter forbids it unless the
// pattern names Shift, and caseless characters only check Shift when asked.
// A "G" typed with Caps Lock on and no Shift held therefore does not match
// "G", and does match "g".
func (c Chord) Matches(e Event) bool {
	const exact = ModCtrl | ModAlt | ModMeta
	if c.Modifiers&exact != e.Modifiers&exact {
		return false
	}
	if !strings.EqualFold(c.Key, e.Key) {
		return false
	}
	return c.shiftMatches(e.Modifiers.HasShift())
}

func (c Chord) shiftMatches(held bool) bool {
	if !IsPrintable(c.Key) {
		return c.Modifiers.HasShift() == held
	}
	r, _ := utf8.DecodeRuneInString(c.Key)
	if unicode.ToUpper(r) == unicode.ToLower(r) {
		return !c.Modifiers.HasShift() || held
	}
	if c.Modifiers.HasShift() {
		return held
	}
	if c.Modifiers == ModNone && unicode.IsUpper(r) {
		return held
	}
	return !held
}

// ParsePattern parses a pattern such as "Ctrl+Shift+K", "g g" or "G" into its
// chords. An empty string yields an empty pattern and no error.
//
// The key keeps its case: "G" parses to a chord with key "G" and no explicit
// Shift flag.
func ParsePattern(s string) (Pattern, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, nil
	}

	pattern := make(Pattern, 0, len(fields))
	for _, f := range fields {
		c, err := parseChord(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, s, err)
		}
		pattern = append(pattern, c)
	}
	return pattern, nil
}

// MustParsePattern parses a pattern and panics on error.
// Use only for known-valid patterns in initialization code.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic("invalid key pattern: " + s + ": " + err.Error())
	}
	return p
}

// parseChord parses one whitespace-free chord token.
func parseChord(token string) (Chord, error) {
	if token == "+" {
		return Chord{Key: "+"}, nil
	}

	var c Chord
	body := token
	// "Ctrl++" binds the plus key itself.
	if strings.HasSuffix(body, "++") {
		c.Key = "+"
		body = strings.TrimSuffix(body, "++")
	}

	for _, part := range strings.Split(body, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			if body == "" {
				continue
			}
			return Chord{}, errors.New("empty chord segment")
		}
		if mod := ModifierFromName(part); mod != ModNone {
			c.Modifiers = c.Modifiers.With(mod)
			continue
		}
		if c.Key != "" {
			return Chord{}, fmt.Errorf("more than one key: %q and %q", c.Key, part)
		}
		c.Key = CanonicalKey(part)
	}

	if c.Key == "" {
		return Chord{}, errors.New("chord has no key")
	}
	return c, nil
}

// NormalizePattern returns the comparison form of a pattern string: trimmed
// and case-folded. Two definitions conflict when these forms are equal.
func NormalizePattern(s string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(s))
}
