package shortcut

import "github.com/dshills/keyweave/internal/input/scope"

// Builtin ids.
const (
	BuiltinScrollTop    = "builtin-scroll-top"
	BuiltinScrollBottom = "builtin-scroll-bottom"
)

// Builtins returns the definitions every registry starts with.
func Builtins() []Definition {
	return []Definition{
		{
			ID:       BuiltinScrollTop,
			Name:     "Scroll to top",
			Keys:     "g g",
			Action:   ScrollAction{Direction: "top", Smooth: true},
			Scope:    scope.Global,
			Enabled:  true,
			Category: CategoryNavigation,
			Builtin:  true,
		},
		{
			ID:       BuiltinScrollBottom,
			Name:     "Scroll to bottom",
			Keys:     "G",
			Action:   ScrollAction{Direction: "bottom", Smooth: true},
			Scope:    scope.Global,
			Enabled:  true,
			Category: CategoryNavigation,
			Builtin:  true,
		},
	}
}

// Merge lays stored definitions over the builtins: a stored definition with
// a builtin's id replaces it in place, others are appended in stored order.
// Builtin ids keep their builtin flag.
func Merge(builtins, stored []Definition) []Definition {
	out := make([]Definition, len(builtins), len(builtins)+len(stored))
	copy(out, builtins)
	index := make(map[string]int, len(out))
	for i, d := range out {
		index[d.ID] = i
	}

	for _, d := range stored {
		if i, ok := index[d.ID]; ok {
			d.Builtin = out[i].Builtin || d.Builtin
			out[i] = d
			continue
		}
		index[d.ID] = len(out)
		out = append(out, d)
	}
	return out
}
