package shortcut

import (
	"strings"

	"github.com/dshills/keyweave/internal/input/key"
	"github.com/dshills/keyweave/internal/input/macro"
	"github.com/dshills/keyweave/internal/input/scope"
)

// DefaultMacroName names macros saved without a name.
const DefaultMacroName = "Macro"

// MacroOptions describes a macro being saved from recorded steps.
type MacroOptions struct {
	Name  string
	Keys  string
	Scope string
	Loop  int
	Steps []macro.Step
}

// NewMacro builds a macro definition. Keys and at least one step are
// required; the loop count is clamped to one or more.
func NewMacro(opts MacroOptions) (Definition, error) {
	if strings.TrimSpace(opts.Keys) == "" {
		return Definition{}, key.ErrEmptyPattern
	}
	if len(opts.Steps) == 0 {
		return Definition{}, macro.ErrNoSteps
	}
	if err := macro.ValidateSteps(opts.Steps); err != nil {
		return Definition{}, err
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = DefaultMacroName
	}
	sc := strings.TrimSpace(opts.Scope)
	if sc == "" {
		sc = scope.Global
	}
	steps := make([]macro.Step, len(opts.Steps))
	copy(steps, opts.Steps)

	return Definition{
		ID:       NewID(),
		Name:     name,
		Keys:     strings.TrimSpace(opts.Keys),
		Action:   MacroAction{Steps: steps, Loop: max(opts.Loop, 1)},
		Scope:    sc,
		Enabled:  true,
		Category: CategoryMacro,
	}, nil
}
