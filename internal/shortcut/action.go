package shortcut

import (
	"errors"
	"fmt"

	"github.com/dshills/keyweave/internal/dom"
	"github.com/dshills/keyweave/internal/input/macro"
)

// ActionType is the stored name of an action.
type ActionType string

// Action types. The JSON names match the stored data format.
const (
	ActionScroll     ActionType = "scroll"
	ActionNavigate   ActionType = "navigate"
	ActionClick      ActionType = "clickSelector"
	ActionFill       ActionType = "fillInput"
	ActionMacro      ActionType = "macro"
	ActionCustomCode ActionType = "customCode"
)

// Aliases accepted when decoding older data.
var actionAliases = map[string]ActionType{
	"nav":        ActionNavigate,
	"javascript": ActionCustomCode,
}

// Action is one of ScrollAction, NavigateAction, ClickAction, FillAction,
// MacroAction, CustomCodeAction or UnknownAction.
type Action interface {
	Type() ActionType
	Validate() error
	isAction()
}

// ScrollAction scrolls the page.
type ScrollAction struct {
	Direction string `json:"direction"`
	Smooth    bool   `json:"smooth"`
}

// NavigateAction moves through history or reloads.
type NavigateAction struct {
	Kind string `json:"type"`
}

// ClickAction clicks the first element matching Selector.
type ClickAction struct {
	Selector string `json:"selector"`
}

// FillAction sets the value of the first element matching Selector and
// fires input and change.
type FillAction struct {
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

// MacroAction replays recorded steps Loop times.
type MacroAction struct {
	Steps []macro.Step `json:"steps"`
	Loop  int          `json:"loop"`
	Speed float64      `json:"speed,omitempty"`
}

// CustomCodeAction runs a script.
type CustomCodeAction struct {
	Code string `json:"code"`
}

// UnknownAction preserves an action type this version does not know.
// Executing it reports an error.
type UnknownAction struct {
	Name   string
	Params []byte
}

func (ScrollAction) Type() ActionType     { return ActionScroll }
func (NavigateAction) Type() ActionType   { return ActionNavigate }
func (ClickAction) Type() ActionType      { return ActionClick }
func (FillAction) Type() ActionType       { return ActionFill }
func (MacroAction) Type() ActionType      { return ActionMacro }
func (CustomCodeAction) Type() ActionType { return ActionCustomCode }
func (a UnknownAction) Type() ActionType  { return ActionType(a.Name) }

func (ScrollAction) isAction()     {}
func (NavigateAction) isAction()   {}
func (ClickAction) isAction()      {}
func (FillAction) isAction()       {}
func (MacroAction) isAction()      {}
func (CustomCodeAction) isAction() {}
func (UnknownAction) isAction()    {}

// ErrInvalidAction wraps action validation failures.
var ErrInvalidAction = errors.New("invalid action")

func (a ScrollAction) Validate() error {
	switch a.Direction {
	case dom.ScrollTop, dom.ScrollBottom, dom.ScrollUp, dom.ScrollDown, dom.ScrollPageUp, dom.ScrollPageDown:
		return nil
	}
	return fmt.Errorf("%w: unknown scroll direction %q", ErrInvalidAction, a.Direction)
}

func (a NavigateAction) Validate() error {
	switch a.Kind {
	case dom.NavBack, dom.NavForward, dom.NavReload:
		return nil
	}
	return fmt.Errorf("%w: unknown navigation %q", ErrInvalidAction, a.Kind)
}

func (a ClickAction) Validate() error {
	if a.Selector == "" {
		return fmt.Errorf("%w: click needs a selector", ErrInvalidAction)
	}
	return nil
}

func (a FillAction) Validate() error {
	if a.Selector == "" {
		return fmt.Errorf("%w: fill needs a selector", ErrInvalidAction)
	}
	return nil
}

func (a MacroAction) Validate() error {
	if len(a.Steps) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidAction, macro.ErrNoSteps)
	}
	if err := macro.ValidateSteps(a.Steps); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}
	return nil
}

func (a CustomCodeAction) Validate() error {
	if a.Code == "" {
		return fmt.Errorf("%w: empty code", ErrInvalidAction)
	}
	return nil
}

func (a UnknownAction) Validate() error {
	return fmt.Errorf("%w: unknown action %q", ErrInvalidAction, a.Name)
}

// Macro returns the playable form of the action.
func (a MacroAction) Macro() macro.Macro {
	return macro.Macro{Steps: a.Steps, Loop: max(a.Loop, 1), Speed: a.Speed}
}

// Describe returns a short human summary of an action.
func Describe(a Action) string {
	switch a := a.(type) {
	case ScrollAction:
		return "Scroll " + a.Direction
	case NavigateAction:
		return "Navigate " + a.Kind
	case ClickAction:
		return "Click " + a.Selector
	case FillAction:
		return fmt.Sprintf("Fill %s = %q", a.Selector, a.Value)
	case MacroAction:
		return fmt.Sprintf("Macro: %d steps x%d", len(a.Steps), max(a.Loop, 1))
	case CustomCodeAction:
		return "Custom code"
	case UnknownAction:
		return "Unknown action: " + a.Name
	case nil:
		return "No action"
	}
	return string(a.Type())
}

// Category names.
const (
	CategoryNavigation = "navigation"
	CategoryMacro      = "macro"
	CategoryCustom     = "custom"
	CategoryGeneral    = "general"
)

// InferCategory picks a listing category from the action type.
func InferCategory(a Action) string {
	switch a.(type) {
	case ScrollAction, NavigateAction:
		return CategoryNavigation
	case MacroAction:
		return CategoryMacro
	case CustomCodeAction:
		return CategoryCustom
	}
	return CategoryGeneral
}
