package shortcut

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/keyweave/internal/input/conflict"
	"github.com/dshills/keyweave/internal/input/key"
	"github.com/dshills/keyweave/internal/input/scope"
)

// Definition binds a key pattern to an action within a scope.
type Definition struct {
	ID       string
	Name     string
	Keys     string
	Action   Action
	Scope    string
	Enabled  bool
	Category string
	Builtin  bool
}

// NewID returns a fresh definition id.
func NewID() string {
	return uuid.NewString()
}

// Pattern parses the definition's keys. Definitions whose keys are empty or
// fail to parse are kept but never match.
func (d Definition) Pattern() (key.Pattern, error) {
	p, err := key.ParsePattern(d.Keys)
	if err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return nil, key.ErrEmptyPattern
	}
	return p, nil
}

// Entry returns the conflict-detection view of the definition.
func (d Definition) Entry() conflict.Entry {
	return conflict.Entry{ID: d.ID, Name: d.Name, Pattern: d.Keys, Scope: d.Scope, Enabled: d.Enabled}
}

// AppliesTo reports whether the definition is enabled and in scope for host.
func (d Definition) AppliesTo(host string) bool {
	return d.Enabled && scope.Matches(d.Scope, host)
}

// Label returns the name, or the keys when the name is empty.
func (d Definition) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Keys
}

// normalize fills defaults for a definition about to be stored.
func (d Definition) normalize() Definition {
	if d.ID == "" {
		d.ID = NewID()
	}
	d.Keys = strings.TrimSpace(d.Keys)
	if strings.TrimSpace(d.Scope) == "" {
		d.Scope = scope.Global
	}
	if d.Category == "" {
		d.Category = InferCategory(d.Action)
	}
	return d
}

// storedDefinition is the JSON form used by storage and import/export.
type storedDefinition struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Keys     string          `json:"keys"`
	Action   string          `json:"action"`
	Params   json.RawMessage `json:"params,omitempty"`
	Scope    string          `json:"scope,omitempty"`
	Enabled  *bool           `json:"enabled,omitempty"`
	Category string          `json:"category,omitempty"`
	Builtin  bool            `json:"builtin,omitempty"`
}

// MarshalJSON encodes the definition with its action as a type name plus a
// params object.
func (d Definition) MarshalJSON() ([]byte, error) {
	enabled := d.Enabled
	s := storedDefinition{
		ID:       d.ID,
		Name:     d.Name,
		Keys:     d.Keys,
		Scope:    d.Scope,
		Enabled:  &enabled,
		Category: d.Category,
		Builtin:  d.Builtin,
	}

	switch a := d.Action.(type) {
	case nil:
	case UnknownAction:
		s.Action = a.Name
		s.Params = a.Params
	default:
		s.Action = string(a.Type())
		params, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encoding %s params: %w", a.Type(), err)
		}
		s.Params = params
	}
	return json.Marshal(s)
}

// UnmarshalJSON decodes a stored definition. A missing enabled flag means
// enabled; legacy action names are mapped to their current types.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var s storedDefinition
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	action, err := decodeAction(s.Action, s.Params)
	if err != nil {
		return fmt.Errorf("shortcut %q: %w", s.ID, err)
	}
	*d = Definition{
		ID:       s.ID,
		Name:     s.Name,
		Keys:     s.Keys,
		Action:   action,
		Scope:    s.Scope,
		Enabled:  s.Enabled == nil || *s.Enabled,
		Category: s.Category,
		Builtin:  s.Builtin,
	}
	return nil
}

func decodeAction(name string, params json.RawMessage) (Action, error) {
	t := ActionType(name)
	if alias, ok := actionAliases[name]; ok {
		t = alias
	}
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage("{}")
	}

	switch t {
	case ActionScroll:
		a := struct {
			Direction string `json:"direction"`
			Smooth    *bool  `json:"smooth"`
		}{}
		if err := json.Unmarshal(params, &a); err != nil {
			return nil, err
		}
		out := ScrollAction{Direction: a.Direction, Smooth: a.Smooth == nil || *a.Smooth}
		if out.Direction == "" {
			out.Direction = "down"
		}
		return out, nil
	case ActionNavigate:
		var a NavigateAction
		if err := json.Unmarshal(params, &a); err != nil {
			return nil, err
		}
		if a.Kind == "" {
			a.Kind = "back"
		}
		return a, nil
	case ActionClick:
		var a ClickAction
		err := json.Unmarshal(params, &a)
		return a, err
	case ActionFill:
		var a FillAction
		err := json.Unmarshal(params, &a)
		return a, err
	case ActionMacro:
		var a MacroAction
		if err := json.Unmarshal(params, &a); err != nil {
			return nil, err
		}
		a.Loop = max(a.Loop, 1)
		return a, nil
	case ActionCustomCode:
		var a CustomCodeAction
		err := json.Unmarshal(params, &a)
		return a, err
	case "":
		return nil, nil
	}
	return UnknownAction{Name: name, Params: params}, nil
}
