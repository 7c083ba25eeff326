package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dshills/keyweave/internal/shortcut"
)

// Storage locations of the engine state.
const (
	Namespace   = "shortcuts"
	KeyData     = "data"
	KeySettings = "settings"
)

// State is everything the engine persists.
type State struct {
	Definitions []shortcut.Definition
	Settings    shortcut.Settings
}

// LoadState reads the stored definitions and settings, laying them over the
// builtins and the default settings. Missing keys are not an error. On a
// decode or validation failure the defaults are returned together with the
// error.
func LoadState(ctx context.Context, s Store) (State, error) {
	st := State{
		Definitions: shortcut.Builtins(),
		Settings:    shortcut.DefaultSettings(),
	}

	var errs []error

	data, err := s.Get(ctx, Namespace, KeyData)
	switch {
	case IsNotFound(err):
	case err != nil:
		errs = append(errs, err)
	default:
		var stored []shortcut.Definition
		if err := json.Unmarshal(data, &stored); err != nil {
			errs = append(errs, wrap("load", Namespace, KeyData, fmt.Errorf("decoding definitions: %w", err)))
		} else {
			st.Definitions = shortcut.Merge(st.Definitions, stored)
		}
	}

	raw, err := s.Get(ctx, Namespace, KeySettings)
	switch {
	case IsNotFound(err):
	case err != nil:
		errs = append(errs, err)
	default:
		settings, err := shortcut.MergeSettings(raw)
		if err == nil {
			err = settings.Validate()
		}
		if err != nil {
			errs = append(errs, wrap("load", Namespace, KeySettings, err))
		} else {
			st.Settings = settings
		}
	}

	return st, errors.Join(errs...)
}

// SaveDefinitions stores the full definition list.
func SaveDefinitions(ctx context.Context, s Store, defs []shortcut.Definition) error {
	if defs == nil {
		defs = []shortcut.Definition{}
	}
	data, err := json.Marshal(defs)
	if err != nil {
		return wrap("save", Namespace, KeyData, err)
	}
	return s.Set(ctx, Namespace, KeyData, data)
}

// SaveSettings stores the settings object.
func SaveSettings(ctx context.Context, s Store, settings shortcut.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return wrap("save", Namespace, KeySettings, err)
	}
	return s.Set(ctx, Namespace, KeySettings, data)
}

// SaveState stores definitions and settings together. A failed write
// leaves both stored values as they were.
func SaveState(ctx context.Context, s Store, st State) error {
	defs := st.Definitions
	if defs == nil {
		defs = []shortcut.Definition{}
	}
	data, err := json.Marshal(defs)
	if err != nil {
		return wrap("save", Namespace, KeyData, err)
	}
	settings, err := json.Marshal(st.Settings)
	if err != nil {
		return wrap("save", Namespace, KeySettings, err)
	}
	return s.SetMany(ctx, Namespace, map[string][]byte{
		KeyData:     data,
		KeySettings: settings,
	})
}
