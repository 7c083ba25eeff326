package shortcut

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/keyweave/internal/input/conflict"
	"github.com/dshills/keyweave/internal/input/key"
	"github.com/dshills/keyweave/internal/input/sequence"
)

// Settings are the user-editable engine settings. Durations are stored in
// milliseconds.
type Settings struct {
	ManagerHotkey      string            `json:"managerHotkey" toml:"managerHotkey" yaml:"managerHotkey"`
	RecordHotkey       string            `json:"recordHotkey" toml:"recordHotkey" yaml:"recordHotkey"`
	CaptureMouse       bool              `json:"captureMouse" toml:"captureMouse" yaml:"captureMouse"`
	AutoPauseIdle      int               `json:"autoPauseIdle" toml:"autoPauseIdle" yaml:"autoPauseIdle"`
	MaxRecordingLength int               `json:"maxRecordingLength" toml:"maxRecordingLength" yaml:"maxRecordingLength"`
	ConflictStrategy   conflict.Strategy `json:"conflictStrategy" toml:"conflictStrategy" yaml:"conflictStrategy"`
	ShowToolbar        bool              `json:"showToolbar" toml:"showToolbar" yaml:"showToolbar"`
	SequenceTimeout    int               `json:"sequenceTimeout" toml:"sequenceTimeout" yaml:"sequenceTimeout"`
	MaxSequenceLength  int               `json:"maxSequenceLength" toml:"maxSequenceLength" yaml:"maxSequenceLength"`
	AmbiguityGrace     int               `json:"ambiguityGrace" toml:"ambiguityGrace" yaml:"ambiguityGrace"`
	PlaybackSpeed      float64           `json:"playbackSpeed" toml:"playbackSpeed" yaml:"playbackSpeed"`
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		ManagerHotkey:      "Alt+K",
		RecordHotkey:       "Alt+Shift+R",
		CaptureMouse:       false,
		AutoPauseIdle:      2000,
		MaxRecordingLength: 300000,
		ConflictStrategy:   conflict.Warn,
		ShowToolbar:        true,
		SequenceTimeout:    500,
		MaxSequenceLength:  4,
		AmbiguityGrace:     0,
		PlaybackSpeed:      1,
	}
}

// ErrUnknownSetting is returned for keys that are not settings.
var ErrUnknownSetting = errors.New("unknown setting")

// Validate checks ranges and hotkey syntax.
func (s Settings) Validate() error {
	var errs []error
	for name, hk := range map[string]string{"managerHotkey": s.ManagerHotkey, "recordHotkey": s.RecordHotkey} {
		if hk == "" {
			continue
		}
		p, err := key.ParsePattern(hk)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		} else if p.IsSequence() {
			errs = append(errs, fmt.Errorf("%s: must be a single chord", name))
		}
	}
	if _, err := conflict.ParseStrategy(string(s.ConflictStrategy)); err != nil {
		errs = append(errs, err)
	}
	if s.SequenceTimeout <= 0 {
		errs = append(errs, errors.New("sequenceTimeout must be positive"))
	}
	if s.MaxSequenceLength < 1 {
		errs = append(errs, errors.New("maxSequenceLength must be at least 1"))
	}
	if s.AmbiguityGrace < 0 {
		errs = append(errs, errors.New("ambiguityGrace must not be negative"))
	}
	if s.AutoPauseIdle < 0 || s.MaxRecordingLength < 0 {
		errs = append(errs, errors.New("recording limits must not be negative"))
	}
	if s.PlaybackSpeed < 0 {
		errs = append(errs, errors.New("playbackSpeed must not be negative"))
	}
	return errors.Join(errs...)
}

// SequenceConfig returns the buffer bounds.
func (s Settings) SequenceConfig() sequence.Config {
	return sequence.Config{
		Timeout:   time.Duration(s.SequenceTimeout) * time.Millisecond,
		MaxLength: s.MaxSequenceLength,
	}
}

// Grace returns the ambiguity grace window, capped at the sequence timeout.
func (s Settings) Grace() time.Duration {
	return time.Duration(min(s.AmbiguityGrace, s.SequenceTimeout)) * time.Millisecond
}

// MaxRecording returns the declared recording limit.
func (s Settings) MaxRecording() time.Duration {
	return time.Duration(s.MaxRecordingLength) * time.Millisecond
}

// Strategy returns the conflict strategy, defaulting to warn.
func (s Settings) Strategy() conflict.Strategy {
	st, err := conflict.ParseStrategy(string(s.ConflictStrategy))
	if err != nil {
		return conflict.Warn
	}
	return st
}

// Keys returns the setting names in sorted order.
func (s Settings) Keys() []string {
	data, _ := json.Marshal(s)
	var keys []string
	gjson.ParseBytes(data).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	sort.Strings(keys)
	return keys
}

// Get returns one setting as its JSON text.
func (s Settings) Get(name string) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	r := gjson.GetBytes(data, gjson.Escape(name))
	if !r.Exists() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}
	return r.Raw, nil
}

// Set returns a copy with one setting changed. value is JSON ("500",
// "true", "\"Alt+J\"") or, when it is not valid JSON, a bare string. The
// result is validated.
func (s Settings) Set(name, value string) (Settings, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return s, err
	}
	path := gjson.Escape(name)
	if !gjson.GetBytes(data, path).Exists() {
		return s, fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}

	if gjson.Valid(value) {
		data, err = sjson.SetRawBytes(data, path, []byte(value))
	} else {
		data, err = sjson.SetBytes(data, path, value)
	}
	if err != nil {
		return s, fmt.Errorf("setting %s: %w", name, err)
	}

	var out Settings
	if err := json.Unmarshal(data, &out); err != nil {
		return s, fmt.Errorf("setting %s: %w", name, err)
	}
	if err := out.Validate(); err != nil {
		return s, err
	}
	return out, nil
}

// MergeSettings overlays stored settings JSON onto the defaults key by key.
// Unknown keys are ignored.
func MergeSettings(stored []byte) (Settings, error) {
	s := DefaultSettings()
	if len(stored) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(stored, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("decoding settings: %w", err)
	}
	return s, nil
}
