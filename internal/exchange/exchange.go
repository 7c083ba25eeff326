// Package exchange encodes and decodes the portable export format:
// a JSON object with a "shortcuts" array and a "settings" object. YAML is
// accepted as an alternative encoding of the same document.
package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/dshills/keyweave/internal/shortcut"
)

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Bundle is the exported state.
type Bundle struct {
	Shortcuts []shortcut.Definition `json:"shortcuts"`
	Settings  shortcut.Settings     `json:"settings"`
}

// ValidationError rejects an import. Nothing is applied when it is returned.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return "invalid import: " + e.Reason + ": " + e.Err.Error()
	}
	return "invalid import: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(reason string, err error) error {
	return &ValidationError{Reason: reason, Err: err}
}

// Filename returns the default export file name for t.
func Filename(t time.Time) string {
	return "custom-shortcuts-" + t.Format("2006-01-02") + ".json"
}

// Export encodes definitions and settings. JSON output is indented.
func Export(b Bundle, format Format) ([]byte, error) {
	if b.Shortcuts == nil {
		b.Shortcuts = []shortcut.Definition{}
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	if format != FormatYAML {
		return append(data, '\n'), nil
	}

	// Go through a generic value so YAML keys match the JSON ones.
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return buf.Bytes(), nil
}

// Import decodes and validates an export document. The document must carry
// both a "shortcuts" array and a "settings" object; definitions must have
// unique non-empty ids and settings must validate. Shortcuts whose key
// pattern does not parse are accepted and stay inert.
func Import(data []byte, format Format) (Bundle, error) {
	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return Bundle{}, invalid("malformed YAML", err)
		}
		data = converted
	}

	if !gjson.ValidBytes(data) {
		return Bundle{}, invalid("malformed JSON", nil)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Bundle{}, invalid("document must be an object", nil)
	}
	if sc := root.Get("shortcuts"); !sc.IsArray() {
		return Bundle{}, invalid(`"shortcuts" must be an array`, nil)
	}
	if st := root.Get("settings"); !st.IsObject() {
		return Bundle{}, invalid(`"settings" must be an object`, nil)
	}

	var defs []shortcut.Definition
	if err := json.Unmarshal([]byte(root.Get("shortcuts").Raw), &defs); err != nil {
		return Bundle{}, invalid("decoding shortcuts", err)
	}
	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		if d.ID == "" {
			return Bundle{}, invalid(fmt.Sprintf("shortcut %d has no id", i), nil)
		}
		if seen[d.ID] {
			return Bundle{}, invalid(fmt.Sprintf("duplicate shortcut id %q", d.ID), nil)
		}
		seen[d.ID] = true
	}

	settings, err := shortcut.MergeSettings([]byte(root.Get("settings").Raw))
	if err != nil {
		return Bundle{}, invalid("decoding settings", err)
	}
	if err := settings.Validate(); err != nil {
		return Bundle{}, invalid("settings", err)
	}

	return Bundle{Shortcuts: defs, Settings: settings}, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	if generic == nil {
		return nil, errors.New("empty document")
	}
	return json.Marshal(generic)
}
