package macro

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// persistedStep is the JSON form of a Step. Delays are milliseconds.
type persistedStep struct {
	Type      Kind     `json:"type"`
	Selector  *string  `json:"selector,omitempty"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Text      string   `json:"text,omitempty"`
	Key       string   `json:"key,omitempty"`
	Value     *string  `json:"value,omitempty"`
	Delay     float64  `json:"delay"`
}

// persistedData is the root of a standalone steps file.
type persistedData struct {
	Version int     `json:"version"`
	SavedAt string  `json:"saved_at,omitempty"`
	Loop    int     `json:"loop,omitempty"`
	Speed   float64 `json:"speed,omitempty"`
	Steps   []Step  `json:"steps"`
}

const currentVersion = 1

// MarshalJSON encodes the step with only the fields its kind uses.
func (s Step) MarshalJSON() ([]byte, error) {
	p := persistedStep{
		Type:  s.Kind,
		Delay: float64(s.Delay) / float64(time.Millisecond),
	}
	switch s.Kind {
	case KindClick:
		if s.Selector != "" {
			p.Selector = &s.Selector
		}
		if s.At != nil {
			p.X, p.Y = &s.At.X, &s.At.Y
		}
	case KindScroll:
		p.Direction = s.Direction
	case KindType:
		p.Text = s.Text
	case KindKeypress:
		p.Key = s.Key
	case KindFill:
		p.Selector = &s.Selector
		p.Value = &s.Value
	}
	return json.Marshal(p)
}

// UnmarshalJSON decodes a step. Coordinates are kept only when both are
// present.
func (s *Step) UnmarshalJSON(data []byte) error {
	var p persistedStep
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Step{
		Kind:      p.Type,
		Direction: p.Direction,
		Text:      p.Text,
		Key:       p.Key,
		Delay:     time.Duration(math.Round(p.Delay * float64(time.Millisecond))),
	}
	if p.Selector != nil {
		s.Selector = *p.Selector
	}
	if p.Value != nil {
		s.Value = *p.Value
	}
	if p.X != nil && p.Y != nil {
		s.At = &Point{X: *p.X, Y: *p.Y}
	}
	return nil
}

// Save writes a macro to path as JSON.
// The file is written atomically using a temporary file and rename.
func Save(m Macro, path string) error {
	data := persistedData{
		Version: currentVersion,
		SavedAt: time.Now().UTC().Format(time.RFC3339),
		Loop:    m.Loop,
		Speed:   m.Speed,
		Steps:   m.Steps,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal macro: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads a macro written by Save. A bare JSON array of steps is accepted
// too.
func Load(path string) (Macro, error) {
	jsonData, err := os.ReadFile(path)
	if err != nil {
		return Macro{}, fmt.Errorf("failed to read macro file: %w", err)
	}

	var steps []Step
	if err := json.Unmarshal(jsonData, &steps); err == nil {
		return Macro{Steps: steps, Loop: 1}, ValidateSteps(steps)
	}

	var data persistedData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return Macro{}, fmt.Errorf("failed to unmarshal macro: %w", err)
	}
	if data.Version > currentVersion {
		return Macro{}, fmt.Errorf("unsupported macro file version: %d (max supported: %d)",
			data.Version, currentVersion)
	}

	m := Macro{Steps: data.Steps, Loop: max(data.Loop, 1), Speed: data.Speed}
	return m, ValidateSteps(m.Steps)
}
