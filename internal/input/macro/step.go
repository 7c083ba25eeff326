package macro

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dshills/keyweave/internal/dom"
)

// Kind tags a step.
type Kind string

// Step kinds.
const (
	KindClick    Kind = "click"
	KindScroll   Kind = "scroll"
	KindType     Kind = "type"
	KindKeypress Kind = "keypress"
	KindFill     Kind = "fill"
)

// Point is a position in page coordinates.
type Point struct {
	X, Y float64
}

// Step is one recorded interaction. Only the fields of its Kind are used:
//
//	click:    Selector and/or At
//	scroll:   Direction
//	type:     Text
//	keypress: Key
//	fill:     Selector, Value
type Step struct {
	Kind      Kind
	Selector  string
	At        *Point
	Direction string
	Text      string
	Key       string
	Value     string
	Delay     time.Duration
}

// Click returns a click step. selector may be empty and at may be nil, but
// not both.
func Click(selector string, at *Point) Step {
	return Step{Kind: KindClick, Selector: selector, At: at}
}

// Scroll returns a scroll step.
func Scroll(direction string) Step {
	return Step{Kind: KindScroll, Direction: direction}
}

// Type returns a step that types text into the focused field.
func Type(text string) Step {
	return Step{Kind: KindType, Text: text}
}

// Keypress returns a keypress step.
func Keypress(k string) Step {
	return Step{Kind: KindKeypress, Key: k}
}

// Fill returns a step that sets a field's value.
func Fill(selector, value string) Step {
	return Step{Kind: KindFill, Selector: selector, Value: value}
}

// WithDelay returns a copy of s with the given delay.
func (s Step) WithDelay(d time.Duration) Step {
	s.Delay = d
	return s
}

// Describe returns a one-line summary for listings.
func (s Step) Describe() string {
	switch s.Kind {
	case KindClick:
		if s.Selector != "" {
			return "Click " + s.Selector
		}
		if s.At != nil {
			return fmt.Sprintf("Click @ %g,%g", s.At.X, s.At.Y)
		}
		return "Click"
	case KindScroll:
		return "Scroll " + s.direction()
	case KindType:
		return "Type " + strconv.Quote(s.Text)
	case KindKeypress:
		return "Key " + strconv.Quote(s.key())
	case KindFill:
		return fmt.Sprintf("Fill %s = %s", s.Selector, strconv.Quote(s.Value))
	}
	return string(s.Kind)
}

func (s Step) direction() string {
	if s.Direction == "" {
		return dom.ScrollDown
	}
	return s.Direction
}

func (s Step) key() string {
	if s.Key == "" {
		return "Enter"
	}
	return s.Key
}

// Validation errors.
var (
	ErrUnknownKind = errors.New("unknown step type")
	ErrNoTarget    = errors.New("click step needs a selector or coordinates")
	ErrNoSelector  = errors.New("fill step needs a selector")
	ErrNegative    = errors.New("negative step delay")
)

// Validate checks that the step carries what its kind needs.
func (s Step) Validate() error {
	if s.Delay < 0 {
		return ErrNegative
	}
	switch s.Kind {
	case KindClick:
		if s.Selector == "" && s.At == nil {
			return ErrNoTarget
		}
	case KindFill:
		if s.Selector == "" {
			return ErrNoSelector
		}
	case KindScroll:
		switch s.direction() {
		case dom.ScrollTop, dom.ScrollBottom, dom.ScrollUp, dom.ScrollDown, dom.ScrollPageUp, dom.ScrollPageDown:
		default:
			return fmt.Errorf("unknown scroll direction %q", s.Direction)
		}
	case KindType, KindKeypress:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	return nil
}

// ValidateSteps validates every step and reports the first failure with its
// position.
func ValidateSteps(steps []Step) error {
	for i, s := range steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// RemoveStep returns steps without the element at index i.
func RemoveStep(steps []Step, i int) ([]Step, error) {
	if i < 0 || i >= len(steps) {
		return steps, fmt.Errorf("step index %d out of range [0,%d)", i, len(steps))
	}
	out := make([]Step, 0, len(steps)-1)
	out = append(out, steps[:i]...)
	return append(out, steps[i+1:]...), nil
}

// Duration returns the summed delays of one pass over the steps.
func Duration(steps []Step) time.Duration {
	var d time.Duration
	for _, s := range steps {
		d += s.Delay
	}
	return d
}
