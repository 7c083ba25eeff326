package dom

import (
	"time"

	"github.com/dshills/keyweave/internal/input/key"
)

// EventType names a DOM event.
type EventType string

// Event types dispatched by a Page.
const (
	EventClick   EventType = "click"
	EventKeyDown EventType = "keydown"
	EventKeyUp   EventType = "keyup"
	EventScroll  EventType = "scroll"
	EventInput   EventType = "input"
	EventChange  EventType = "change"
)

// Event is a dispatched DOM event. Listeners receive a pointer and may call
// PreventDefault.
type Event struct {
	Type   EventType
	Target *Element
	Time   time.Time

	// Click coordinates.
	X, Y float64

	// Key for keydown and keyup.
	Key key.RawEvent

	// DeltaY is the vertical scroll amount; negative scrolls up.
	DeltaY float64

	// Value of the target after an input or change.
	Value string

	// Synthetic is set on events generated by commands rather than by the
	// user.
	Synthetic bool

	prevented bool
}

// PreventDefault suppresses the page's default handling of the event.
func (e *Event) PreventDefault() {
	e.prevented = true
}

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool {
	return e.prevented
}

// Listener receives dispatched events.
type Listener func(ev *Event)
