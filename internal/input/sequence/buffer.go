package sequence

import (
	"time"

	"github.com/dshills/keyweave/internal/input/key"
)

// Defaults match the stored settings defaults.
const (
	DefaultTimeout   = 500 * time.Millisecond
	DefaultMaxLength = 4
)

// Config bounds the buffer.
type Config struct {
	// Timeout clears the buffer when the gap since the previous event is
	// strictly greater than it.
	Timeout time.Duration

	// MaxLength is the number of events kept; older ones are dropped.
	MaxLength int
}

// DefaultConfig returns the default buffer bounds.
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout, MaxLength: DefaultMaxLength}
}

func (c Config) maxLength() int {
	if c.MaxLength < 1 {
		return 1
	}
	return c.MaxLength
}

// Buffer is the FIFO of recent keystrokes.
type Buffer struct {
	Events []key.Event
	Last   time.Time
}

// Push returns the buffer after e arrived at now. The receiver is not
// modified.
func (b Buffer) Push(e key.Event, now time.Time, cfg Config) Buffer {
	var events []key.Event
	if !b.Expired(now, cfg) {
		events = make([]key.Event, len(b.Events), len(b.Events)+1)
		copy(events, b.Events)
	}
	events = append(events, e)
	if over := len(events) - cfg.maxLength(); over > 0 {
		events = events[over:]
	}
	return Buffer{Events: events, Last: now}
}

// Expired reports whether an event at now would clear the buffer first.
func (b Buffer) Expired(now time.Time, cfg Config) bool {
	if b.Last.IsZero() {
		return false
	}
	return now.Sub(b.Last) > cfg.Timeout
}

// Len returns the number of buffered events.
func (b Buffer) Len() int {
	return len(b.Events)
}

// String renders the buffer as a pattern-style string, e.g. "g g".
func (b Buffer) String() string {
	p := make(key.Pattern, len(b.Events))
	for i, e := range b.Events {
		p[i] = key.Chord{Key: e.Key, Modifiers: e.Modifiers}
	}
	return p.String()
}
