package macro

import (
	"errors"
	"sync"
	"time"

	"github.com/dshills/keyweave/internal/dom"
	"github.com/dshills/keyweave/internal/input/key"
)

// Recorder errors.
var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrNothingRecorded  = errors.New("nothing recorded")
)

// SelectorFunc synthesizes a replay selector for an element.
type SelectorFunc func(*dom.Element) string

// State is the recorder state. The zero value is idle.
type State struct {
	Recording bool
	Start     time.Time
	Last      time.Time
	Steps     []Step
}

// Begin returns a fresh recording started at now.
func (s State) Begin(now time.Time) State {
	return State{Recording: true, Start: now, Last: now}
}

// Apply folds one DOM event into the state. Events that produce no step
// return the state unchanged.
func (s State) Apply(ev *dom.Event, selector SelectorFunc) State {
	if !s.Recording || ev == nil {
		return s
	}
	if ev.Target != nil && ev.Target.InUI() {
		return s
	}
	if selector == nil {
		selector = dom.Synthesize
	}

	step, ok := stepFor(ev, selector)
	if !ok {
		return s
	}

	step.Delay = max(ev.Time.Sub(s.Last), 0)
	s.Last = ev.Time
	// Full slice expression so earlier states keep their own backing array.
	s.Steps = append(s.Steps[:len(s.Steps):len(s.Steps)], step)
	return s
}

func stepFor(ev *dom.Event, selector SelectorFunc) (Step, bool) {
	switch ev.Type {
	case dom.EventClick:
		if ev.Target == nil {
			return Step{}, false
		}
		return Click(selector(ev.Target), &Point{X: ev.X, Y: ev.Y}), true

	case dom.EventKeyDown:
		k := ev.Key.Key
		switch {
		case key.IsModifierKey(k):
			return Step{}, false
		case k == "Enter":
			return Keypress("Enter"), true
		case key.IsPrintable(k):
			return Type(k), true
		}
		return Step{}, false

	case dom.EventScroll:
		direction := dom.ScrollDown
		if ev.DeltaY < 0 {
			direction = dom.ScrollUp
		}
		return Scroll(direction), true

	case dom.EventInput:
		if ev.Target == nil || !ev.Target.IsTextField() {
			return Step{}, false
		}
		return Fill(selector(ev.Target), ev.Value), true
	}
	return Step{}, false
}

// Recorder captures page events into steps while recording.
type Recorder struct {
	mu       sync.Mutex
	state    State
	selector SelectorFunc
}

// NewRecorder creates an idle recorder. A nil selector uses dom.Synthesize.
func NewRecorder(selector SelectorFunc) *Recorder {
	if selector == nil {
		selector = dom.Synthesize
	}
	return &Recorder{selector: selector}
}

// Start begins a recording at now, discarding any previous steps.
func (r *Recorder) Start(now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Recording {
		return ErrAlreadyRecording
	}
	r.state = r.state.Begin(now)
	return nil
}

// Stop ends the recording and returns its steps. An empty recording is
// discarded and reported as ErrNothingRecorded.
func (r *Recorder) Stop() ([]Step, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Recording {
		return nil, ErrNotRecording
	}
	steps := r.state.Steps
	r.state = State{}
	if len(steps) == 0 {
		return nil, ErrNothingRecorded
	}
	return steps, nil
}

// Record applies one event. It is a dom.Listener.
func (r *Recorder) Record(ev *dom.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = r.state.Apply(ev, r.selector)
}

// IsRecording reports whether a recording is in progress.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Recording
}

// Steps returns a copy of the steps recorded so far.
func (r *Recorder) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Step, len(r.state.Steps))
	copy(out, r.state.Steps)
	return out
}

// Elapsed returns how long the current recording has been running.
func (r *Recorder) Elapsed(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Recording {
		return 0
	}
	return now.Sub(r.state.Start)
}
