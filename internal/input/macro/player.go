package macro

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dshills/keyweave/internal/dom"
)

// Player errors.
var (
	ErrAlreadyPlaying = errors.New("a macro is already playing")
	ErrNoSteps        = errors.New("macro has no steps")
)

// PlaybackError reports the step that aborted a playback.
type PlaybackError struct {
	Iteration int
	Step      int
	Kind      Kind
	Err       error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("macro step %d (%s), pass %d: %v", e.Step+1, e.Kind, e.Iteration+1, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Sink executes replayed steps. *dom.Page implements it.
type Sink interface {
	Query(selector string) (*dom.Element, error)
	Click(el *dom.Element) *dom.Event
	ClickAt(x, y float64) (*dom.Event, error)
	Scroll(direction string, smooth bool) error
	TypeText(text string) bool
	Keypress(k string)
	SetValue(el *dom.Element, value string) error
}

// Macro is a playable step list.
type Macro struct {
	Steps []Step
	// Loop is the number of passes; values below one mean one.
	Loop int
	// Speed divides every delay; values at or below zero mean one.
	Speed float64
}

func (m Macro) loops() int {
	return max(m.Loop, 1)
}

func (m Macro) speed() float64 {
	if m.Speed <= 0 {
		return 1
	}
	return m.Speed
}

// Player replays macros one at a time.
type Player struct {
	sink  Sink
	clock clockwork.Clock

	playing atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// NewPlayer creates a player. A nil clock uses the real clock.
func NewPlayer(sink Sink, clock clockwork.Clock) *Player {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Player{sink: sink, clock: clock}
}

// Play runs the macro to completion and returns the first step error, or the
// context error when cancelled.
func (p *Player) Play(ctx context.Context, m Macro) error {
	ctx, err := p.acquire(ctx, m)
	if err != nil {
		return err
	}
	defer p.release()
	return p.run(ctx, m)
}

// Start runs the macro in a goroutine. The returned channel yields the
// playback result and is then closed.
func (p *Player) Start(ctx context.Context, m Macro) (<-chan error, error) {
	ctx, err := p.acquire(ctx, m)
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		err := p.run(ctx, m)
		p.release()
		done <- err
		close(done)
	}()
	return done, nil
}

// IsPlaying reports whether a playback is active.
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

// Cancel stops the active playback. It is safe to call when idle.
func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Player) acquire(ctx context.Context, m Macro) (context.Context, error) {
	if len(m.Steps) == 0 {
		return nil, ErrNoSteps
	}
	if !p.playing.CompareAndSwap(false, true) {
		return nil, ErrAlreadyPlaying
	}
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	return ctx, nil
}

func (p *Player) release() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
	p.playing.Store(false)
}

func (p *Player) run(ctx context.Context, m Macro) error {
	speed := m.speed()
	for i := 0; i < m.loops(); i++ {
		for j, step := range m.Steps {
			if err := p.wait(ctx, time.Duration(float64(step.Delay)/speed)); err != nil {
				return err
			}
			if err := p.apply(step); err != nil {
				return &PlaybackError{Iteration: i, Step: j, Kind: step.Kind, Err: err}
			}
		}
	}
	return nil
}

func (p *Player) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := p.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}

func (p *Player) apply(s Step) error {
	switch s.Kind {
	case KindClick:
		return p.click(s)
	case KindScroll:
		return p.sink.Scroll(s.direction(), false)
	case KindType:
		// Nothing focused to type into is not an error.
		p.sink.TypeText(s.Text)
		return nil
	case KindKeypress:
		p.sink.Keypress(s.key())
		return nil
	case KindFill:
		el, err := p.sink.Query(s.Selector)
		if err != nil {
			return err
		}
		return p.sink.SetValue(el, s.Value)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
}

func (p *Player) click(s Step) error {
	var queryErr error
	if s.Selector != "" {
		el, err := p.sink.Query(s.Selector)
		if err == nil {
			p.sink.Click(el)
			return nil
		}
		queryErr = err
	}
	if s.At != nil {
		_, err := p.sink.ClickAt(s.At.X, s.At.Y)
		return err
	}
	if queryErr != nil {
		return queryErr
	}
	return ErrNoTarget
}
