// Package action carries out shortcut actions against a page.
package action

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/keyweave/internal/dom"
	"github.com/dshills/keyweave/internal/input/macro"
	"github.com/dshills/keyweave/internal/logging"
	"github.com/dshills/keyweave/internal/notify"
	"github.com/dshills/keyweave/internal/script"
	"github.com/dshills/keyweave/internal/shortcut"
)

// ErrUnsupported is returned for actions the executor cannot run.
var ErrUnsupported = errors.New("unsupported action")

// Executor runs actions. Failures are reported to the notifier and
// returned; nothing panics out of Execute.
type Executor struct {
	page     *dom.Page
	player   *macro.Player
	scripts  *script.Runner
	notifier notify.Notifier
	log      *logging.Logger

	mu    sync.Mutex
	speed float64

	playbacks sync.WaitGroup
}

// Option configures an Executor.
type Option func(*Executor)

// WithNotifier sets the notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(x *Executor) { x.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(x *Executor) { x.log = l }
}

// WithScriptRunner sets the runner for customCode actions.
func WithScriptRunner(r *script.Runner) Option {
	return func(x *Executor) { x.scripts = r }
}

// New creates an executor for page. Macros play through player.
func New(page *dom.Page, player *macro.Player, opts ...Option) *Executor {
	x := &Executor{
		page:     page,
		player:   player,
		notifier: notify.Discard,
		speed:    1,
	}
	for _, opt := range opts {
		opt(x)
	}
	x.log = logging.OrDefault(x.log).WithComponent("action")
	if x.scripts == nil {
		x.scripts = script.NewRunner(script.WithLogger(x.log), script.WithNotifier(x.notifier))
	}
	return x
}

// SetSpeed sets the playback speed used by macros that do not carry one.
func (x *Executor) SetSpeed(speed float64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.speed = speed
}

// Execute runs def's action. Macros are started in the background and
// Execute returns once playback has begun; a macro fired while another is
// playing returns macro.ErrAlreadyPlaying without side effects.
func (x *Executor) Execute(ctx context.Context, def shortcut.Definition) (err error) {
	label := def.Label()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", label, r)
			x.fail(label, err)
		}
	}()

	x.log.Debug("execute %s (%s)", label, shortcut.Describe(def.Action))

	switch a := def.Action.(type) {
	case shortcut.ScrollAction:
		err = x.page.Scroll(a.Direction, a.Smooth)
	case shortcut.NavigateAction:
		err = x.page.Navigate(a.Kind)
	case shortcut.ClickAction:
		var el *dom.Element
		if el, err = x.page.Query(a.Selector); err == nil {
			x.page.Click(el)
		}
	case shortcut.FillAction:
		var el *dom.Element
		if el, err = x.page.Query(a.Selector); err == nil {
			err = x.page.SetValue(el, a.Value)
		}
	case shortcut.MacroAction:
		m := a.Macro()
		if m.Speed <= 0 {
			x.mu.Lock()
			m.Speed = x.speed
			x.mu.Unlock()
		}
		return x.PlayMacro(ctx, m, label)
	case shortcut.CustomCodeAction:
		err = x.scripts.Run(ctx, a.Code, Host{Page: x.page})
	case nil:
		err = fmt.Errorf("%w: no action", ErrUnsupported)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupported, def.Action.Type())
	}

	if err != nil {
		x.fail(label, err)
	}
	return err
}

// PlayMacro starts m in the background. Completion failures are reported
// through the notifier.
func (x *Executor) PlayMacro(ctx context.Context, m macro.Macro, label string) error {
	done, err := x.player.Start(ctx, m)
	if errors.Is(err, macro.ErrAlreadyPlaying) {
		x.log.Debug("macro %s ignored: another macro is playing", label)
		return err
	}
	if err != nil {
		x.fail(label, err)
		return err
	}

	x.playbacks.Add(1)
	go func() {
		defer x.playbacks.Done()
		err := <-done
		switch {
		case err == nil:
			x.log.Debug("macro %s finished", label)
		case errors.Is(err, context.Canceled):
			x.notifier.Notify(notify.Info("Playback cancelled").WithLabel(label))
		default:
			x.fail(label, err)
		}
	}()
	return nil
}

// Wait blocks until every playback started by the executor has finished.
func (x *Executor) Wait() {
	x.playbacks.Wait()
}

// fail reports err to the user.
func (x *Executor) fail(label string, err error) {
	x.log.Warn("action %s failed: %v", label, err)
	x.notifier.Notify(notify.Error(Message(err)).WithLabel(label))
}

// Message returns the user-facing text for an action error.
func Message(err error) string {
	var perr *macro.PlaybackError
	switch {
	case errors.As(err, &perr):
		return fmt.Sprintf("Macro failed at step %d: %s", perr.Step+1, Message(perr.Err))
	case errors.Is(err, dom.ErrNotFound):
		return "Element not found"
	case errors.Is(err, dom.ErrInvalidSelector):
		return "Invalid selector"
	case errors.Is(err, dom.ErrNoHistory):
		return "Nothing to navigate to"
	case errors.Is(err, script.ErrTimeout):
		return "Custom code timed out"
	case errors.Is(err, script.ErrScript):
		return "Custom code failed: " + err.Error()
	}
	return err.Error()
}
