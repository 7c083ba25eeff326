package input

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dshills/keyweave/internal/action"
	"github.com/dshills/keyweave/internal/dom"
	"github.com/dshills/keyweave/internal/input/key"
	"github.com/dshills/keyweave/internal/input/macro"
	"github.com/dshills/keyweave/internal/input/sequence"
	"github.com/dshills/keyweave/internal/logging"
	"github.com/dshills/keyweave/internal/notify"
	"github.com/dshills/keyweave/internal/script"
	"github.com/dshills/keyweave/internal/shortcut"
	"github.com/dshills/keyweave/internal/store"
)

// Option configures an Engine.
type Option func(*Engine)

// WithStore persists definitions and settings. Without a store the engine
// keeps everything in memory.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithNotifier sets where user-facing messages go.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock sets the clock used for timers and playback delays. It should
// be the page's clock.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithScriptRunner sets the runner for customCode actions.
func WithScriptRunner(r *script.Runner) Option {
	return func(e *Engine) { e.scripts = r }
}

// WithManagerHandler sets the function run by the manager hotkey.
func WithManagerHandler(fn func()) Option {
	return func(e *Engine) { e.onManager = fn }
}

// deferredMatch is a short match held back by the ambiguity grace.
type deferredMatch struct {
	id     string
	length int
	timer  clockwork.Timer
}

// Engine matches page keystrokes against shortcut definitions and records
// page interactions into macros. One engine serves one page.
type Engine struct {
	page     *dom.Page
	registry *shortcut.Registry
	store    store.Store
	notifier notify.Notifier
	log      *logging.Logger
	clock    clockwork.Clock
	scripts  *script.Runner

	player   *macro.Player
	recorder *macro.Recorder
	exec     *action.Executor
	hooks    *HookManager
	metrics  *Metrics

	onManager func()

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	settings    shortcut.Settings
	managerKey  *key.Chord
	recordKey   *key.Chord
	buf         sequence.Buffer
	deferred    *deferredMatch
	recorded    []macro.Step
	limit       clockwork.Timer
}

// New creates an engine for page holding the builtin definitions and the
// default settings. Call Load to read stored state and Attach to start
// listening.
func New(page *dom.Page, opts ...Option) *Engine {
	e := &Engine{
		page:     page,
		registry: shortcut.NewRegistry(shortcut.Builtins()...),
		notifier: notify.Discard,
		clock:    clockwork.NewRealClock(),
		hooks:    NewHookManager(),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.OrDefault(e.log).WithComponent("input")
	e.metrics = NewMetrics(e.clock)
	e.player = macro.NewPlayer(page, e.clock)
	e.recorder = macro.NewRecorder(dom.Synthesize)

	execOpts := []action.Option{action.WithNotifier(e.notifier), action.WithLogger(e.log)}
	if e.scripts != nil {
		execOpts = append(execOpts, action.WithScriptRunner(e.scripts))
	}
	e.exec = action.New(page, e.player, execOpts...)

	e.applySettingsLocked(shortcut.DefaultSettings())
	return e
}

// Attach subscribes the engine to its page. Actions started by keystrokes
// run under ctx. Attaching twice is a no-op.
func (e *Engine) Attach(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unsubscribe != nil {
		return
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.unsubscribe = e.page.Subscribe(e.handle)
}

// Close detaches from the page, cancels any playback and waits for it to
// finish.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.stopDeferredLocked()
	if e.limit != nil {
		e.limit.Stop()
		e.limit = nil
	}
	e.mu.Unlock()

	e.player.Cancel()
	e.exec.Wait()
}

// Page returns the page the engine serves.
func (e *Engine) Page() *dom.Page { return e.page }

// Hooks returns the hook manager.
func (e *Engine) Hooks() *HookManager { return e.hooks }

// Metrics returns the engine counters.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// HandleKey dispatches a keystroke to the page, as a terminal or test
// would, and reports whether a shortcut consumed it.
func (e *Engine) HandleKey(raw key.RawEvent) bool {
	return e.page.KeyDown(raw).DefaultPrevented()
}

// Pending returns the buffered keystrokes, e.g. "g".
func (e *Engine) Pending() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buf.Expired(e.clock.Now(), e.settings.SequenceConfig()) {
		return ""
	}
	return e.buf.String()
}

// IsPlaying reports whether a macro is playing.
func (e *Engine) IsPlaying() bool { return e.player.IsPlaying() }

// CancelPlayback stops the playing macro, if any.
func (e *Engine) CancelPlayback() { e.player.Cancel() }

// Wait blocks until started playbacks have finished.
func (e *Engine) Wait() { e.exec.Wait() }

func (e *Engine) runContext() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx
}

func (e *Engine) hookContext(host string) Context {
	e.mu.Lock()
	pending := e.buf.String()
	e.mu.Unlock()
	return Context{
		Host:      host,
		Pending:   pending,
		Recording: e.recorder.IsRecording(),
		Playing:   e.player.IsPlaying(),
	}
}

// handle is the page listener.
func (e *Engine) handle(ev *dom.Event) {
	switch ev.Type {
	case dom.EventKeyDown:
		e.handleKey(ev)
	case dom.EventClick, dom.EventScroll, dom.EventInput:
		e.record(ev)
	}
}

func (e *Engine) record(ev *dom.Event) {
	if ev.Synthetic || !e.recorder.IsRecording() || e.player.IsPlaying() {
		return
	}
	e.recorder.Record(ev)
	e.metrics.RecordRecordedEvent()
}

func (e *Engine) handleKey(ev *dom.Event) {
	// Keystrokes replayed by macros and scripts never trigger shortcuts.
	if ev.Synthetic || key.IsModifierKey(ev.Key.Key) {
		return
	}
	event := key.Normalize(ev.Key)

	e.mu.Lock()
	managerKey, recordKey := e.managerKey, e.recordKey
	e.mu.Unlock()

	switch {
	case managerKey != nil && managerKey.Matches(event):
		ev.PreventDefault()
		e.openManager()
		return
	case recordKey != nil && recordKey.Matches(event):
		ev.PreventDefault()
		e.ToggleRecording()
		return
	}

	if e.recorder.IsRecording() {
		e.record(ev)
		return
	}

	if (ev.Target != nil && ev.Target.IsEditable()) || (ev.Key.Repeat && !event.IsModified()) {
		e.metrics.RecordIgnored()
		return
	}

	host := e.page.Host()
	hctx := e.hookContext(host)
	if e.hooks.RunPreKeyEvent(&event, &hctx) {
		e.metrics.RecordHookConsumption()
		return
	}
	e.metrics.RecordKeyEvent()

	at := ev.Time
	if at.IsZero() {
		at = e.clock.Now()
	}
	ids, matched := e.advance(event, at, host)
	if matched {
		ev.PreventDefault()
	}

	var fired *shortcut.Definition
	for _, id := range ids {
		if def := e.fire(id, host); def != nil {
			fired = def
		}
	}
	e.hooks.RunPostKeyEvent(&event, fired, &hctx)
}

// advance pushes event into the buffer and returns the ids to fire now, in
// order. matched reports whether the keystroke completed a pattern.
func (e *Engine) advance(event key.Event, at time.Time, host string) (ids []string, matched bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.settings.SequenceConfig()
	if e.buf.Len() > 0 && e.buf.Expired(at, cfg) {
		e.metrics.RecordSequenceTimeout()
	}
	e.buf = e.buf.Push(event, at, cfg)

	res, ok := sequence.Match(e.buf.Events, e.registry.Candidates(host))

	if d := e.deferred; d != nil {
		d.timer.Stop()
		e.deferred = nil
		// A longer completion replaces the held match; anything else
		// releases it first.
		if !ok || res.Length <= d.length {
			ids = append(ids, d.id)
		}
	}
	if !ok {
		return ids, false
	}

	if grace := e.settings.Grace(); res.Ambiguous && grace > 0 {
		d := &deferredMatch{id: res.ID, length: res.Length}
		d.timer = e.clock.AfterFunc(grace, func() { e.flushDeferred(d) })
		e.deferred = d
		return ids, true
	}
	return append(ids, res.ID), true
}

func (e *Engine) flushDeferred(d *deferredMatch) {
	e.mu.Lock()
	if e.deferred != d {
		e.mu.Unlock()
		return
	}
	e.deferred = nil
	e.mu.Unlock()

	e.fire(d.id, e.page.Host())
}

func (e *Engine) stopDeferredLocked() {
	if e.deferred != nil {
		e.deferred.timer.Stop()
		e.deferred = nil
	}
}

// fire executes a matched definition. It returns nil when the definition
// is gone or a hook suppressed it.
func (e *Engine) fire(id, host string) *shortcut.Definition {
	def, ok := e.registry.Get(id)
	if !ok {
		return nil
	}

	hctx := e.hookContext(host)
	if e.hooks.RunPreAction(&def, &hctx) {
		e.metrics.RecordHookConsumption()
		return nil
	}

	if live := e.registry.LiveConflicts(id, host); len(live) > 0 {
		e.metrics.RecordLiveConflict()
		e.notifier.Notify(notify.Errorf("Multiple shortcuts share %s", def.Keys).WithLabel("Conflict"))
	}

	start := e.clock.Now()
	if err := e.exec.Execute(e.runContext(), def); err != nil && !errors.Is(err, macro.ErrAlreadyPlaying) {
		e.log.Debug("shortcut %s failed: %v", def.Label(), err)
	}
	e.metrics.RecordMatch(e.clock.Since(start))
	return &def
}

func (e *Engine) openManager() {
	if e.onManager != nil {
		e.onManager()
		return
	}
	e.notifier.Notify(notify.Info("Shortcut manager is not available").WithLabel("Shortcuts"))
}

// Settings returns the current settings.
func (e *Engine) Settings() shortcut.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

func (e *Engine) applySettingsLocked(s shortcut.Settings) {
	e.settings = s
	e.managerKey = hotkey(s.ManagerHotkey)
	e.recordKey = hotkey(s.RecordHotkey)
	e.exec.SetSpeed(s.PlaybackSpeed)
	e.buf = sequence.Buffer{}
	e.stopDeferredLocked()
}

// hotkey returns the single chord of a reserved hotkey, or nil when the
// hotkey is unset or not a single chord.
func hotkey(s string) *key.Chord {
	p, err := key.ParsePattern(s)
	if err != nil || len(p) != 1 {
		return nil
	}
	return &p[0]
}
