package input

import (
	"sort"
	"sync"

	"github.com/dshills/keyweave/internal/input/key"
	"github.com/dshills/keyweave/internal/logging"
	"github.com/dshills/keyweave/internal/shortcut"
)

// Hook intercepts keystrokes and matched shortcuts.
type Hook interface {
	// PreKeyEvent runs before a keystroke reaches the sequence buffer.
	// Return true to consume it.
	PreKeyEvent(event *key.Event, ctx *Context) bool

	// PostKeyEvent runs after matching. def is nil when nothing matched.
	PostKeyEvent(event *key.Event, def *shortcut.Definition, ctx *Context)

	// PreAction runs before a matched shortcut executes. Return true to
	// suppress the action.
	PreAction(def *shortcut.Definition, ctx *Context) bool
}

// HookPriority orders hooks. Lower values run first.
type HookPriority int

const (
	HookPriorityHigh   HookPriority = -100
	HookPriorityNormal HookPriority = 0
	HookPriorityLow    HookPriority = 100
)

// HookID identifies a registered hook.
type HookID uint64

// HookRegistration holds metadata about a registered hook.
type HookRegistration struct {
	ID       HookID
	Name     string
	Priority HookPriority
	Hook     Hook
}

// HookManager runs hooks in priority order. Hooks with equal priority run
// in registration order.
type HookManager struct {
	mu     sync.Mutex
	hooks  []HookRegistration
	nextID HookID
	sorted bool
}

// NewHookManager creates an empty hook manager.
func NewHookManager() *HookManager {
	return &HookManager{sorted: true}
}

// Register adds a hook with normal priority.
func (m *HookManager) Register(hook Hook) HookID {
	return m.RegisterWithOptions(hook, "", HookPriorityNormal)
}

// RegisterWithOptions adds a named hook with a priority. A hook registered
// under an existing name replaces it.
func (m *HookManager) RegisterWithOptions(hook Hook, name string, priority HookPriority) HookID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name != "" {
		m.removeLocked(func(r HookRegistration) bool { return r.Name == name })
	}
	m.nextID++
	m.hooks = append(m.hooks, HookRegistration{ID: m.nextID, Name: name, Priority: priority, Hook: hook})
	m.sorted = false
	return m.nextID
}

// Unregister removes a hook by id.
func (m *HookManager) Unregister(id HookID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(func(r HookRegistration) bool { return r.ID == id })
}

// UnregisterByName removes a hook by name.
func (m *HookManager) UnregisterByName(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(func(r HookRegistration) bool { return r.Name == name })
}

func (m *HookManager) removeLocked(match func(HookRegistration) bool) bool {
	for i, r := range m.hooks {
		if match(r) {
			m.hooks = append(m.hooks[:i:i], m.hooks[i+1:]...)
			return true
		}
	}
	return false
}

// Count returns the number of registered hooks.
func (m *HookManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hooks)
}

// snapshot returns the hooks in run order so they can be called without
// the lock held.
func (m *HookManager) snapshot() []Hook {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sorted {
		sort.SliceStable(m.hooks, func(i, j int) bool {
			return m.hooks[i].Priority < m.hooks[j].Priority
		})
		m.sorted = true
	}
	out := make([]Hook, len(m.hooks))
	for i, r := range m.hooks {
		out[i] = r.Hook
	}
	return out
}

// RunPreKeyEvent reports whether any hook consumed the event.
func (m *HookManager) RunPreKeyEvent(event *key.Event, ctx *Context) bool {
	for _, h := range m.snapshot() {
		if h.PreKeyEvent(event, ctx) {
			return true
		}
	}
	return false
}

// RunPostKeyEvent runs every PostKeyEvent hook.
func (m *HookManager) RunPostKeyEvent(event *key.Event, def *shortcut.Definition, ctx *Context) {
	for _, h := range m.snapshot() {
		h.PostKeyEvent(event, def, ctx)
	}
}

// RunPreAction reports whether any hook suppressed the action.
func (m *HookManager) RunPreAction(def *shortcut.Definition, ctx *Context) bool {
	for _, h := range m.snapshot() {
		if h.PreAction(def, ctx) {
			return true
		}
	}
	return false
}

// BaseHook implements Hook with no-ops. Embed it to override only some
// methods.
type BaseHook struct{}

func (BaseHook) PreKeyEvent(*key.Event, *Context) bool                   { return false }
func (BaseHook) PostKeyEvent(*key.Event, *shortcut.Definition, *Context) {}
func (BaseHook) PreAction(*shortcut.Definition, *Context) bool           { return false }

// FuncHook adapts functions to Hook. Nil functions are no-ops.
type FuncHook struct {
	PreKeyEventFunc  func(*key.Event, *Context) bool
	PostKeyEventFunc func(*key.Event, *shortcut.Definition, *Context)
	PreActionFunc    func(*shortcut.Definition, *Context) bool
}

func (h FuncHook) PreKeyEvent(event *key.Event, ctx *Context) bool {
	if h.PreKeyEventFunc != nil {
		return h.PreKeyEventFunc(event, ctx)
	}
	return false
}

func (h FuncHook) PostKeyEvent(event *key.Event, def *shortcut.Definition, ctx *Context) {
	if h.PostKeyEventFunc != nil {
		h.PostKeyEventFunc(event, def, ctx)
	}
}

func (h FuncHook) PreAction(def *shortcut.Definition, ctx *Context) bool {
	if h.PreActionFunc != nil {
		return h.PreActionFunc(def, ctx)
	}
	return false
}

// LoggingHook logs keystrokes and matches at debug level.
type LoggingHook struct {
	BaseHook
	Logger *logging.Logger
}

func (h LoggingHook) PreKeyEvent(event *key.Event, ctx *Context) bool {
	if h.Logger != nil {
		h.Logger.Debug("key %s on %s (pending %q)", event.String(), ctx.Host, ctx.Pending)
	}
	return false
}

func (h LoggingHook) PostKeyEvent(event *key.Event, def *shortcut.Definition, ctx *Context) {
	if h.Logger != nil && def != nil {
		h.Logger.Debug("%s -> %s", event.String(), def.Label())
	}
}
