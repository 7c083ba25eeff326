// Package script runs customCode actions in a sandboxed Lua interpreter.
//
// Scripts see the standard base, table, string and math libraries plus two
// globals: page, bound to the current document, and notify. File, OS and
// module loading are not available.
//
//	page.fill("#q", "golang")
//	page.click("button.search")
//	notify("searched " .. page.url())
package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keyweave/internal/logging"
	"github.com/dshills/keyweave/internal/notify"
)

// DefaultTimeout bounds one script execution.
const DefaultTimeout = 2 * time.Second

var (
	// ErrScript wraps compile and runtime failures.
	ErrScript = errors.New("script error")
	// ErrTimeout is returned when a script runs past its deadline.
	ErrTimeout = errors.New("script timed out")
)

// Host is the document surface exposed to scripts.
type Host interface {
	Click(selector string) error
	Fill(selector, value string) error
	Scroll(direction string) error
	Keypress(key string)
	TypeText(text string) bool
	Navigate(kind string) error
	Text(selector string) (string, error)
	URL() string
}

// Runner executes scripts. Each Run gets a fresh interpreter.
type Runner struct {
	timeout  time.Duration
	log      *logging.Logger
	notifier notify.Notifier
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the per-run deadline.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets where print output goes.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithNotifier sets the target of the notify global.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		timeout:  DefaultTimeout,
		log:      logging.Default(),
		notifier: notify.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithComponent("script")
	return r
}

// Run executes code against host.
func (r *Runner) Run(ctx context.Context, code string, host Host) (err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibraries(L)
	sandbox(L)
	L.SetContext(ctx)

	L.SetGlobal("print", L.NewFunction(r.print))
	L.SetGlobal("notify", L.NewFunction(r.notify))
	L.SetGlobal("page", pageTable(L, host))

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic: %v", ErrScript, rec)
		}
	}()

	if err := L.DoString(code); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		}
		return fmt.Errorf("%w: %v", ErrScript, err)
	}
	return nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes the base functions that load code from outside the script.
func sandbox(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (r *Runner) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	r.log.Info("%s", strings.Join(parts, "\t"))
	return 0
}

func (r *Runner) notify(L *lua.LState) int {
	msg := L.CheckString(1)
	kind := notify.Kind(L.OptString(2, string(notify.KindInfo)))
	switch kind {
	case notify.KindInfo, notify.KindSuccess, notify.KindError:
	default:
		L.ArgError(2, "kind must be info, success or error")
	}
	r.notifier.Notify(notify.Notification{Kind: kind, Message: msg})
	return 0
}

// pageTable builds the page global.
func pageTable(L *lua.LState, host Host) *lua.LTable {
	check := func(L *lua.LState, err error) {
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
	}

	fns := map[string]lua.LGFunction{
		"click": func(L *lua.LState) int {
			check(L, host.Click(L.CheckString(1)))
			return 0
		},
		"fill": func(L *lua.LState) int {
			check(L, host.Fill(L.CheckString(1), L.CheckString(2)))
			return 0
		},
		"scroll": func(L *lua.LState) int {
			check(L, host.Scroll(L.OptString(1, "down")))
			return 0
		},
		"key": func(L *lua.LState) int {
			host.Keypress(L.OptString(1, "Enter"))
			return 0
		},
		"type": func(L *lua.LState) int {
			L.Push(lua.LBool(host.TypeText(L.CheckString(1))))
			return 1
		},
		"navigate": func(L *lua.LState) int {
			check(L, host.Navigate(L.CheckString(1)))
			return 0
		},
		"text": func(L *lua.LState) int {
			s, err := host.Text(L.CheckString(1))
			if err != nil {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(s))
			return 1
		},
		"url": func(L *lua.LState) int {
			L.Push(lua.LString(host.URL()))
			return 1
		},
	}
	return L.SetFuncs(L.NewTable(), fns)
}
