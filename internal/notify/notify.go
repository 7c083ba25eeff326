// Package notify delivers user-facing messages (the toasts of the engine).
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/dshills/keyweave/internal/logging"
)

// Kind classifies a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is one message for the user. Label names the shortcut or
// macro it concerns, if any.
type Notification struct {
	Kind    Kind
	Message string
	Label   string
}

// String formats the notification as "label: message".
func (n Notification) String() string {
	if n.Label == "" {
		return n.Message
	}
	return n.Label + ": " + n.Message
}

// Info returns an info notification.
func Info(msg string) Notification { return Notification{Kind: KindInfo, Message: msg} }

// Success returns a success notification.
func Success(msg string) Notification { return Notification{Kind: KindSuccess, Message: msg} }

// Error returns an error notification.
func Error(msg string) Notification { return Notification{Kind: KindError, Message: msg} }

// Errorf returns an error notification with a formatted message.
func Errorf(format string, args ...any) Notification {
	return Error(fmt.Sprintf(format, args...))
}

// WithLabel returns a copy carrying label.
func (n Notification) WithLabel(label string) Notification {
	n.Label = label
	return n
}

// Notifier shows notifications.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

// Notify implements Notifier.
func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

var (
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// Terminal writes one line per notification. Colour is used only when the
// writer is a terminal.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewTerminal creates a notifier writing to w.
func NewTerminal(w io.Writer) *Terminal {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Terminal{w: w, color: color}
}

// Notify implements Notifier.
func (t *Terminal) Notify(n Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, t.render(n))
}

func (t *Terminal) render(n Notification) string {
	icon := map[Kind]string{KindInfo: "i", KindSuccess: "✓", KindError: "✗"}[n.Kind]
	if icon == "" {
		icon = "i"
	}
	if !t.color {
		return fmt.Sprintf("[%s] %s", icon, n.String())
	}

	style := infoStyle
	switch n.Kind {
	case KindSuccess:
		style = successStyle
	case KindError:
		style = errorStyle
	}
	line := style.Render(icon + " " + n.Message)
	if n.Label != "" {
		line = labelStyle.Render(n.Label) + " " + line
	}
	return line
}

// Log writes notifications to a logger, errors at error level.
type Log struct {
	log *logging.Logger
}

// NewLog creates a notifier backed by l.
func NewLog(l *logging.Logger) *Log {
	return &Log{log: logging.OrDefault(l).WithComponent("notify")}
}

// Notify implements Notifier.
func (l *Log) Notify(n Notification) {
	lg := l.log.WithField("kind", string(n.Kind))
	if n.Label != "" {
		lg = lg.WithField("label", n.Label)
	}
	if n.Kind == KindError {
		lg.Error("%s", n.Message)
		return
	}
	lg.Info("%s", n.Message)
}

// Multi fans notifications out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(n Notification) {
	for _, x := range m {
		x.Notify(n)
	}
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

// All returns a copy of the received notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}, false
	}
	return r.all[len(r.all)-1], true
}

// Reset forgets all notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
}
