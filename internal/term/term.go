// Package term feeds terminal keystrokes into the engine.
package term

import (
	"context"
	"sync"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/keyweave/internal/input/key"
)

// namedKeys maps tcell keys to DOM key values.
var namedKeys = map[tcell.Key]string{
	tcell.KeyEnter:      "Enter",
	tcell.KeyTab:        "Tab",
	tcell.KeyEscape:     "Escape",
	tcell.KeyBackspace:  "Backspace",
	tcell.KeyBackspace2: "Backspace",
	tcell.KeyDelete:     "Delete",
	tcell.KeyInsert:     "Insert",
	tcell.KeyHome:       "Home",
	tcell.KeyEnd:        "End",
	tcell.KeyPgUp:       "PageUp",
	tcell.KeyPgDn:       "PageDown",
	tcell.KeyUp:         "ArrowUp",
	tcell.KeyDown:       "ArrowDown",
	tcell.KeyLeft:       "ArrowLeft",
	tcell.KeyRight:      "ArrowRight",
	tcell.KeyF1:         "F1",
	tcell.KeyF2:         "F2",
	tcell.KeyF3:         "F3",
	tcell.KeyF4:         "F4",
	tcell.KeyF5:         "F5",
	tcell.KeyF6:         "F6",
	tcell.KeyF7:         "F7",
	tcell.KeyF8:         "F8",
	tcell.KeyF9:         "F9",
	tcell.KeyF10:        "F10",
	tcell.KeyF11:        "F11",
	tcell.KeyF12:        "F12",
}

// Convert turns a tcell key event into a raw keyboard event. It reports
// false for keys with no DOM equivalent.
func Convert(ev *tcell.EventKey) (key.RawEvent, bool) {
	mod := ev.Modifiers()
	raw := key.RawEvent{
		Ctrl:  mod&tcell.ModCtrl != 0,
		Alt:   mod&tcell.ModAlt != 0,
		Shift: mod&tcell.ModShift != 0,
		Meta:  mod&tcell.ModMeta != 0,
	}

	k := ev.Key()
	switch {
	case k == tcell.KeyRune:
		r := ev.Rune()
		raw.Key = string(r)
		// Terminals deliver shifted letters as uppercase runes only.
		if unicode.IsUpper(r) {
			raw.Shift = true
		}
	case k == tcell.KeyBacktab:
		raw.Key = "Tab"
		raw.Shift = true
	case k == tcell.KeyCtrlSpace:
		raw.Key = " "
		raw.Ctrl = true
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		raw.Key = string(rune('a' + int(k-tcell.KeyCtrlA)))
		raw.Ctrl = true
	default:
		name, ok := namedKeys[k]
		if !ok {
			return key.RawEvent{}, false
		}
		raw.Key = name
	}
	return raw, true
}

// Source reads keys from a terminal screen.
type Source struct {
	mu      sync.Mutex
	screen  tcell.Screen
	running bool
}

// NewSource wraps an uninitialized screen.
func NewSource(screen tcell.Screen) *Source {
	return &Source{screen: screen}
}

// NewTerminalSource opens the controlling terminal.
func NewTerminalSource() (*Source, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewSource(screen), nil
}

// Run initializes the screen and delivers every convertible key to handle
// until ctx is cancelled or Ctrl+C is pressed. The screen is finalized on
// return.
func (s *Source) Run(ctx context.Context, handle func(key.RawEvent)) error {
	if err := s.screen.Init(); err != nil {
		return err
	}
	s.setRunning(true)
	defer s.setRunning(false)

	stop := context.AfterFunc(ctx, func() {
		_ = s.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()
	defer s.screen.Fini()

	for {
		switch ev := s.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return nil
			}
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlC {
				return nil
			}
			if raw, ok := Convert(ev); ok {
				handle(raw)
			}
		case *tcell.EventResize:
			s.screen.Sync()
		}
	}
}

func (s *Source) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

// Draw replaces the screen contents with lines, one per row. It does
// nothing unless Run is active.
func (s *Source) Draw(lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.screen.Clear()
	w, h := s.screen.Size()
	for y, line := range lines {
		if y >= h {
			break
		}
		x := 0
		for _, r := range line {
			if x >= w {
				break
			}
			s.screen.SetContent(x, y, r, nil, tcell.StyleDefault)
			x++
		}
	}
	s.screen.Show()
}
