package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/keyweave/internal/input"
	"github.com/dshills/keyweave/internal/input/key"
	"github.com/dshills/keyweave/internal/logging"
	"github.com/dshills/keyweave/internal/notify"
	"github.com/dshills/keyweave/internal/shortcut"
	"github.com/dshills/keyweave/internal/store"
	"github.com/dshills/keyweave/internal/term"
)

const (
	feedLines     = 5
	redrawEvery   = 250 * time.Millisecond
	listenerTitle = "keyweave"
)

// ListenCmd feeds terminal keystrokes to the engine
type ListenCmd struct {
	Page      string `help:"HTML page file (the configured page when empty)" type:"existingfile"`
	MacroKeys string `help:"Save each finished recording as a macro bound to these keys"`
	MacroName string `help:"Name for macros saved with --macro-keys" default:"Macro"`
	NoWatch   bool   `help:"Do not reload when the store file changes"`
}

// feed keeps the last few notifications for the status screen.
type feed struct {
	mu    sync.Mutex
	lines []string
}

func (f *feed) Notify(n notify.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, n.String())
	if len(f.lines) > feedLines {
		f.lines = f.lines[len(f.lines)-feedLines:]
	}
}

func (f *feed) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.lines)
}

// Run executes the listen command
func (l *ListenCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	page, err := cli.openPage(l.Page)
	if err != nil {
		return err
	}

	// The terminal belongs to the status screen; logs go to the log file or
	// nowhere.
	if cli.closer == nil {
		cli.log = logging.Discard()
	}

	var showManager atomic.Bool
	notes := &feed{}
	e, err := cli.engine(ctx, page, cli.withLog(notes),
		input.WithManagerHandler(func() { showManager.Store(!showManager.Load()) }),
	)
	if err != nil {
		return err
	}
	defer e.Close()

	src, err := term.NewTerminalSource()
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.Attach(ctx)

	draw := func() {
		src.Draw(l.status(e, notes.snapshot(), showManager.Load()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return src.Run(gctx, func(raw key.RawEvent) {
			e.HandleKey(raw)
			l.saveRecording(gctx, e, notes)
			draw()
		})
	})
	g.Go(func() error {
		t := time.NewTicker(redrawEvery)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				draw()
			}
		}
	})
	if fs, ok := cli.store.(*store.FileStore); ok && !l.NoWatch {
		g.Go(func() error {
			return fs.Watch(gctx, func() {
				if err := e.Load(gctx); err == nil {
					notes.Notify(notify.Info(fmt.Sprintf("Reloaded %d shortcuts", len(e.List()))).WithLabel("Storage"))
				}
			})
		})
	}
	return g.Wait()
}

// saveRecording stores a finished recording when --macro-keys is set.
func (l *ListenCmd) saveRecording(ctx context.Context, e *input.Engine, n notify.Notifier) {
	if l.MacroKeys == "" || e.IsRecording() || len(e.PendingSteps()) == 0 {
		return
	}
	def, _, err := e.SaveMacro(ctx, shortcut.MacroOptions{Name: l.MacroName, Keys: l.MacroKeys, Loop: 1})
	if err != nil && def.ID == "" {
		e.DiscardRecording()
		return
	}
	n.Notify(notify.Success("Saved " + def.Label() + " on " + def.Keys).WithLabel("Recorder"))
}

func (l *ListenCmd) status(e *input.Engine, notes []string, manager bool) []string {
	s := e.Settings()
	state := "idle"
	switch {
	case e.IsRecording():
		state = "recording"
	case e.IsPlaying():
		state = "playing"
	}

	lines := []string{
		fmt.Sprintf("%s on %s  (Ctrl+C quits)", listenerTitle, e.Page().Host()),
		fmt.Sprintf("manager %s  record %s  state %s  pending %q", s.ManagerHotkey, s.RecordHotkey, state, e.Pending()),
		metricsLine(e.Metrics().Snapshot()),
		"",
	}

	if manager {
		lines = append(lines, "Shortcuts:")
		for _, d := range e.List() {
			mark := " "
			if d.Enabled {
				mark = "*"
			}
			lines = append(lines, fmt.Sprintf(" %s %-16s %-24s %s", mark, d.Keys, d.Label(), shortcut.Describe(d.Action)))
		}
		lines = append(lines, "")
	}

	lines = append(lines, "Notifications:")
	for _, n := range notes {
		lines = append(lines, "  "+n)
	}

	cmds := e.Page().Commands()
	if len(cmds) > feedLines {
		cmds = cmds[len(cmds)-feedLines:]
	}
	lines = append(lines, "", "Page:")
	for _, c := range cmds {
		lines = append(lines, "  "+c.String())
	}
	return lines
}

func metricsLine(m input.MetricsSnapshot) string {
	return fmt.Sprintf("keys %d  matches %d  ignored %d  timeouts %d  conflicts %d  latency avg %s p99 %s",
		m.KeyEvents, m.Matches, m.Ignored, m.SequenceTimeouts, m.LiveConflicts,
		m.AvgActionLatency.Round(time.Microsecond), m.P99ActionLatency.Round(time.Microsecond))
}
