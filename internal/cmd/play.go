package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/dshills/keyweave/internal/input/macro"
	"github.com/dshills/keyweave/internal/notify"
)

// PlayCmd runs a shortcut or a steps file against an HTML page and prints
// the page's command log
type PlayCmd struct {
	ID    string  `arg:"" optional:"" help:"ID of the shortcut to run"`
	Page  string  `help:"HTML page file (the configured page when empty)" type:"existingfile"`
	Steps string  `help:"Steps file to play instead of a stored shortcut" type:"existingfile"`
	Loop  int     `help:"Loop count for --steps (from the file when 0)" default:"0"`
	Speed float64 `help:"Playback speed multiplier (from settings when 0)" default:"0"`
}

// Run executes the play command
func (p *PlayCmd) Run(cli *CLI) error {
	if (p.ID == "") == (p.Steps == "") {
		return errors.New("give a shortcut ID or --steps, not both")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	page, err := cli.openPage(p.Page)
	if err != nil {
		return err
	}

	var failed atomic.Bool
	watch := notify.Func(func(n notify.Notification) {
		if n.Kind == notify.KindError {
			failed.Store(true)
		}
	})
	e, err := cli.engine(ctx, page, notify.Multi{cli.notifier(), watch})
	if err != nil {
		return err
	}
	defer e.Close()

	if p.Speed > 0 {
		s := e.Settings()
		s.PlaybackSpeed = p.Speed
		if err := e.ApplySettings(s); err != nil {
			return err
		}
	}

	if p.Steps != "" {
		m, err := macro.Load(p.Steps)
		if err != nil {
			return err
		}
		if p.Loop > 0 {
			m.Loop = p.Loop
		}
		if p.Speed > 0 {
			m.Speed = p.Speed
		}
		if err := e.Play(ctx, m, "Playback"); err != nil {
			return err
		}
	} else if err := e.Run(ctx, p.ID); err != nil {
		return err
	}
	e.Wait()

	for _, c := range page.Commands() {
		fmt.Fprintln(cli.Out, c.String())
	}
	if failed.Load() {
		return errors.New("playback failed")
	}
	return ctx.Err()
}
