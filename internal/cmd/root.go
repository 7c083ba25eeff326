// Package cmd implements the keyweave command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/alecthomas/kong"

	"github.com/dshills/keyweave/internal/config"
	"github.com/dshills/keyweave/internal/dom"
	"github.com/dshills/keyweave/internal/input"
	"github.com/dshills/keyweave/internal/logging"
	"github.com/dshills/keyweave/internal/notify"
	"github.com/dshills/keyweave/internal/script"
	"github.com/dshills/keyweave/internal/store"
)

const blankPage = "<!DOCTYPE html><html><head><title>keyweave</title></head><body></body></html>"

// CLI represents the command-line interface structure
type CLI struct {
	Version   kong.VersionFlag `help:"Show version information"`
	Config    string           `help:"Path to the configuration file" type:"path" env:"KEYWEAVE_CONFIG"`
	LogLevel  string           `help:"Log level: debug, info, warn or error" enum:",debug,info,warn,error" default:""`
	LogFile   string           `help:"Append JSON log records to this file" type:"path"`
	Store     string           `help:"Store backend: file, sqlite or memory" enum:",file,sqlite,memory" default:""`
	StorePath string           `help:"Path of the store file or database" type:"path"`
	Host      string           `help:"Host name the shortcuts are matched for"`

	List      ListCmd      `cmd:"" help:"List shortcuts" default:"1"`
	Add       AddCmd       `cmd:"" help:"Add a shortcut"`
	Update    UpdateCmd    `cmd:"" help:"Update a shortcut"`
	Delete    DeleteCmd    `cmd:"" help:"Delete a shortcut"`
	Enable    EnableCmd    `cmd:"" help:"Enable a shortcut"`
	Disable   DisableCmd   `cmd:"" help:"Disable a shortcut"`
	Conflicts ConflictsCmd `cmd:"" help:"Report shortcuts sharing a pattern with another"`
	Export    ExportCmd    `cmd:"" help:"Export shortcuts and settings"`
	Import    ImportCmd    `cmd:"" help:"Import shortcuts and settings"`
	Settings  SettingsCmd  `cmd:"" help:"Show or change settings"`
	Play      PlayCmd      `cmd:"" help:"Play a macro against an HTML page and print what it did"`
	Listen    ListenCmd    `cmd:"" help:"Match terminal keystrokes against the shortcuts"`

	// Internal fields (not flags)
	Out    io.Writer       `kong:"-"`
	cfg    config.Config   `kong:"-"`
	log    *logging.Logger `kong:"-"`
	store  store.Store     `kong:"-"`
	closer io.Closer       `kong:"-"`
}

// AfterApply loads the configuration, then opens the logger and the store.
// Flags override the configuration file and environment.
func (c *CLI) AfterApply() error {
	if c.Out == nil {
		c.Out = os.Stdout
	}
	path := c.Config
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
	if c.LogFile != "" {
		cfg.Logging.File = c.LogFile
	}
	if c.Store != "" {
		cfg.Store.Backend = c.Store
	}
	if c.StorePath != "" {
		cfg.Store.Path = c.StorePath
	}
	if c.Host != "" {
		cfg.Page.Host = c.Host
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	level := logging.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.File != "" {
		l, closer, err := logging.OpenFile(cfg.Logging.File, level)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		c.log, c.closer = l, closer
	} else {
		lc := logging.DefaultConfig()
		lc.Level = level
		lc.Output = os.Stderr
		c.log = logging.New(lc)
	}
	logging.SetDefault(c.log)

	s, err := store.Open(cfg.Store.Backend, cfg.StorePath(), c.log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	c.store = s
	c.log.Debug("store %s at %s", cfg.Store.Backend, cfg.StorePath())
	return nil
}

// Close releases the store and the log file.
func (c *CLI) Close() error {
	var first error
	if c.store != nil {
		first = c.store.Close()
		c.store = nil
	}
	if c.closer != nil {
		if err := c.closer.Close(); err != nil && first == nil {
			first = err
		}
		c.closer = nil
	}
	return first
}

// notifier prints to the command output, mirrored to the log file when
// one is open.
func (c *CLI) notifier() notify.Notifier {
	return c.withLog(notify.NewTerminal(c.Out))
}

// withLog adds the log file as a second destination for n.
func (c *CLI) withLog(n notify.Notifier) notify.Notifier {
	if c.closer == nil {
		return n
	}
	return notify.Multi{n, notify.NewLog(c.log)}
}

// pageURL returns the URL the page is opened at for the configured host.
func (c *CLI) pageURL() string {
	return (&url.URL{Scheme: "https", Host: c.cfg.Page.Host, Path: "/"}).String()
}

// openPage loads path, the configured page file, or a blank document.
func (c *CLI) openPage(path string, opts ...dom.Option) (*dom.Page, error) {
	if path == "" {
		path = c.cfg.Page.File
	}
	if path == "" {
		return dom.ParseString(blankPage, c.pageURL(), opts...)
	}
	p, err := dom.Load(path, c.pageURL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}
	return p, nil
}

// engine builds an engine over page reporting to n, with the stored state
// and the configured settings applied.
func (c *CLI) engine(ctx context.Context, page *dom.Page, n notify.Notifier, opts ...input.Option) (*input.Engine, error) {
	base := []input.Option{
		input.WithStore(c.store),
		input.WithNotifier(n),
		input.WithLogger(c.log),
		input.WithScriptRunner(script.NewRunner(script.WithLogger(c.log), script.WithNotifier(n))),
	}
	e := input.New(page, append(base, opts...)...)
	if c.log.Enabled(logging.LevelDebug) {
		e.Hooks().RegisterWithOptions(input.LoggingHook{Logger: c.log.WithComponent("keys")}, "logging", input.HookPriorityLow)
	}
	if err := e.Load(ctx); err != nil {
		return nil, err
	}
	if len(c.cfg.Settings) > 0 {
		s, err := c.cfg.ApplySettings(e.Settings())
		if err != nil {
			return nil, fmt.Errorf("invalid [settings] in config: %w", err)
		}
		if err := e.ApplySettings(s); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// blankEngine is engine over an empty page for management commands.
func (c *CLI) blankEngine(ctx context.Context) (*input.Engine, error) {
	page, err := c.openPage("")
	if err != nil {
		return nil, err
	}
	return c.engine(ctx, page, c.notifier())
}
