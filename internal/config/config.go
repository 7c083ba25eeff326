// Package config loads the keyweave process configuration.
//
// Sources, lowest priority first:
//
//  1. Built-in defaults
//  2. TOML file (~/.config/keyweave/config.toml by default)
//  3. KEYWEAVE_* environment variables
//
// The optional [settings] table overlays the engine settings key by key
// using the same names as the stored settings object.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/keyweave/internal/config/loader"
	"github.com/dshills/keyweave/internal/shortcut"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrInvalidConfig is wrapped by validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the process configuration.
type Config struct {
	Store    StoreConfig    `toml:"store"`
	Logging  LoggingConfig  `toml:"logging"`
	Page     PageConfig     `toml:"page"`
	Settings map[string]any `toml:"settings"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `toml:"level"`
	// File, when set, switches to JSON records appended to this path.
	File string `toml:"file"`
}

// PageConfig names the page the engine is attached to.
type PageConfig struct {
	Host string `toml:"host"`
	// File is an HTML document loaded as the page.
	File string `toml:"file"`
}

// Dir returns the keyweave configuration directory.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "keyweave")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store:   StoreConfig{Backend: BackendFile},
		Logging: LoggingConfig{Level: "info"},
		Page:    PageConfig{Host: "localhost"},
	}
}

// StorePath returns the configured store path or the backend default.
func (c Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.Store.Backend == BackendSQLite {
		return filepath.Join(Dir(), "shortcuts.db")
	}
	return filepath.Join(Dir(), "shortcuts.json")
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	return nil
}

// Load reads the file at path (missing is fine) and the process
// environment.
func Load(path string) (Config, error) {
	return LoadWith(loader.NewTOMLLoader(path), loader.NewEnvLoader(loader.Prefix))
}

// LoadWith merges the given sources in order over the defaults.
func LoadWith(sources ...loader.Loader) (Config, error) {
	merged := make(map[string]any)
	for _, src := range sources {
		m, err := src.Load()
		if err != nil {
			return Config{}, err
		}
		merged = loader.DeepMerge(merged, m)
	}

	cfg := Default()
	if len(merged) > 0 {
		data, err := toml.Marshal(merged)
		if err != nil {
			return Config{}, fmt.Errorf("encoding merged config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplySettings overlays the [settings] table onto base. Keys are applied
// in sorted order and each one is validated.
func (c Config) ApplySettings(base shortcut.Settings) (shortcut.Settings, error) {
	keys := make([]string, 0, len(c.Settings))
	for k := range c.Settings {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := base
	for _, k := range keys {
		raw, err := json.Marshal(c.Settings[k])
		if err != nil {
			return base, fmt.Errorf("settings.%s: %w", k, err)
		}
		out, err = out.Set(k, string(raw))
		if err != nil {
			return base, fmt.Errorf("settings.%s: %w", k, err)
		}
	}
	return out, nil
}
