package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/keyweave/internal/exchange"
)

// ExportCmd writes the shortcuts and settings to a file
type ExportCmd struct {
	Format string `help:"Output format: json or yaml (from the file extension when empty)" enum:",json,yaml" default:""`
	Output string `help:"Output file, '-' for stdout (custom-shortcuts-YYYY-MM-DD.json by default)" short:"o"`
}

// Run executes the export command
func (x *ExportCmd) Run(cli *CLI) error {
	out := x.Output
	if out == "" {
		out = exchange.Filename(time.Now())
		if x.Format == string(exchange.FormatYAML) {
			out = strings.TrimSuffix(out, ".json") + ".yaml"
		}
	}
	format, err := formatFor(x.Format, out)
	if err != nil {
		return err
	}

	e, err := cli.blankEngine(context.Background())
	if err != nil {
		return err
	}
	defer e.Close()

	data, err := e.Export(format)
	if err != nil {
		return err
	}
	if out == "-" {
		_, err := cli.Out.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(cli.Out, "Exported %d shortcuts to %s\n", len(e.List()), out)
	return nil
}

// ImportCmd replaces the shortcuts and settings from a file
type ImportCmd struct {
	File   string `arg:"" help:"File written by export" type:"existingfile"`
	Format string `help:"Input format: json or yaml (from the file extension when empty)" enum:",json,yaml" default:""`
}

// Run executes the import command
func (i *ImportCmd) Run(cli *CLI) error {
	format, err := formatFor(i.Format, i.File)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(i.File)
	if err != nil {
		return fmt.Errorf("failed to read import: %w", err)
	}

	ctx := context.Background()
	e, err := cli.blankEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	return e.Import(ctx, data, format)
}

// formatFor returns the named format or the one implied by path.
func formatFor(name, path string) (exchange.Format, error) {
	if name != "" {
		return exchange.ParseFormat(name)
	}
	if path == "-" {
		return exchange.FormatJSON, nil
	}
	return exchange.ParseFormat(filepath.Ext(path))
}
