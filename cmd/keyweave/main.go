// Package main is the entry point for keyweave.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/dshills/keyweave/internal/cmd"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Tagline is used in help text.
const Tagline = "Keyboard shortcuts and recorded macros for web pages"

func main() {
	var cli cmd.CLI
	ctx := kong.Parse(&cli,
		kong.Name("keyweave"),
		kong.Description(Tagline),
		kong.Vars{
			"version": fmt.Sprintf("keyweave %s (commit: %s, built: %s)", version, commit, date),
		},
		kong.UsageOnError(),
		kong.Bind(&cli),
	)

	err := ctx.Run()
	if cerr := cli.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
