package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
)

// SettingsCmd manages settings
type SettingsCmd struct {
	List SettingsListCmd `cmd:"list" help:"List all settings" default:"1"`
	Get  SettingsGetCmd  `cmd:"get" help:"Print one setting"`
	Set  SettingsSetCmd  `cmd:"set" help:"Change one setting"`
}

// SettingsListCmd lists all settings
type SettingsListCmd struct{}

// SettingsGetCmd prints one setting
type SettingsGetCmd struct {
	Key string `arg:"" help:"Setting name (e.g., sequenceTimeout, managerHotkey)"`
}

// SettingsSetCmd changes one setting
type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting name (e.g., sequenceTimeout, managerHotkey)"`
	Value string `arg:"" help:"New value as JSON or a bare string (e.g., 800, true, Alt+J)"`
}

// Run executes the list command
func (s *SettingsListCmd) Run(cli *CLI) error {
	e, err := cli.blankEngine(context.Background())
	if err != nil {
		return err
	}
	defer e.Close()

	settings := e.Settings()
	w := tabwriter.NewWriter(cli.Out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Name\tValue")
	fmt.Fprintln(w, "────\t─────")
	for _, k := range settings.Keys() {
		v, err := settings.Get(k)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", k, v)
	}
	return w.Flush()
}

// Run executes the get command
func (s *SettingsGetCmd) Run(cli *CLI) error {
	e, err := cli.blankEngine(context.Background())
	if err != nil {
		return err
	}
	defer e.Close()

	v, err := e.Settings().Get(s.Key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.Out, v)
	return nil
}

// Run executes the set command
func (s *SettingsSetCmd) Run(cli *CLI) error {
	ctx := context.Background()
	e, err := cli.blankEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.SetSetting(ctx, s.Key, s.Value); err != nil {
		return err
	}
	v, _ := e.Settings().Get(s.Key)
	fmt.Fprintf(cli.Out, "%s = %s\n", s.Key, v)
	return nil
}
