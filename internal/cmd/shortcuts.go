package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/keyweave/internal/input/conflict"
	"github.com/dshills/keyweave/internal/input/macro"
	"github.com/dshills/keyweave/internal/shortcut"
	"github.com/dshills/keyweave/internal/shortcut/search"
)

// ListCmd lists shortcuts
type ListCmd struct {
	Format string `help:"Output format: table or json" enum:"table,json" default:"table"`
	Search string `help:"Only shortcuts whose name, keys, action, scope or category contain this text" short:"s"`
	Fuzzy  bool   `help:"Match --search characters in order with gaps and sort by relevance"`
}

// Run executes the list command
func (l *ListCmd) Run(cli *CLI) error {
	ctx := context.Background()
	e, err := cli.blankEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	defs := e.List()
	if l.Fuzzy {
		ranked := search.Rank(defs, l.Search, 0)
		defs = make([]shortcut.Definition, len(ranked))
		for i, r := range ranked {
			defs[i] = r.Definition
		}
	} else {
		defs = search.Filter(defs, l.Search)
	}

	if l.Format == "json" {
		data, err := json.MarshalIndent(defs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(cli.Out, string(data))
		return nil
	}

	inert := e.Inert()
	w := tabwriter.NewWriter(cli.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKEYS\tACTION\tSCOPE\tCATEGORY\tSTATE")
	for _, d := range defs {
		state := "enabled"
		switch {
		case inert[d.ID] != nil:
			state = "inert"
		case !d.Enabled:
			state = "disabled"
		}
		if d.Builtin {
			state += " (builtin)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Name, d.Keys, shortcut.Describe(d.Action), d.Scope, d.Category, state)
	}
	w.Flush()

	fmt.Fprintf(cli.Out, "\nTotal: %d shortcuts\n", len(defs))
	return nil
}

// definitionFlags are the fields shared by add and update.
type definitionFlags struct {
	Name     string `help:"Display name"`
	Keys     string `help:"Key pattern, e.g. 'Ctrl+Shift+K' or 'g i'"`
	Action   string `help:"Action type" enum:",scroll,navigate,clickSelector,fillInput,macro,customCode" default:""`
	Params   string `help:"Action parameters as a JSON object, e.g. '{\"direction\":\"top\"}'"`
	Steps    string `help:"Macro steps file written by a recording (macro action only)" type:"existingfile"`
	Scope    string `help:"'global' or a comma-separated list of host names"`
	Category string `help:"Listing category (inferred from the action when empty)"`
}

// apply writes the set flags over doc, a stored definition in JSON form.
func (f definitionFlags) apply(doc []byte) ([]byte, error) {
	var err error
	set := func(path, value string) {
		if err == nil && value != "" {
			doc, err = sjson.SetBytes(doc, path, value)
		}
	}
	set("name", f.Name)
	set("keys", f.Keys)
	set("action", f.Action)
	set("scope", f.Scope)
	set("category", f.Category)
	if err != nil {
		return nil, err
	}

	params := f.Params
	if f.Steps != "" {
		m, lerr := macro.Load(f.Steps)
		if lerr != nil {
			return nil, lerr
		}
		raw, merr := json.Marshal(shortcut.MacroAction{Steps: m.Steps, Loop: m.Loop, Speed: m.Speed})
		if merr != nil {
			return nil, merr
		}
		params = string(raw)
		if !gjson.GetBytes(doc, "action").Exists() {
			doc, err = sjson.SetBytes(doc, "action", string(shortcut.ActionMacro))
		}
	}
	if params != "" {
		if !gjson.Valid(params) || !gjson.Parse(params).IsObject() {
			return nil, fmt.Errorf("params must be a JSON object")
		}
		doc, err = sjson.SetRawBytes(doc, "params", []byte(params))
	}
	return doc, err
}

func (f definitionFlags) definition(doc []byte) (shortcut.Definition, error) {
	doc, err := f.apply(doc)
	if err != nil {
		return shortcut.Definition{}, err
	}
	var d shortcut.Definition
	if err := json.Unmarshal(doc, &d); err != nil {
		return shortcut.Definition{}, err
	}
	return d, nil
}

// AddCmd adds a shortcut
type AddCmd struct {
	Fields   definitionFlags `embed:""`
	Disabled bool            `help:"Store the shortcut disabled"`
}

// Run executes the add command
func (a *AddCmd) Run(cli *CLI) error {
	if a.Fields.Keys == "" || (a.Fields.Action == "" && a.Fields.Steps == "") {
		return fmt.Errorf("--keys and --action are required")
	}
	doc := []byte(`{}`)
	if a.Disabled {
		doc = []byte(`{"enabled":false}`)
	}
	d, err := a.Fields.definition(doc)
	if err != nil {
		return err
	}

	ctx := context.Background()
	e, err := cli.blankEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	saved, _, err := e.Register(ctx, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Out, "Added %s (%s)\n", saved.Label(), saved.ID)
	return nil
}

// UpdateCmd updates a shortcut
type UpdateCmd struct {
	ID     string          `arg:"" help:"ID of the shortcut to update"`
	Fields definitionFlags `embed:""`
}

// Run executes the update command
func (u *UpdateCmd) Run(cli *CLI) error {
	ctx := context.Background()
	e, err := cli.blankEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	current, ok := e.Get(u.ID)
	if !ok {
		return fmt.Errorf("%w: %s", shortcut.ErrNotFound, u.ID)
	}
	doc, err := json.Marshal(current)
	if err != nil {
		return err
	}
	// A changed action type starts from empty params.
	if u.Fields.Action != "" && u.Fields.Action != gjson.GetBytes(doc, "action").String() {
		if doc, err = sjson.DeleteBytes(doc, "params"); err != nil {
			return err
		}
	}
	d, err := u.Fields.definition(doc)
	if err != nil {
		return err
	}

	saved, _, err := e.Update(ctx, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Out, "Updated %s\n", saved.Label())
	return nil
}

// DeleteCmd deletes a shortcut
type DeleteCmd struct {
	ID string `arg:"" help:"ID of the shortcut to delete"`
}

// Run executes the delete command
func (d *DeleteCmd) Run(cli *CLI) error {
	ctx := context.Background()
	e, err := cli.blankEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.Delete(ctx, d.ID); err != nil {
		return err
	}
	fmt.Fprintf(cli.Out, "Deleted %s\n", d.ID)
	return nil
}

// EnableCmd enables a shortcut
type EnableCmd struct {
	ID string `arg:"" help:"ID of the shortcut to enable"`
}

// Run executes the enable command
func (c *EnableCmd) Run(cli *CLI) error {
	return setEnabled(cli, c.ID, true)
}

// DisableCmd disables a shortcut
type DisableCmd struct {
	ID string `arg:"" help:"ID of the shortcut to disable"`
}

// Run executes the disable command
func (c *DisableCmd) Run(cli *CLI) error {
	return setEnabled(cli, c.ID, false)
}

func setEnabled(cli *CLI, id string, enabled bool) error {
	ctx := context.Background()
	e, err := cli.blankEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.SetEnabled(ctx, id, enabled); err != nil {
		return err
	}
	state := "Disabled"
	if enabled {
		state = "Enabled"
	}
	fmt.Fprintf(cli.Out, "%s %s\n", state, id)
	return nil
}

// ConflictsCmd reports conflicts for one shortcut or all of them
type ConflictsCmd struct {
	ID string `arg:"" optional:"" help:"ID of the shortcut to test (all enabled shortcuts when omitted)"`
}

// Run executes the conflicts command
func (c *ConflictsCmd) Run(cli *CLI) error {
	ctx := context.Background()
	e, err := cli.blankEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if c.ID != "" {
		_, err := e.TestConflicts(c.ID)
		return err
	}

	w := tabwriter.NewWriter(cli.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKEYS\tCONFLICTS WITH")
	total := 0
	for _, d := range e.List() {
		if !d.Enabled {
			continue
		}
		found, err := e.Conflicts(d.ID)
		if err != nil || len(found) == 0 {
			continue
		}
		total++
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Keys, conflictIDs(found))
	}
	w.Flush()

	fmt.Fprintf(cli.Out, "\nTotal: %d shortcuts with conflicts\n", total)
	return nil
}

func conflictIDs(entries []conflict.Entry) string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return strings.Join(ids, ", ")
}
