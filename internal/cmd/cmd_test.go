package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keyweave/internal/dom"
	"github.com/dshills/keyweave/internal/input"
	"github.com/dshills/keyweave/internal/input/key"
	"github.com/dshills/keyweave/internal/input/macro"
	"github.com/dshills/keyweave/internal/logging"
)

const testPage = `<!DOCTYPE html><html><body>
<input id="q" type="text">
<button id="send">Send</button>
</body></html>`

// run parses args against a store in dir and runs the selected command.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := CLI{Out: &out}
	parser, err := kong.New(&cli,
		kong.Name("keyweave"),
		kong.Exit(func(code int) { t.Fatalf("exit %d", code) }),
		kong.Bind(&cli),
	)
	require.NoError(t, err)

	base := []string{
		"--config", filepath.Join(dir, "config.toml"),
		"--store", "file",
		"--store-path", filepath.Join(dir, "shortcuts.json"),
		"--log-level", "error",
	}
	ctx, err := parser.Parse(append(base, args...))
	if err != nil {
		return out.String(), err
	}
	err = ctx.Run()
	require.NoError(t, cli.Close())
	return out.String(), err
}

func TestListShowsBuiltins(t *testing.T) {
	out, err := run(t, t.TempDir(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "builtin-scroll-top")
	assert.Contains(t, out, "builtin-scroll-bottom")
	assert.Contains(t, out, "Total: 2 shortcuts")
}

func TestListSearch(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "add", "--name", "Send message", "--keys", "Ctrl+Enter", "--action", "clickSelector", "--params", `{"selector":"#send"}`, "--scope", "chat.example.com")
	require.NoError(t, err)

	out, err := run(t, dir, "list", "--search", "chat.example")
	require.NoError(t, err)
	assert.Contains(t, out, "Send message")
	assert.Contains(t, out, "Total: 1 shortcuts")

	out, err = run(t, dir, "list", "--search", "sndmsg", "--fuzzy")
	require.NoError(t, err)
	assert.Contains(t, out, "Send message")
	assert.Contains(t, out, "Total: 1 shortcuts")
}

func TestAddUpdateDelete(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "add", "--name", "Top", "--keys", "Ctrl+K", "--action", "scroll", "--params", `{"direction":"top"}`, "--scope", "example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Added Top")

	out, err = run(t, dir, "list", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"keys": "Ctrl+K"`)
	assert.Contains(t, out, `"scope": "example.com"`)

	id := shortcutID(t, dir, "Ctrl+K")

	out, err = run(t, dir, "update", id, "--keys", "Ctrl+J")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated Top")

	out, err = run(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ctrl+J")
	assert.Contains(t, out, "Scroll top")
	assert.Contains(t, out, "Total: 3 shortcuts")

	_, err = run(t, dir, "delete", id)
	require.NoError(t, err)

	out, err = run(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 2 shortcuts")
}

func TestAddRequiresKeysAndAction(t *testing.T) {
	_, err := run(t, t.TempDir(), "add", "--name", "x")
	assert.Error(t, err)
}

func TestAddRejectsBadParams(t *testing.T) {
	_, err := run(t, t.TempDir(), "add", "--keys", "x", "--action", "scroll", "--params", "[1]")
	assert.Error(t, err)
}

func TestDeleteBuiltinFails(t *testing.T) {
	_, err := run(t, t.TempDir(), "delete", "builtin-scroll-top")
	assert.Error(t, err)
}

func TestEnableDisable(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "disable", "builtin-scroll-bottom")
	require.NoError(t, err)
	assert.Contains(t, out, "Disabled builtin-scroll-bottom")

	out, err = run(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "disabled (builtin)")

	_, err = run(t, dir, "enable", "builtin-scroll-bottom")
	require.NoError(t, err)

	out, err = run(t, dir, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "disabled")
}

func TestConflicts(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "add", "--name", "Back", "--keys", "G", "--action", "navigate", "--params", `{"type":"back"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "conflicts with: Scroll to bottom", "the default strategy warns on save")

	out, err = run(t, dir, "conflicts")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 2 shortcuts with conflicts")

	out, err = run(t, dir, "conflicts", "builtin-scroll-top")
	require.NoError(t, err)
	assert.Contains(t, out, "No conflicts")
}

func TestSettingsGetSet(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "settings", "get", "sequenceTimeout")
	require.NoError(t, err)
	assert.Equal(t, "500\n", out)

	out, err = run(t, dir, "settings", "set", "sequenceTimeout", "800")
	require.NoError(t, err)
	assert.Contains(t, out, "sequenceTimeout = 800")

	out, err = run(t, dir, "settings", "get", "sequenceTimeout")
	require.NoError(t, err)
	assert.Equal(t, "800\n", out)

	out, err = run(t, dir, "settings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "managerHotkey")

	_, err = run(t, dir, "settings", "set", "noSuchSetting", "1")
	assert.Error(t, err)
	_, err = run(t, dir, "settings", "set", "sequenceTimeout", "-1")
	assert.Error(t, err)
}

func TestExportImport(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()

	_, err := run(t, src, "add", "--name", "Send", "--keys", "Ctrl+Enter", "--action", "clickSelector", "--params", `{"selector":"#send"}`)
	require.NoError(t, err)
	_, err = run(t, src, "settings", "set", "playbackSpeed", "2")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "bundle.yaml")
	out, err := run(t, src, "export", "-o", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 shortcuts")

	out, err = run(t, dst, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 shortcuts")

	out, err = run(t, dst, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ctrl+Enter")
	assert.Contains(t, out, "Total: 3 shortcuts")

	out, err = run(t, dst, "settings", "get", "playbackSpeed")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestImportRejectsMalformed(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"shortcuts": 3}`), 0o644))

	out, err := run(t, dir, "import", file)
	assert.Error(t, err)
	assert.Contains(t, out, "Import failed")
}

func TestPlaySteps(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(page, []byte(testPage), 0o644))

	steps := filepath.Join(dir, "steps.json")
	require.NoError(t, macro.Save(macro.Macro{
		Steps: []macro.Step{macro.Fill("#q", "hello"), macro.Click("#send", nil)},
		Loop:  1,
	}, steps))

	out, err := run(t, dir, "play", "--page", page, "--steps", steps, "--loop", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `fill #q "hello"`)
	assert.Contains(t, out, "click #send")
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("click #send")))
}

func TestPlayShortcut(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(page, []byte(testPage), 0o644))

	out, err := run(t, dir, "play", "builtin-scroll-bottom", "--page", page)
	require.NoError(t, err)
	assert.Contains(t, out, "scroll bottom")
}

func TestPlayReportsFailure(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(page, []byte(testPage), 0o644))

	steps := filepath.Join(dir, "steps.json")
	require.NoError(t, macro.Save(macro.Macro{Steps: []macro.Step{macro.Click("#missing", nil)}, Loop: 1}, steps))

	_, err := run(t, dir, "play", "--page", page, "--steps", steps)
	assert.Error(t, err)
}

func TestPlayNeedsOneSource(t *testing.T) {
	_, err := run(t, t.TempDir(), "play")
	assert.Error(t, err)
}

func TestListenStatus(t *testing.T) {
	page, err := dom.ParseString(testPage, "https://mail.example.com/")
	require.NoError(t, err)
	e := input.New(page, input.WithLogger(logging.Discard()))
	e.Attach(context.Background())
	defer e.Close()

	e.HandleKey(key.RawEvent{Key: "G", Shift: true})
	e.HandleKey(key.RawEvent{Key: "x"})

	status := strings.Join((&ListenCmd{}).status(e, []string{"Saved Macro"}, true), "\n")
	assert.Contains(t, status, "mail.example.com")
	assert.Contains(t, status, "keys 2  matches 1")
	assert.Contains(t, status, "Scroll to bottom")
	assert.Contains(t, status, "Saved Macro")
	assert.Contains(t, status, "scroll bottom smooth")
}

// shortcutID returns the id of the definition bound to keys.
func shortcutID(t *testing.T, dir, keys string) string {
	t.Helper()
	out, err := run(t, dir, "list", "--format", "json")
	require.NoError(t, err)

	var defs []struct {
		ID   string `json:"id"`
		Keys string `json:"keys"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &defs))
	for _, d := range defs {
		if d.Keys == keys {
			return d.ID
		}
	}
	t.Fatalf("no shortcut on %s", keys)
	return ""
}
