package script

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keyweave/internal/logging"
	"github.com/dshills/keyweave/internal/notify"
)

var errMissing = errors.New("element not found")

type fakeHost struct {
	calls []string
	texts map[string]string
}

func (h *fakeHost) Click(sel string) error {
	if sel == "#missing" {
		return errMissing
	}
	h.calls = append(h.calls, "click "+sel)
	return nil
}

func (h *fakeHost) Fill(sel, v string) error {
	h.calls = append(h.calls, "fill "+sel+"="+v)
	return nil
}

func (h *fakeHost) Scroll(dir string) error {
	h.calls = append(h.calls, "scroll "+dir)
	return nil
}

func (h *fakeHost) Keypress(k string) { h.calls = append(h.calls, "key "+k) }

func (h *fakeHost) TypeText(s string) bool {
	h.calls = append(h.calls, "type "+s)
	return true
}

func (h *fakeHost) Navigate(kind string) error {
	h.calls = append(h.calls, "navigate "+kind)
	return nil
}

func (h *fakeHost) Text(sel string) (string, error) {
	if t, ok := h.texts[sel]; ok {
		return t, nil
	}
	return "", errMissing
}

func (h *fakeHost) URL() string { return "https://example.com/a" }

func TestRunPageCalls(t *testing.T) {
	host := &fakeHost{texts: map[string]string{"h1": "Title"}}
	rec := &notify.Recorder{}
	r := NewRunner(WithNotifier(rec), WithLogger(logging.Discard()))

	err := r.Run(context.Background(), `
		page.fill("#q", "golang")
		page.click("button.go")
		page.scroll()
		page.key()
		local ok = page.type("x")
		page.navigate("reload")
		if page.text("h1") == "Title" and page.text("h2") == nil and ok then
			notify("done " .. page.url(), "success")
		end
	`, host)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"fill #q=golang",
		"click button.go",
		"scroll down",
		"key Enter",
		"type x",
		"navigate reload",
	}, host.calls)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Notification{Kind: notify.KindSuccess, Message: "done https://example.com/a"}, last)
}

func TestRunHostErrorAborts(t *testing.T) {
	host := &fakeHost{}
	err := NewRunner(WithLogger(logging.Discard())).Run(context.Background(), `
		page.click("#missing")
		page.click("#after")
	`, host)
	require.ErrorIs(t, err, ErrScript)
	assert.Contains(t, err.Error(), "element not found")
	assert.Empty(t, host.calls)
}

func TestRunSandbox(t *testing.T) {
	r := NewRunner(WithLogger(logging.Discard()))
	for _, code := range []string{
		`os.exit(1)`,
		`io.open("/etc/passwd")`,
		`require("os")`,
		`dofile("/tmp/x.lua")`,
		`load("return 1")()`,
	} {
		err := r.Run(context.Background(), code, &fakeHost{})
		assert.ErrorIs(t, err, ErrScript, code)
	}
}

func TestRunTimeout(t *testing.T) {
	r := NewRunner(WithTimeout(50*time.Millisecond), WithLogger(logging.Discard()))
	start := time.Now()
	err := r.Run(context.Background(), `while true do end`, &fakeHost{})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunSyntaxError(t *testing.T) {
	err := NewRunner(WithLogger(logging.Discard())).Run(context.Background(), `page.click(`, &fakeHost{})
	assert.ErrorIs(t, err, ErrScript)
}

func TestPrintGoesToLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(logging.Config{Level: logging.LevelInfo, Output: &buf})
	err := NewRunner(WithLogger(l)).Run(context.Background(), `print("hello", 42)`, &fakeHost{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "component=script")
}

func TestNotifyRejectsUnknownKind(t *testing.T) {
	rec := &notify.Recorder{}
	err := NewRunner(WithNotifier(rec), WithLogger(logging.Discard())).
		Run(context.Background(), `notify("x", "loud")`, &fakeHost{})
	assert.ErrorIs(t, err, ErrScript)
	assert.Empty(t, rec.All())
}
