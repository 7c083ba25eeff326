package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keyweave/internal/logging"
)

func TestTerminalPlain(t *testing.T) {
	var buf bytes.Buffer
	n := NewTerminal(&buf)

	n.Notify(Success("Shortcut saved").WithLabel("Save form"))
	n.Notify(Error("Element not found"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[✓] Save form: Shortcut saved", lines[0])
	assert.Equal(t, "[✗] Element not found", lines[1])
}

func TestNotificationConstructors(t *testing.T) {
	assert.Equal(t, Notification{Kind: KindInfo, Message: "a"}, Info("a"))
	assert.Equal(t, Notification{Kind: KindError, Message: "bad 3"}, Errorf("bad %d", 3))
	assert.Equal(t, "x: y", Info("y").WithLabel("x").String())
}

func TestRecorderAndMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, b, Discard}

	m.Notify(Info("one"))
	m.Notify(Error("two"))

	assert.Len(t, a.All(), 2)
	assert.Equal(t, a.All(), b.All())

	last, ok := a.Last()
	require.True(t, ok)
	assert.Equal(t, KindError, last.Kind)

	a.Reset()
	_, ok = a.Last()
	assert.False(t, ok)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(logging.Config{Level: logging.LevelInfo, Output: &buf})

	NewLog(l).Notify(Error("boom").WithLabel("Deploy"))

	out := buf.String()
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "label=Deploy")
}
