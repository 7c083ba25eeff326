package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func existingCtrlK() []Entry {
	return []Entry{
		{ID: "a", Name: "First", Pattern: "Ctrl+K", Scope: "global", Enabled: true},
		{ID: "b", Name: "Second", Pattern: "ctrl+k", Scope: "github.com", Enabled: true},
		{ID: "c", Name: "Off", Pattern: "Ctrl+K", Scope: "global", Enabled: false},
		{ID: "d", Name: "Other", Pattern: "Ctrl+J", Scope: "global", Enabled: true},
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": Warn, "warn": Warn, "Override": Override, " disable ": Disable} {
		got, err := ParseStrategy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStrategy("ignore")
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	candidate := Entry{ID: "new", Pattern: " CTRL+K ", Scope: "www.github.com", Enabled: true}
	found := Find(candidate, existingCtrlK())

	require.Len(t, found, 2)
	assert.Equal(t, "a", found[0].ID)
	assert.Equal(t, "b", found[1].ID)
}

func TestFindScopeOverlap(t *testing.T) {
	existing := []Entry{
		{ID: "wild", Pattern: "Alt+X", Scope: "*.example.com", Enabled: true},
		{ID: "exact", Pattern: "Alt+X", Scope: "gitlab.com", Enabled: true},
	}

	assert.Len(t, Find(Entry{ID: "n", Pattern: "Alt+X", Scope: "sub.example.com"}, existing), 1)
	assert.Empty(t, Find(Entry{ID: "n", Pattern: "Alt+X", Scope: "example.com"}, existing))
	assert.Len(t, Find(Entry{ID: "n", Pattern: "Alt+X", Scope: "global"}, existing), 2)
}

func TestFindIgnoresSelfAndEmpty(t *testing.T) {
	existing := existingCtrlK()
	found := Find(existing[0], existing)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].ID)

	assert.Empty(t, Find(Entry{ID: "x", Pattern: "  "}, existing))
}

func TestResolveWarn(t *testing.T) {
	d := Resolve(Entry{ID: "new", Name: "New", Pattern: "Ctrl+K"}, existingCtrlK(), Warn)

	require.NotNil(t, d.Warning)
	assert.Empty(t, d.Disable)
	assert.False(t, d.SaveDisabled)
	assert.Equal(t, []string{"a", "b"}, d.Warning.IDs())
	assert.Contains(t, d.Warning.Error(), "First, Second")
}

func TestResolveOverride(t *testing.T) {
	d := Resolve(Entry{ID: "new", Pattern: "Ctrl+K"}, existingCtrlK(), Override)
	assert.Equal(t, []string{"a", "b"}, d.Disable)
	assert.False(t, d.SaveDisabled)
}

func TestResolveDisable(t *testing.T) {
	d := Resolve(Entry{ID: "new", Pattern: "Ctrl+K"}, existingCtrlK(), Disable)
	assert.Empty(t, d.Disable)
	assert.True(t, d.SaveDisabled)
}

func TestResolveNoConflict(t *testing.T) {
	d := Resolve(Entry{ID: "new", Pattern: "Ctrl+Q"}, existingCtrlK(), Override)
	assert.Nil(t, d.Warning)
	assert.Empty(t, d.Disable)
}

func TestLive(t *testing.T) {
	existing := existingCtrlK()

	live := Live(existing[0], existing, "github.com")
	require.Len(t, live, 1)
	assert.Equal(t, "b", live[0].ID)

	assert.Empty(t, Live(existing[0], existing, "example.org"))
}
