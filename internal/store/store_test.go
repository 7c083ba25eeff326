package store

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keyweave/internal/logging"
	"github.com/dshills/keyweave/internal/shortcut"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fs, err := NewFileStore(filepath.Join(dir, "state.json"))
	require.NoError(t, err)

	sq, err := NewSQLiteStore(filepath.Join(dir, "state.db"), logging.Discard())
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
		"sqlite": sq,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreGetSet(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "ns", "missing")
			require.Error(t, err)
			assert.True(t, IsNotFound(err))

			var serr *Error
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, "get", serr.Op)
			assert.Equal(t, "ns", serr.Namespace)
			assert.Equal(t, "missing", serr.Key)

			require.NoError(t, s.Set(ctx, "ns", "k", []byte(`{"a":1}`)))
			got, err := s.Get(ctx, "ns", "k")
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":1}`, string(got))

			require.NoError(t, s.Set(ctx, "ns", "k", []byte(`[1,2]`)))
			got, err = s.Get(ctx, "ns", "k")
			require.NoError(t, err)
			assert.JSONEq(t, `[1,2]`, string(got))

			_, err = s.Get(ctx, "other", "k")
			assert.True(t, IsNotFound(err), "namespaces are separate")
		})
	}
}

func TestStoreRejectsInvalidJSON(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Set(ctx, "ns", "k", []byte(`{not json`))
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestStoreSetManyAllOrNothing(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "ns", "a", []byte(`1`)))

			err := s.SetMany(ctx, "ns", map[string][]byte{
				"a": []byte(`2`),
				"b": []byte(`{not json`),
			})
			assert.ErrorIs(t, err, ErrInvalidValue)

			got, err := s.Get(ctx, "ns", "a")
			require.NoError(t, err)
			assert.JSONEq(t, `1`, string(got), "a rejected batch writes nothing")
			_, err = s.Get(ctx, "ns", "b")
			assert.True(t, IsNotFound(err))

			require.NoError(t, s.SetMany(ctx, "ns", map[string][]byte{
				"a": []byte(`2`),
				"b": []byte(`[3]`),
			}))
			got, err = s.Get(ctx, "ns", "a")
			require.NoError(t, err)
			assert.JSONEq(t, `2`, string(got))
			got, err = s.Get(ctx, "ns", "b")
			require.NoError(t, err)
			assert.JSONEq(t, `[3]`, string(got))
		})
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	_, err := s.Get(context.Background(), "ns", "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	a, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, Namespace, KeyData, []byte(`[]`)))

	b, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := b.Get(ctx, Namespace, KeyData)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o644))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = s.Get(context.Background(), Namespace, KeyData)
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestFileStoreWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := NewFileStore(path, WithDebounce(10*time.Millisecond), WithFileLogger(logging.Discard()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, func() { calls.Add(1) }) }()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, s.Set(ctx, Namespace, KeyData, []byte(`[]`)))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load(), "own writes are not reported")

	require.NoError(t, os.WriteFile(path, []byte(`{"shortcuts":{"data":[]}}`), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestLoadStateDefaults(t *testing.T) {
	st, err := LoadState(context.Background(), NewMemoryStore())
	require.NoError(t, err)
	assert.Len(t, st.Definitions, len(shortcut.Builtins()))
	assert.Equal(t, shortcut.DefaultSettings(), st.Settings)
}

func TestSaveLoadState(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			custom := shortcut.Definition{
				ID:      "custom-1",
				Name:    "Save",
				Keys:    "Ctrl+S",
				Action:  shortcut.ClickAction{Selector: "#save"},
				Scope:   "example.com",
				Enabled: true,
			}
			override := shortcut.Builtins()[0]
			override.Enabled = false

			settings := shortcut.DefaultSettings()
			settings.SequenceTimeout = 800

			require.NoError(t, SaveState(ctx, s, State{
				Definitions: []shortcut.Definition{override, custom},
				Settings:    settings,
			}))

			st, err := LoadState(ctx, s)
			require.NoError(t, err)
			require.Len(t, st.Definitions, 3)
			assert.Equal(t, shortcut.BuiltinScrollTop, st.Definitions[0].ID)
			assert.False(t, st.Definitions[0].Enabled, "stored builtin overrides in place")
			assert.True(t, st.Definitions[0].Builtin)
			assert.Equal(t, shortcut.BuiltinScrollBottom, st.Definitions[1].ID)
			assert.Equal(t, "custom-1", st.Definitions[2].ID)
			assert.Equal(t, shortcut.ClickAction{Selector: "#save"}, st.Definitions[2].Action)
			assert.Equal(t, 800, st.Settings.SequenceTimeout)
		})
	}
}

func TestLoadStateCorruptData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, Namespace, KeyData, []byte(`{"not":"a list"}`)))

	st, err := LoadState(ctx, s)
	require.Error(t, err)
	assert.Len(t, st.Definitions, len(shortcut.Builtins()), "builtins survive a bad stored list")
}

func TestLoadStateInvalidSettings(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		settings string
	}{
		{"negative timeout", `{"sequenceTimeout": -1}`},
		{"empty sequence", `{"maxSequenceLength": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore()
			require.NoError(t, s.Set(ctx, Namespace, KeySettings, []byte(tt.settings)))

			st, err := LoadState(ctx, s)
			var serr *Error
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, KeySettings, serr.Key)
			assert.Equal(t, shortcut.DefaultSettings(), st.Settings)
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("file", filepath.Join(dir, "a.json"), nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open("memory", "", nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open("sqlite", filepath.Join(dir, "a.db"), logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open("redis", "", nil)
	assert.Error(t, err)
}
