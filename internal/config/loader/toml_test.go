package loader

import (
	"errors"
	"io/fs"
	"testing"
	"time"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.toml", `
[store]
backend = "sqlite"
path = "/var/lib/keyweave.db"

[settings]
sequenceTimeout = 700
recordHotkey = "Alt+Shift+M"
`)

	config, err := NewTOMLLoaderWithFS(memfs, "/config.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, ok := getByPath(config, "store.backend"); !ok || val != "sqlite" {
		t.Errorf("store.backend = %v, want sqlite", val)
	}
	if val, ok := getByPath(config, "settings.sequenceTimeout"); !ok || val != int64(700) {
		t.Errorf("settings.sequenceTimeout = %v (%T), want 700", val, val)
	}
}

func TestTOMLLoader_MissingFile(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(NewMemFS(), "/nope.toml").Load()
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if config != nil {
		t.Errorf("config = %v, want nil", config)
	}

	config, err = NewTOMLLoader("").Load()
	if err != nil || config != nil {
		t.Errorf("empty path = %v, %v; want nil, nil", config, err)
	}
}

func TestTOMLLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[store\nbackend = 1\n")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	if err == nil {
		t.Fatal("expected parse error")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %T, want *ParseError", err)
	}
	if perr.Path != "/bad.toml" || perr.Line < 1 {
		t.Errorf("ParseError = %+v, want path /bad.toml with a line", perr)
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"store":    map[string]any{"backend": "file", "path": "a.json"},
		"logging":  map[string]any{"level": "info"},
		"settings": map[string]any{"sequenceTimeout": int64(500)},
	}
	src := map[string]any{
		"store":    map[string]any{"backend": "sqlite"},
		"settings": "replaced",
	}

	got := DeepMerge(dst, src)

	if v, _ := getByPath(got, "store.backend"); v != "sqlite" {
		t.Errorf("store.backend = %v, want sqlite", v)
	}
	if v, _ := getByPath(got, "store.path"); v != "a.json" {
		t.Errorf("store.path = %v, want a.json", v)
	}
	if v, _ := getByPath(got, "logging.level"); v != "info" {
		t.Errorf("logging.level = %v, want info", v)
	}
	if got["settings"] != "replaced" {
		t.Errorf("non-map source values replace maps, got %v", got["settings"])
	}

	if out := DeepMerge(nil, nil); out == nil {
		t.Error("DeepMerge(nil, nil) should return an empty map")
	}
}
