package loader

import (
	"strings"
	"testing"
)

func getByPath(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	v, ok := current[parts[len(parts)-1]]
	return v, ok
}

func TestEnvLoader_Load(t *testing.T) {
	loader := NewEnvLoaderFrom(Prefix, []string{
		"KEYWEAVE_LOG_LEVEL=debug",
		"KEYWEAVE_STORE=sqlite",
		"KEYWEAVE_STORE_PATH=/tmp/kw.db",
		"KEYWEAVE_HOST=www.example.com",
		"KEYWEAVE_SETTINGS_SEQUENCE_TIMEOUT=800",
		"KEYWEAVE_SETTINGS_MAX_SEQUENCE_LENGTH=1",
		"KEYWEAVE_SETTINGS_SHOW_TOOLBAR=off",
		"KEYWEAVE_SETTINGS_PLAYBACK_SPEED=1.5",
		"OTHER_VAR=ignored",
	})
	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		path string
		want any
	}{
		{"logging.level", "debug"},
		{"store.backend", "sqlite"},
		{"store.path", "/tmp/kw.db"},
		{"page.host", "www.example.com"},
		{"settings.sequenceTimeout", int64(800)},
		{"settings.maxSequenceLength", int64(1)},
		{"settings.showToolbar", false},
		{"settings.playbackSpeed", 1.5},
	}
	for _, tt := range tests {
		if val, ok := getByPath(config, tt.path); !ok || val != tt.want {
			t.Errorf("%s = %v (%T), want %v", tt.path, val, val, tt.want)
		}
	}
	if _, ok := config["other"]; ok {
		t.Error("variables without the prefix must be ignored")
	}
}

func TestEnvLoader_envToPath(t *testing.T) {
	loader := NewEnvLoader(Prefix)

	tests := []struct {
		env      string
		expected string
	}{
		{"KEYWEAVE_SETTINGS_SEQUENCE_TIMEOUT", "settings.sequenceTimeout"},
		{"KEYWEAVE_SETTINGS_RECORD_HOTKEY", "settings.recordHotkey"},
		{"KEYWEAVE_PAGE_HOST", "page.host"},
		{"KEYWEAVE_DEBUG", "debug"},
	}

	for _, tt := range tests {
		if got := loader.envToPath(tt.env); got != tt.expected {
			t.Errorf("envToPath(%q) = %q, want %q", tt.env, got, tt.expected)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"", ""},
		{"true", true},
		{"YES", true},
		{"off", false},
		{"1", int64(1)},
		{"0", int64(0)},
		{"-3", int64(-3)},
		{"2.5", 2.5},
		{"Alt+K", "Alt+K"},
		{"1.2.3", "1.2.3"},
	}

	for _, tt := range tests {
		if got := parseValue(tt.input); got != tt.want {
			t.Errorf("parseValue(%q) = %v (%T), want %v", tt.input, got, got, tt.want)
		}
	}
}

func TestAddMapping(t *testing.T) {
	loader := NewEnvLoaderFrom(Prefix, []string{"KEYWEAVE_DB=/data/kw.db"})
	loader.AddMapping("KEYWEAVE_DB", "store.path")

	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if val, ok := getByPath(config, "store.path"); !ok || val != "/data/kw.db" {
		t.Errorf("store.path = %v, want /data/kw.db", val)
	}
}
