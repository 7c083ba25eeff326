package loader

import (
	"os"
	"strconv"
	"strings"
)

// Prefix is the environment variable prefix for keyweave.
const Prefix = "KEYWEAVE_"

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "KEYWEAVE_")
	mapping map[string]string // Env var -> config path
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "KEYWEAVE_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		environ: os.Environ,
	}
}

// NewEnvLoaderFrom creates a loader reading from a fixed environment list
// instead of the process environment.
func NewEnvLoaderFrom(prefix string, environ []string) *EnvLoader {
	l := NewEnvLoader(prefix)
	l.environ = func() []string { return environ }
	return l
}

// defaultEnvMapping returns the default environment variable mappings.
func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "LOG_LEVEL":  "logging.level",
		prefix + "LOG_FILE":   "logging.file",
		prefix + "STORE":      "store.backend",
		prefix + "STORE_PATH": "store.path",
		prefix + "HOST":       "page.host",
		prefix + "PAGE":       "page.file",
	}
}

// Load reads environment variables and returns a configuration map.
// Mapped variables are set at their path; other prefixed variables are
// converted by name (KEYWEAVE_SETTINGS_SEQUENCE_TIMEOUT becomes
// settings.sequenceTimeout).
// Note: Empty string values are treated as valid values, not as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}

		path, mapped := l.mapping[name]
		if !mapped {
			path = l.envToPath(name)
		}
		setByPath(config, path, parseValue(value))
	}

	return config, nil
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	if l.mapping == nil {
		l.mapping = make(map[string]string)
	}
	l.mapping[envVar] = configPath
}

// envToPath converts KEYWEAVE_SETTINGS_SEQUENCE_TIMEOUT to
// settings.sequenceTimeout.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.TrimPrefix(env, l.prefix)
	parts := strings.Split(name, "_")

	// First part is the section, the rest form the setting name in camelCase.
	section := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return section
	}

	settingName := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if len(part) > 0 {
			settingName += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return section + "." + settingName
}

// parseValue attempts to parse the string value into an appropriate type.
// Only words are read as booleans so that "0" and "1" stay numbers.
func parseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
