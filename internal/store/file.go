package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/keyweave/internal/logging"
)

// DefaultDebounce collapses bursts of file events into one reload.
const DefaultDebounce = 100 * time.Millisecond

// document is the on-disk layout: namespace -> key -> JSON value.
type document map[string]map[string]json.RawMessage

// FileStore keeps every namespace in a single JSON file. Writes are atomic
// (temporary file plus rename).
type FileStore struct {
	mu       sync.Mutex
	path     string
	debounce time.Duration
	logger   *logging.Logger

	// last holds the bytes of our most recent write so Watch can skip it.
	last   []byte
	closed bool
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithDebounce sets the debounce window used by Watch.
func WithDebounce(d time.Duration) FileOption {
	return func(f *FileStore) {
		if d >= 0 {
			f.debounce = d
		}
	}
}

// WithFileLogger sets the logger.
func WithFileLogger(l *logging.Logger) FileOption {
	return func(f *FileStore) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFileStore creates a store backed by the JSON file at path. The file is
// created on first Set.
func NewFileStore(path string, opts ...FileOption) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving store path: %w", err)
	}
	f := &FileStore{
		path:     abs,
		debounce: DefaultDebounce,
		logger:   logging.Default().WithComponent("store"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Path returns the absolute file path.
func (f *FileStore) Path() string {
	return f.path
}

// Get implements Store.
func (f *FileStore) Get(_ context.Context, namespace, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, wrap("get", namespace, key, ErrClosed)
	}
	doc, err := f.readLocked()
	if err != nil {
		return nil, wrap("get", namespace, key, err)
	}
	v, ok := doc[namespace][key]
	if !ok {
		return nil, wrap("get", namespace, key, ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

// Set implements Store.
func (f *FileStore) Set(_ context.Context, namespace, key string, value []byte) error {
	if !json.Valid(value) {
		return wrap("set", namespace, key, ErrInvalidValue)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return wrap("set", namespace, key, ErrClosed)
	}
	doc, err := f.readLocked()
	if err != nil {
		return wrap("set", namespace, key, err)
	}
	if doc[namespace] == nil {
		doc[namespace] = make(map[string]json.RawMessage)
	}
	doc[namespace][key] = append(json.RawMessage(nil), value...)

	return wrap("set", namespace, key, f.writeLocked(doc))
}

// SetMany implements Store. All values land in one file write.
func (f *FileStore) SetMany(_ context.Context, namespace string, values map[string][]byte) error {
	if err := validateAll(namespace, values); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return wrap("set", namespace, "*", ErrClosed)
	}
	doc, err := f.readLocked()
	if err != nil {
		return wrap("set", namespace, "*", err)
	}
	if doc[namespace] == nil {
		doc[namespace] = make(map[string]json.RawMessage)
	}
	for k, v := range values {
		doc[namespace][k] = append(json.RawMessage(nil), v...)
	}

	return wrap("set", namespace, "*", f.writeLocked(doc))
}

// Close implements Store.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FileStore) readLocked() (document, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(document), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return make(document), nil
	}

	doc := make(document)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}
	return doc, nil
}

func (f *FileStore) writeLocked(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	f.last = data
	return nil
}

// changedExternally reports whether the file differs from our last write.
func (f *FileStore) changedExternally() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return !errors.Is(err, os.ErrNotExist) || f.last != nil
	}
	return !bytes.Equal(data, f.last)
}

// Watch calls onChange whenever the file is modified by another process.
// It blocks until ctx is cancelled or the watcher fails. The directory is
// watched rather than the file so atomic replacements are seen.
func (f *FileStore) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	fire := func() {
		if f.changedExternally() {
			f.logger.Debug("store file changed: %s", f.path)
			onChange()
		}
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(f.debounce, fire)
			timerMu.Unlock()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("store watcher error: %v", err)
		}
	}
}
