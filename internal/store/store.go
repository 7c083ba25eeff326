// Package store persists keyweave state behind a namespaced key-value
// interface. Values are JSON documents.
//
// Three backends are provided: FileStore keeps everything in one JSON file
// and can watch it for external edits, SQLiteStore keeps rows in a SQLite
// database through gorm, and MemoryStore is used by tests and one-shot
// commands.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dshills/keyweave/internal/logging"
)

var (
	// ErrNotFound is returned by Get when no value is stored under the key.
	ErrNotFound = errors.New("not found")
	// ErrInvalidValue is returned by Set when the value is not valid JSON.
	ErrInvalidValue = errors.New("value is not valid JSON")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")
)

// Store is the persistence boundary used by the engine.
type Store interface {
	// Get returns the value stored under namespace/key, or an error wrapping
	// ErrNotFound.
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	// Set stores value under namespace/key, replacing any previous value.
	Set(ctx context.Context, namespace, key string, value []byte) error
	// SetMany stores every value under namespace, or none of them.
	SetMany(ctx context.Context, namespace string, values map[string][]byte) error
	// Close releases the backend.
	Close() error
}

// Error describes a failed persistence operation.
type Error struct {
	Op        string
	Namespace string
	Key       string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s/%s: %v", e.Op, e.Namespace, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op, namespace, key string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Namespace: namespace, Key: key, Err: err}
}

// validateAll checks that every value is JSON before anything is written.
func validateAll(namespace string, values map[string][]byte) error {
	for k, v := range values {
		if !json.Valid(v) {
			return wrap("set", namespace, k, ErrInvalidValue)
		}
	}
	return nil
}

// IsNotFound reports whether err means the key has no stored value.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Open creates the backend named by kind ("file", "sqlite" or "memory").
func Open(kind, path string, log *logging.Logger) (Store, error) {
	switch kind {
	case "", "file":
		return NewFileStore(path, WithFileLogger(logging.OrDefault(log).WithComponent("store")))
	case "sqlite":
		return NewSQLiteStore(path, log)
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", kind)
}
