package shortcut

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/keyweave/internal/input/conflict"
	"github.com/dshills/keyweave/internal/input/key"
	"github.com/dshills/keyweave/internal/input/sequence"
)

// Registry errors.
var (
	ErrNotFound    = errors.New("shortcut not found")
	ErrBuiltin     = errors.New("builtin shortcuts cannot be deleted")
	ErrDuplicateID = errors.New("duplicate shortcut id")
)

// entry caches the parsed pattern of a definition.
type entry struct {
	def      Definition
	pattern  key.Pattern
	parseErr error
}

func newEntry(d Definition) entry {
	p, err := d.Pattern()
	return entry{def: d, pattern: p, parseErr: err}
}

// Registry holds definitions in stored order.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	index   map[string]int
}

// NewRegistry creates a registry holding defs. Later duplicates of an id
// are dropped.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{}
	r.reset(dedupe(defs))
	return r
}

func dedupe(defs []Definition) []Definition {
	seen := make(map[string]bool, len(defs))
	out := make([]Definition, 0, len(defs))
	for _, d := range defs {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

func (r *Registry) reset(defs []Definition) {
	r.entries = make([]entry, len(defs))
	r.index = make(map[string]int, len(defs))
	for i, d := range defs {
		r.entries[i] = newEntry(d)
		r.index[d.ID] = i
	}
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List returns all definitions in stored order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.def
	}
	return out
}

// Get returns a definition by id.
func (r *Registry) Get(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return Definition{}, false
	}
	return r.entries[i].def, true
}

// Inert returns the definitions whose keys do not parse, with the reason.
func (r *Registry) Inert() map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]error)
	for _, e := range r.entries {
		if e.parseErr != nil {
			out[e.def.ID] = e.parseErr
		}
	}
	return out
}

// Candidates returns the enabled, parseable definitions in scope for host,
// in stored order.
func (r *Registry) Candidates(host string) []sequence.Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []sequence.Candidate
	for _, e := range r.entries {
		if e.parseErr != nil || !e.def.AppliesTo(host) {
			continue
		}
		out = append(out, sequence.Candidate{ID: e.def.ID, Pattern: e.pattern})
	}
	return out
}

// Add stores a new definition, applying the conflict strategy. The returned
// definition has its defaults filled in and may be disabled by the Disable
// strategy. A non-nil warning lists the conflicting definitions.
func (r *Registry) Add(d Definition, strategy conflict.Strategy) (Definition, *conflict.Warning, error) {
	if d.Action == nil {
		return Definition{}, nil, fmt.Errorf("%w: no action", ErrInvalidAction)
	}
	if err := d.Action.Validate(); err != nil {
		return Definition{}, nil, err
	}
	d = d.normalize()
	d.Builtin = false

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[d.ID]; exists {
		return Definition{}, nil, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
	}

	d, warning := r.resolveLocked(d, strategy)
	r.index[d.ID] = len(r.entries)
	r.entries = append(r.entries, newEntry(d))
	return d, warning, nil
}

// Update replaces an existing definition in place, applying the conflict
// strategy. The builtin flag cannot be changed.
func (r *Registry) Update(d Definition, strategy conflict.Strategy) (Definition, *conflict.Warning, error) {
	if d.Action == nil {
		return Definition{}, nil, fmt.Errorf("%w: no action", ErrInvalidAction)
	}
	if err := d.Action.Validate(); err != nil {
		return Definition{}, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[d.ID]
	if !ok {
		return Definition{}, nil, fmt.Errorf("%w: %s", ErrNotFound, d.ID)
	}
	d = d.normalize()
	d.Builtin = r.entries[i].def.Builtin

	d, warning := r.resolveLocked(d, strategy)
	r.entries[i] = newEntry(d)
	return d, warning, nil
}

func (r *Registry) resolveLocked(d Definition, strategy conflict.Strategy) (Definition, *conflict.Warning) {
	if !d.Enabled {
		return d, nil
	}
	decision := conflict.Resolve(d.Entry(), r.entriesLocked(), strategy)
	for _, id := range decision.Disable {
		j := r.index[id]
		r.entries[j].def.Enabled = false
	}
	if decision.SaveDisabled {
		d.Enabled = false
	}
	return d, decision.Warning
}

// Delete removes a definition. Builtins cannot be deleted.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if r.entries[i].def.Builtin {
		return fmt.Errorf("%w: %s", ErrBuiltin, id)
	}

	entries := make([]entry, 0, len(r.entries)-1)
	entries = append(entries, r.entries[:i]...)
	entries = append(entries, r.entries[i+1:]...)
	defs := make([]Definition, len(entries))
	for j, e := range entries {
		defs[j] = e.def
	}
	r.reset(defs)
	return nil
}

// SetEnabled toggles a definition. Enabling reports conflicts but never
// blocks.
func (r *Registry) SetEnabled(id string, enabled bool) (*conflict.Warning, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.entries[i].def.Enabled = enabled
	if !enabled {
		return nil, nil
	}
	d := r.entries[i].def
	if found := conflict.Find(d.Entry(), r.entriesLocked()); len(found) > 0 {
		return &conflict.Warning{Candidate: d.Entry(), Conflicts: found}, nil
	}
	return nil, nil
}

// Replace swaps in a complete set of definitions. Duplicate ids reject the
// whole set and leave the registry unchanged.
func (r *Registry) Replace(defs []Definition) error {
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("%w: empty id", ErrDuplicateID)
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		seen[d.ID] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset(defs)
	return nil
}

// Conflicts returns the saved conflicts of one definition, regardless of
// host.
func (r *Registry) Conflicts(id string) ([]conflict.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return conflict.Find(r.entries[i].def.Entry(), r.entriesLocked()), nil
}

// LiveConflicts returns the enabled definitions competing with id on host.
func (r *Registry) LiveConflicts(id, host string) []conflict.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return nil
	}
	return conflict.Live(r.entries[i].def.Entry(), r.entriesLocked(), host)
}

func (r *Registry) entriesLocked() []conflict.Entry {
	out := make([]conflict.Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.def.Entry()
	}
	return out
}
