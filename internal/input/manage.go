package input

import (
	"context"
	"fmt"

	"github.com/dshills/keyweave/internal/exchange"
	"github.com/dshills/keyweave/internal/input/conflict"
	"github.com/dshills/keyweave/internal/notify"
	"github.com/dshills/keyweave/internal/shortcut"
	"github.com/dshills/keyweave/internal/store"
)

// Load replaces the definitions and settings with the stored state laid
// over the builtins and defaults. On a read or decode failure the defaults
// are kept for what could not be read and the error is returned.
func (e *Engine) Load(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	st, err := store.LoadState(ctx, e.store)
	if rerr := e.registry.Replace(st.Definitions); rerr != nil {
		return rerr
	}
	e.mu.Lock()
	e.applySettingsLocked(st.Settings)
	e.mu.Unlock()

	if err != nil {
		e.log.Error("load state: %v", err)
		e.notifier.Notify(notify.Error("Could not load saved shortcuts").WithLabel("Storage"))
		return err
	}
	e.log.Debug("loaded %d shortcuts", e.registry.Len())
	return nil
}

// List returns the definitions in stored order.
func (e *Engine) List() []shortcut.Definition {
	return e.registry.List()
}

// Get returns one definition.
func (e *Engine) Get(id string) (shortcut.Definition, bool) {
	return e.registry.Get(id)
}

// Inert returns the definitions whose keys do not parse, with the reason.
func (e *Engine) Inert() map[string]error {
	return e.registry.Inert()
}

// Run executes one definition's action as if its keys were pressed, even
// when it is disabled. Macros keep playing in the background.
func (e *Engine) Run(ctx context.Context, id string) error {
	def, ok := e.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", shortcut.ErrNotFound, id)
	}
	return e.exec.Execute(ctx, def)
}

// Register adds a definition under the configured conflict strategy and
// persists the result. When only persistence fails the stored definition
// is returned together with the error.
func (e *Engine) Register(ctx context.Context, def shortcut.Definition) (shortcut.Definition, *conflict.Warning, error) {
	strategy := e.Settings().Strategy()
	saved, warning, err := e.registry.Add(def, strategy)
	if err != nil {
		return shortcut.Definition{}, nil, err
	}
	e.reportWarning(warning, strategy)
	return saved, warning, e.persist(ctx)
}

// Update replaces a definition under the configured conflict strategy and
// persists the result.
func (e *Engine) Update(ctx context.Context, def shortcut.Definition) (shortcut.Definition, *conflict.Warning, error) {
	strategy := e.Settings().Strategy()
	saved, warning, err := e.registry.Update(def, strategy)
	if err != nil {
		return shortcut.Definition{}, nil, err
	}
	e.reportWarning(warning, strategy)
	return saved, warning, e.persist(ctx)
}

// Delete removes a non-builtin definition.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.registry.Delete(id); err != nil {
		return err
	}
	return e.persist(ctx)
}

// SetEnabled enables or disables a definition. Enabling reports conflicts
// without blocking.
func (e *Engine) SetEnabled(ctx context.Context, id string, enabled bool) (*conflict.Warning, error) {
	warning, err := e.registry.SetEnabled(id, enabled)
	if err != nil {
		return nil, err
	}
	e.reportWarning(warning, conflict.Warn)
	return warning, e.persist(ctx)
}

// Conflicts returns the enabled definitions sharing id's pattern in an
// overlapping scope.
func (e *Engine) Conflicts(id string) ([]conflict.Entry, error) {
	return e.registry.Conflicts(id)
}

// TestConflicts reports the enabled definitions sharing id's pattern in an
// overlapping scope and notifies the result.
func (e *Engine) TestConflicts(id string) ([]conflict.Entry, error) {
	found, err := e.registry.Conflicts(id)
	if err != nil {
		return nil, err
	}
	def, _ := e.registry.Get(id)
	if len(found) == 0 {
		e.notifier.Notify(notify.Success("No conflicts").WithLabel(def.Label()))
		return nil, nil
	}
	w := &conflict.Warning{Candidate: def.Entry(), Conflicts: found}
	e.notifier.Notify(notify.Error(w.Error()).WithLabel("Conflict"))
	return found, nil
}

func (e *Engine) reportWarning(w *conflict.Warning, strategy conflict.Strategy) {
	if w == nil {
		return
	}
	var n notify.Notification
	switch strategy {
	case conflict.Override:
		n = notify.Info(fmt.Sprintf("Disabled %d conflicting shortcut(s): %s", len(w.Conflicts), w.Error()))
	case conflict.Disable:
		n = notify.Info("Saved disabled: " + w.Error())
	default:
		n = notify.Error(w.Error())
	}
	e.notifier.Notify(n.WithLabel("Conflict"))
}

// persist writes the definition list. Failures are logged, notified and
// returned.
func (e *Engine) persist(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	if err := store.SaveDefinitions(ctx, e.store, e.registry.List()); err != nil {
		e.log.Error("save shortcuts: %v", err)
		e.notifier.Notify(notify.Error("Could not save shortcuts").WithLabel("Storage"))
		return err
	}
	return nil
}

// SetSettings validates, applies and persists s.
func (e *Engine) SetSettings(ctx context.Context, s shortcut.Settings) error {
	if err := e.ApplySettings(s); err != nil {
		return err
	}
	if e.store == nil {
		return nil
	}
	if err := store.SaveSettings(ctx, e.store, s); err != nil {
		e.log.Error("save settings: %v", err)
		e.notifier.Notify(notify.Error("Could not save settings").WithLabel("Storage"))
		return err
	}
	return nil
}

// ApplySettings validates and applies s without persisting it.
func (e *Engine) ApplySettings(s shortcut.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.applySettingsLocked(s)
	e.mu.Unlock()
	return nil
}

// SetSetting updates one setting by its JSON name.
func (e *Engine) SetSetting(ctx context.Context, name, value string) error {
	s, err := e.Settings().Set(name, value)
	if err != nil {
		return err
	}
	return e.SetSettings(ctx, s)
}

// Export encodes the definitions and settings.
func (e *Engine) Export(format exchange.Format) ([]byte, error) {
	return exchange.Export(exchange.Bundle{Shortcuts: e.List(), Settings: e.Settings()}, format)
}

// Import replaces the definitions and settings with an exported bundle.
// A malformed bundle or a failed write leaves the current state untouched.
func (e *Engine) Import(ctx context.Context, data []byte, format exchange.Format) error {
	b, err := exchange.Import(data, format)
	if err != nil {
		e.notifier.Notify(notify.Error("Import failed: " + err.Error()).WithLabel("Import"))
		return err
	}
	defs := shortcut.Merge(shortcut.Builtins(), b.Shortcuts)

	if e.store != nil {
		if err := store.SaveState(ctx, e.store, store.State{Definitions: defs, Settings: b.Settings}); err != nil {
			e.log.Error("save imported state: %v", err)
			e.notifier.Notify(notify.Error("Import failed: could not save").WithLabel("Import"))
			return err
		}
	}
	if err := e.registry.Replace(defs); err != nil {
		return err
	}
	e.mu.Lock()
	e.applySettingsLocked(b.Settings)
	e.mu.Unlock()

	e.notifier.Notify(notify.Success(fmt.Sprintf("Imported %d shortcuts", len(b.Shortcuts))).WithLabel("Import"))
	return nil
}
