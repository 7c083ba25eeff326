// Package input turns keystrokes on a page into shortcut actions and page
// interactions into recorded macros.
//
// # Architecture
//
// The Engine subscribes to a dom.Page and routes every event through a
// fixed pipeline:
//
//   - Reserved hotkeys: the manager and record hotkeys are checked first and
//     always fire, even inside text fields.
//   - Recording: while a recording is running, page events are folded into
//     the macro recorder and no shortcut matching happens.
//   - Guards: keystrokes in editable targets, synthetic keystrokes and
//     auto-repeat of unmodified keys are ignored.
//   - Matching: the keystroke is pushed into the rolling sequence buffer and
//     resolved against the enabled definitions in scope for the page host.
//   - Dispatch: the winner runs through the action executor, live conflicts
//     are reported, and the page default is suppressed.
//
// # Key Sequences
//
// A one-chord pattern such as "Ctrl+K" fires on the keystroke itself. A
// sequence such as "g g" fires when its chords are the tail of the buffer.
// The buffer is cleared when the gap between keystrokes exceeds the
// sequence timeout. When a short pattern and a longer one both match, the
// longer wins; with an ambiguity grace configured, a short match that could
// still grow into a longer one is held back until the grace expires.
//
// # Usage
//
//	eng := input.New(page, input.WithStore(st), input.WithNotifier(n))
//	if err := eng.Load(ctx); err != nil {
//	    log.Warn("using defaults: %v", err)
//	}
//	eng.Attach(ctx)
//	defer eng.Close()
//
//	page.KeyDown(key.RawEvent{Key: "g"})
//	page.KeyDown(key.RawEvent{Key: "g"})
package input
