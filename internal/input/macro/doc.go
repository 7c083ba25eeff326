// Package macro records page interactions and replays them.
//
// # Steps
//
// A macro is a list of Steps. Each step has a Kind (click, scroll, type,
// keypress, fill), the payload for that kind, and a Delay measured from the
// previous step (the first step from the start of the recording).
//
// # Recording
//
// State is a reducer: Begin starts a recording and Apply folds one DOM event
// into it. Recorder wraps the state behind a mutex for use as a page
// listener.
//
//	rec := macro.NewRecorder(page.Selector)
//	unsubscribe := page.Subscribe(rec.Record)
//	rec.Start(clock.Now())
//	// ... user interacts with the page ...
//	steps, err := rec.Stop()
//
// Events inside the engine's own interface are ignored. Modifier keydowns
// and keys that produce no step leave the delay clock untouched.
//
// # Playback
//
// Player replays a Macro through a Sink (normally a dom.Page). Delays are
// divided by the speed and measured on an injected clock. Only one playback
// runs per player; a second request returns ErrAlreadyPlaying. The first
// failing step aborts the rest of the macro and nothing is rolled back.
//
// # Thread Safety
//
// Recorder and Player are safe for concurrent use.
package macro
