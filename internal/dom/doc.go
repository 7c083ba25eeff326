// Package dom is a headless document the engine drives and listens to.
//
// A Page wraps a parsed HTML document (golang.org/x/net/html) and plays two
// roles:
//
//   - event source: user interactions (KeyDown, Click, ClickAt, ScrollBy,
//     SetValue) are dispatched to listeners as Events, which may prevent the
//     default behaviour
//   - command sink: the action executor and the macro player query elements
//     with CSS selectors (cascadia) and click, fill, type, scroll and
//     navigate through the same Page
//
// Every command is appended to a log, which is what the CLI prints after a
// replay.
//
// Layout is not computed. Elements that should be reachable by coordinates
// carry a data-box="x,y,w,h" attribute; ElementAt returns the last element in
// document order whose box contains the point.
//
// Elements inside a subtree marked with data-keyweave-ui belong to the
// engine's own interface and are skipped by the recorder.
package dom
