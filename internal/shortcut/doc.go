// Package shortcut defines shortcut definitions, their actions and the
// ordered registry the engine matches against.
//
// A Definition binds a key pattern ("Ctrl+Shift+K", "g g") to an Action in
// a scope. Actions form a closed set:
//
//   - ScrollAction: top, bottom, up, down, pageUp, pageDown
//   - NavigateAction: back, forward, reload
//   - ClickAction: click the first element matching a selector
//   - FillAction: set a field's value
//   - MacroAction: replay recorded steps
//   - CustomCodeAction: run a Lua snippet
//
// Definitions keep their stored order; matching ties are decided by it.
// Builtin definitions can be edited and disabled but not deleted.
package shortcut
