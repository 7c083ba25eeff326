// Package key provides key event normalization and pattern parsing.
//
// This package defines the fundamental types for representing keyboard input:
//
//   - RawEvent: a keyboard event as reported by the event source
//   - Event: the normalized (modifiers + key) form used for matching
//   - Chord: one keystroke specification inside a pattern
//   - Pattern: an ordered list of chords (a chord or a sequence)
//
// # Patterns
//
// Patterns are written the way users type them:
//
//   - Chords: "Ctrl+Shift+K", "Alt+K", "Meta+Enter"
//   - Sequences: "g g", "Ctrl+X Ctrl+S" (space-separated chords)
//   - Single keys: "G", "?", "Escape"
//
// Modifier aliases are ctrl/control, alt/option, shift and meta/cmd/command.
// Keys keep their case when parsed. A bare uppercase letter such as "G"
// implies Shift through the key itself; the parsed chord carries no Shift
// flag, and Chord.Matches accounts for it.
//
// # Normalization
//
// Normalize lower-cases single printable characters (one grapheme cluster)
// and keeps named keys such as "Escape" verbatim. Keys are compared
// case-insensitively.
package key
