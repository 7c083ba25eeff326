package key

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// RawEvent is a keyboard event as delivered by an event source, before
// normalization. Key follows the DOM KeyboardEvent.key convention: a
// printable character ("a", "G", "?") or a named key ("Enter", "Escape").
type RawEvent struct {
	Key    string
	Ctrl   bool
	Alt    bool
	Shift  bool
	Meta   bool
	Repeat bool
}

// Event is a normalized key press: modifiers plus a key string.
// Single printable characters are lower-cased; named keys are kept verbatim.
type Event struct {
	Key       string
	Modifiers Modifier
}

// Normalize turns a raw keyboard event into its canonical form.
func Normalize(raw RawEvent) Event {
	k := raw.Key
	if IsPrintable(k) {
		k = strings.ToLower(k)
	}
	return Event{
		Key:       k,
		Modifiers: ModifiersFromFlags(raw.Ctrl, raw.Alt, raw.Shift, raw.Meta),
	}
}

// IsPrintable reports whether k is a single printable character, counted in
// grapheme clusters so that composed characters and emoji qualify.
func IsPrintable(k string) bool {
	if k == "" || uniseg.GraphemeClusterCount(k) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(k)
	return unicode.IsPrint(r)
}

// IsModifierKey reports whether k names a bare modifier key.
func IsModifierKey(k string) bool {
	switch k {
	case "Shift", "Control", "Alt", "Meta", "AltGraph", "OS", "Hyper", "Super":
		return true
	}
	return false
}

// IsModified reports whether Ctrl, Alt or Meta is held. Shift alone does not
// count since it changes the character itself.
func (e Event) IsModified() bool {
	return e.Modifiers&(ModCtrl|ModAlt|ModMeta) != 0
}

// String returns a pattern-style representation such as "Ctrl+Shift+k".
func (e Event) String() string {
	return Chord{Key: e.Key, Modifiers: e.Modifiers}.String()
}

// GoString implements fmt.GoStringer for debugging.
func (e Event) GoString() string {
	return fmt.Sprintf("Event{Key: %q, Modifiers: %s}", e.Key, e.Modifiers.String())
}

// namedKeys maps lowercase key names and aliases to their DOM key values.
var namedKeys = map[string]string{
	"escape":     "Escape",
	"esc":        "Escape",
	"enter":      "Enter",
	"return":     "Enter",
	"tab":        "Tab",
	"backspace":  "Backspace",
	"delete":     "Delete",
	"del":        "Delete",
	"insert":     "Insert",
	"home":       "Home",
	"end":        "End",
	"pageup":     "PageUp",
	"pgup":       "PageUp",
	"pagedown":   "PageDown",
	"pgdn":       "PageDown",
	"arrowup":    "ArrowUp",
	"up":         "ArrowUp",
	"arrowdown":  "ArrowDown",
	"down":       "ArrowDown",
	"arrowleft":  "ArrowLeft",
	"left":       "ArrowLeft",
	"arrowright": "ArrowRight",
	"right":      "ArrowRight",
	"space":      " ",
	"plus":       "+",
	"f1":         "F1",
	"f2":         "F2",
	"f3":         "F3",
	"f4":         "F4",
	"f5":         "F5",
	"f6":         "F6",
	"f7":         "F7",
	"f8":         "F8",
	"f9":         "F9",
	"f10":        "F10",
	"f11":        "F11",
	"f12":        "F12",
}

// CanonicalKey returns the DOM key value for a key token. Known aliases are
// mapped ("esc" -> "Escape", "space" -> " "); anything else is returned as is.
func CanonicalKey(token string) string {
	if k, ok := namedKeys[strings.ToLower(token)]; ok {
		return k
	}
	return token
}

// displayKey is the inverse of CanonicalKey for keys that do not print well.
func displayKey(k string) string {
	switch k {
	case " ":
		return "Space"
	case "+":
		return "Plus"
	}
	return k
}
