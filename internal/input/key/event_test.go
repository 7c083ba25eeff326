package key

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  RawEvent
		want Event
	}{
		{"lowercase letter", RawEvent{Key: "g"}, Event{Key: "g"}},
		{"uppercase letter", RawEvent{Key: "G", Shift: true}, Event{Key: "g", Modifiers: ModShift}},
		{"ctrl chord", RawEvent{Key: "K", Ctrl: true}, Event{Key: "k", Modifiers: ModCtrl}},
		{"named key kept", RawEvent{Key: "Escape"}, Event{Key: "Escape"}},
		{"enter with meta", RawEvent{Key: "Enter", Meta: true}, Event{Key: "Enter", Modifiers: ModMeta}},
		{"punctuation", RawEvent{Key: "?", Shift: true}, Event{Key: "?", Modifiers: ModShift}},
		{"accented", RawEvent{Key: "É"}, Event{Key: "é"}},
		{"all modifiers", RawEvent{Key: "x", Ctrl: true, Alt: true, Shift: true, Meta: true},
			Event{Key: "x", Modifiers: ModCtrl | ModAlt | ModShift | ModMeta}},
	}

	for _, tt := range tests {
		if got := Normalize(tt.raw); got != tt.want {
			t.Errorf("%s: Normalize(%+v) = %#v, want %#v", tt.name, tt.raw, got, tt.want)
		}
	}
}

func TestIsPrintable(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"a", true},
		{"Z", true},
		{" ", true},
		{"?", true},
		{"👍", true},
		{"e\u0301", true}, // one grapheme cluster
		{"", false},
		{"Enter", false},
		{"ab", false},
		{"\t", false},
	}

	for _, tt := range tests {
		if got := IsPrintable(tt.key); got != tt.want {
			t.Errorf("IsPrintable(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestIsModifierKey(t *testing.T) {
	for _, k := range []string{"Shift", "Control", "Alt", "Meta"} {
		if !IsModifierKey(k) {
			t.Errorf("IsModifierKey(%q) = false, want true", k)
		}
	}
	for _, k := range []string{"a", "Enter", "shift"} {
		if IsModifierKey(k) {
			t.Errorf("IsModifierKey(%q) = true, want false", k)
		}
	}
}

func TestEventIsModified(t *testing.T) {
	tests := []struct {
		event Event
		want  bool
	}{
		{Event{Key: "a"}, false},
		{Event{Key: "a", Modifiers: ModShift}, false},
		{Event{Key: "a", Modifiers: ModCtrl}, true},
		{Event{Key: "Enter", Modifiers: ModMeta}, true},
	}

	for _, tt := range tests {
		if got := tt.event.IsModified(); got != tt.want {
			t.Errorf("%#v.IsModified() = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"esc", "Escape"},
		{"ESCAPE", "Escape"},
		{"return", "Enter"},
		{"Space", " "},
		{"up", "ArrowUp"},
		{"f5", "F5"},
		{"k", "k"},
		{"K", "K"},
		{"MediaPlay", "MediaPlay"},
	}

	for _, tt := range tests {
		if got := CanonicalKey(tt.token); got != tt.want {
			t.Errorf("CanonicalKey(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Event{Key: "g"}, "g"},
		{Event{Key: "k", Modifiers: ModCtrl | ModShift}, "Ctrl+Shift+k"},
		{Event{Key: " "}, "Space"},
		{Event{Key: "Enter", Modifiers: ModAlt}, "Alt+Enter"},
	}

	for _, tt := range tests {
		if got := tt.event.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
