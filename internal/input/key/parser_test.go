package key

import (
	"errors"
	"reflect"
	"testing"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		input string
		want  Pattern
	}{
		{"", nil},
		{"   ", nil},
		{"g", Pattern{{Key: "g"}}},
		{"G", Pattern{{Key: "G"}}},
		{"g g", Pattern{{Key: "g"}, {Key: "g"}}},
		{"  g   g  ", Pattern{{Key: "g"}, {Key: "g"}}},
		{"Ctrl+Shift+K", Pattern{{Key: "K", Modifiers: ModCtrl | ModShift}}},
		{"control+option+x", Pattern{{Key: "x", Modifiers: ModCtrl | ModAlt}}},
		{"Cmd+Enter", Pattern{{Key: "Enter", Modifiers: ModMeta}}},
		{"command+esc", Pattern{{Key: "Escape", Modifiers: ModMeta}}},
		{"Alt+Shift+R", Pattern{{Key: "R", Modifiers: ModAlt | ModShift}}},
		{"Ctrl+X Ctrl+S", Pattern{{Key: "X", Modifiers: ModCtrl}, {Key: "S", Modifiers: ModCtrl}}},
		{"Ctrl++", Pattern{{Key: "+", Modifiers: ModCtrl}}},
		{"+", Pattern{{Key: "+"}}},
		{"Space", Pattern{{Key: " "}}},
	}

	for _, tt := range tests {
		got, err := ParsePattern(tt.input)
		if err != nil {
			t.Errorf("ParsePattern(%q) error: %v", tt.input, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParsePattern(%q) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}

func TestParsePatternUppercaseHasNoShiftFlag(t *testing.T) {
	lower := MustParsePattern("g")
	upper := MustParsePattern("G")

	if upper[0].Modifiers.HasShift() {
		t.Error(`"G" should not set an explicit Shift flag`)
	}
	if lower[0].Modifiers != upper[0].Modifiers {
		t.Errorf("modifiers differ: %v vs %v", lower[0].Modifiers, upper[0].Modifiers)
	}
	if lower[0].Key == upper[0].Key {
		t.Error("keys should differ only by case")
	}
}

func TestParsePatternErrors(t *testing.T) {
	tests := []string{
		"Ctrl+",
		"Ctrl+Shift",
		"a+b",
		"Ctrl++Shift+",
		"g Ctrl+",
	}

	for _, input := range tests {
		_, err := ParsePattern(input)
		if err == nil {
			t.Errorf("ParsePattern(%q) should fail", input)
			continue
		}
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("ParsePattern(%q) error = %v, want ErrInvalidPattern", input, err)
		}
	}
}

func TestMustParsePatternPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParsePattern should panic on invalid input")
		}
	}()
	MustParsePattern("Ctrl+")
}

func TestChordMatches(t *testing.T) {
	tests := []struct {
		pattern string
		event   Event
		want    bool
	}{
		{"g", Event{Key: "g"}, true},
		{"g", Event{Key: "g", Modifiers: ModShift}, false},
		{"G", Event{Key: "g", Modifiers: ModShift}, true},
		{"G", Event{Key: "g"}, false},
		{"G", Event{Key: "G"}, false},
		{"g", Event{Key: "G"}, true},
		{"Ctrl+K", Event{Key: "k", Modifiers: ModCtrl}, true},
		{"Ctrl+K", Event{Key: "k", Modifiers: ModCtrl | ModShift}, false},
		{"Ctrl+K", Event{Key: "k", Modifiers: ModCtrl | ModAlt}, false},
		{"Ctrl+Shift+K", Event{Key: "k", Modifiers: ModCtrl | ModShift}, true},
		{"Ctrl+Shift+K", Event{Key: "k", Modifiers: ModCtrl}, false},
		{"Alt+Shift+R", Event{Key: "r", Modifiers: ModAlt | ModShift}, true},
		{"?", Event{Key: "?", Modifiers: ModShift}, true},
		{"?", Event{Key: "?"}, true},
		{"Shift+/", Event{Key: "/"}, false},
		{"Escape", Event{Key: "Escape"}, true},
		{"escape", Event{Key: "Escape"}, true},
		{"Escape", Event{Key: "Escape", Modifiers: ModShift}, false},
		{"Shift+Tab", Event{Key: "Tab", Modifiers: ModShift}, true},
		{"Meta+Enter", Event{Key: "Enter", Modifiers: ModMeta}, true},
		{"Meta+Enter", Event{Key: "Enter", Modifiers: ModCtrl}, false},
	}

	for _, tt := range tests {
		p := MustParsePattern(tt.pattern)
		if got := p[0].Matches(tt.event); got != tt.want {
			t.Errorf("%q.Matches(%#v) = %v, want %v", tt.pattern, tt.event, got, tt.want)
		}
	}
}

func TestPatternMatchesTail(t *testing.T) {
	gg := MustParsePattern("g g")
	g := Event{Key: "g"}
	x := Event{Key: "x"}

	tests := []struct {
		name   string
		events []Event
		want   bool
	}{
		{"empty", nil, false},
		{"too short", []Event{g}, false},
		{"exact", []Event{g, g}, true},
		{"tail", []Event{x, g, g}, true},
		{"broken", []Event{g, x, g}, false},
		{"wrong order", []Event{g, g, x}, false},
	}

	for _, tt := range tests {
		if got := gg.MatchesTail(tt.events); got != tt.want {
			t.Errorf("%s: MatchesTail = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPatternPrefixOfTail(t *testing.T) {
	p := MustParsePattern("g i t")
	g := Event{Key: "g"}
	i := Event{Key: "i"}
	tt := Event{Key: "t"}

	if !p.PrefixOfTail([]Event{g}) {
		t.Error(`"g" should be a prefix of "g i t"`)
	}
	if !p.PrefixOfTail([]Event{tt, g, i}) {
		t.Error(`"g i" should be a prefix of "g i t"`)
	}
	if p.PrefixOfTail([]Event{g, i, tt}) {
		t.Error("a complete match is not a proper prefix")
	}
	if p.PrefixOfTail([]Event{i}) {
		t.Error(`"i" is not a prefix`)
	}
}

func TestPatternString(t *testing.T) {
	tests := []string{"g g", "Ctrl+Shift+K", "Alt+Enter", "Ctrl+X Ctrl+S"}
	for _, s := range tests {
		if got := MustParsePattern(s).String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
	}
	if got := MustParsePattern("ctrl+space").String(); got != "Ctrl+Space" {
		t.Errorf("String() = %q, want %q", got, "Ctrl+Space")
	}
}

func TestNormalizePattern(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"Ctrl+K", "ctrl+k", true},
		{"  Ctrl+K ", "Ctrl+K", true},
		{"g", "G", true},
		{"g g", "g  g", false},
		{"Ctrl+K", "Ctrl+J", false},
	}

	for _, tt := range tests {
		if got := NormalizePattern(tt.a) == NormalizePattern(tt.b); got != tt.same {
			t.Errorf("NormalizePattern(%q) == NormalizePattern(%q) is %v, want %v", tt.a, tt.b, got, tt.same)
		}
	}
}
