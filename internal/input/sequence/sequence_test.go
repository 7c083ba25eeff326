package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keyweave/internal/input/key"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func ev(k string) key.Event { return key.Event{Key: k} }

func TestBufferPush(t *testing.T) {
	cfg := DefaultConfig()
	var b Buffer

	b = b.Push(ev("g"), t0, cfg)
	b = b.Push(ev("g"), t0.Add(100*time.Millisecond), cfg)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, "g g", b.String())
	assert.Equal(t, t0.Add(100*time.Millisecond), b.Last)
}

func TestBufferPushDoesNotMutate(t *testing.T) {
	cfg := DefaultConfig()
	a := Buffer{}.Push(ev("a"), t0, cfg)
	b := a.Push(ev("b"), t0, cfg)

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 2, b.Len())
}

func TestBufferTimeoutClears(t *testing.T) {
	cfg := DefaultConfig()
	b := Buffer{}.Push(ev("g"), t0, cfg)

	// Exactly at the timeout the buffer is kept.
	kept := b.Push(ev("g"), t0.Add(cfg.Timeout), cfg)
	assert.Equal(t, 2, kept.Len())

	cleared := b.Push(ev("g"), t0.Add(cfg.Timeout+time.Millisecond), cfg)
	assert.Equal(t, 1, cleared.Len())
	assert.True(t, b.Expired(t0.Add(time.Second), cfg))
}

func TestBufferMaxLength(t *testing.T) {
	cfg := Config{Timeout: time.Second, MaxLength: 3}
	var b Buffer
	for i, k := range []string{"a", "b", "c", "d", "e"} {
		b = b.Push(ev(k), t0.Add(time.Duration(i)*time.Millisecond), cfg)
	}
	require.Equal(t, 3, b.Len())
	assert.Equal(t, "c d e", b.String())

	one := Buffer{}.Push(ev("a"), t0, Config{Timeout: time.Second})
	one = one.Push(ev("b"), t0, Config{Timeout: time.Second})
	assert.Equal(t, 1, one.Len(), "max length below one keeps a single event")
}

func candidates(patterns ...string) []Candidate {
	out := make([]Candidate, len(patterns))
	for i, p := range patterns {
		out[i] = Candidate{ID: p, Pattern: key.MustParsePattern(p)}
	}
	return out
}

func TestMatchChordIgnoresHistory(t *testing.T) {
	cands := candidates("Ctrl+K")
	ctrlK := key.Event{Key: "k", Modifiers: key.ModCtrl}

	histories := [][]key.Event{
		{ctrlK},
		{ev("x"), ev("y"), ctrlK},
		{ctrlK, ctrlK},
	}
	for _, h := range histories {
		res, ok := Match(h, cands)
		require.True(t, ok)
		assert.Equal(t, "Ctrl+K", res.ID)
	}
}

func TestMatchSequenceTail(t *testing.T) {
	cands := candidates("g g")

	_, ok := Match([]key.Event{ev("g")}, cands)
	assert.False(t, ok)

	res, ok := Match([]key.Event{ev("x"), ev("g"), ev("g")}, cands)
	require.True(t, ok)
	assert.Equal(t, 2, res.Length)

	_, ok = Match([]key.Event{ev("g"), ev("x"), ev("g")}, cands)
	assert.False(t, ok)
}

func TestMatchTimeoutBreaksSequence(t *testing.T) {
	cfg := DefaultConfig()
	cands := candidates("g g")

	b := Buffer{}.Push(ev("g"), t0, cfg)
	b = b.Push(ev("g"), t0.Add(cfg.Timeout+time.Millisecond), cfg)

	_, ok := Match(b.Events, cands)
	assert.False(t, ok)
}

func TestMatchLongestWins(t *testing.T) {
	cands := candidates("g", "g g")

	res, ok := Match([]key.Event{ev("g")}, cands)
	require.True(t, ok)
	assert.Equal(t, "g", res.ID)
	assert.True(t, res.Ambiguous)

	res, ok = Match([]key.Event{ev("g"), ev("g")}, cands)
	require.True(t, ok)
	assert.Equal(t, "g g", res.ID)
	assert.Equal(t, 1, res.Index)
}

func TestMatchTieGoesToStoredOrder(t *testing.T) {
	cands := []Candidate{
		{ID: "first", Pattern: key.MustParsePattern("Ctrl+K")},
		{ID: "second", Pattern: key.MustParsePattern("ctrl+k")},
	}
	res, ok := Match([]key.Event{{Key: "k", Modifiers: key.ModCtrl}}, cands)
	require.True(t, ok)
	assert.Equal(t, "first", res.ID)
	assert.False(t, res.Ambiguous)
}

func TestMatchSkipsEmptyPatterns(t *testing.T) {
	cands := []Candidate{{ID: "inert"}, {ID: "g", Pattern: key.MustParsePattern("g")}}
	res, ok := Match([]key.Event{ev("g")}, cands)
	require.True(t, ok)
	assert.Equal(t, "g", res.ID)
}

func TestUppercaseBuiltinPattern(t *testing.T) {
	cands := candidates("G", "g g")
	shiftG := key.Normalize(key.RawEvent{Key: "G", Shift: true})

	res, ok := Match([]key.Event{shiftG}, cands)
	require.True(t, ok)
	assert.Equal(t, "G", res.ID)

	_, ok = Match([]key.Event{ev("g")}, candidates("G"))
	assert.False(t, ok)
}

func TestHasPrefix(t *testing.T) {
	cands := candidates("g i", "Ctrl+K")
	assert.True(t, HasPrefix([]key.Event{ev("g")}, cands))
	assert.False(t, HasPrefix([]key.Event{ev("i")}, cands))
}
