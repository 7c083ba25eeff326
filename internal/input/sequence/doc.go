// Package sequence implements the rolling key buffer and the matcher that
// resolves buffered keystrokes against key patterns.
//
// The buffer is a value type. Push returns the next buffer state for an
// event and a timestamp, so the transition can be tested without a clock:
//
//	buf = buf.Push(ev, now, cfg)
//	res, ok := sequence.Match(buf.Events, candidates)
//
// A one-chord pattern matches the event that just arrived no matter what
// came before it. A pattern of N chords matches when the last N buffered
// events equal it in order. When several patterns match the same keystroke
// the longest wins and ties go to the earliest candidate.
package sequence
