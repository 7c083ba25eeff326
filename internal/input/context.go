package input

// Context is the engine state visible to hooks for one keystroke.
type Context struct {
	// Host is the page hostname used for scope checks.
	Host string

	// Pending is the buffered sequence, e.g. "g".
	Pending string

	Recording bool
	Playing   bool
}
