package dom

import "strings"

// Command is one entry of the page's command log.
type Command struct {
	Name   string
	Target string
	Detail string
}

func (c Command) String() string {
	parts := []string{c.Name}
	if c.Target != "" {
		parts = append(parts, c.Target)
	}
	if c.Detail != "" {
		parts = append(parts, c.Detail)
	}
	return strings.Join(parts, " ")
}

// Commands returns a copy of the command log.
func (p *Page) Commands() []Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Command, len(p.log))
	copy(out, p.log)
	return out
}

// ResetCommands clears the command log.
func (p *Page) ResetCommands() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = nil
}
