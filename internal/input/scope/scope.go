// Package scope decides which hosts a shortcut applies to.
//
// A scope is one of:
//
//   - "global" or empty: every host
//   - an exact host such as "github.com" (compared case-insensitively, with a
//     leading "www." ignored on both sides)
//   - a wildcard "*.example.com": any host ending in ".example.com", but not
//     "example.com" itself
package scope

import "strings"

// Global is the scope that matches every host.
const Global = "global"

const wildcardPrefix = "*."

// Kind classifies a scope string.
type Kind uint8

const (
	// KindGlobal matches every host.
	KindGlobal Kind = iota
	// KindExact matches one host.
	KindExact
	// KindWildcard matches subdomains of a suffix.
	KindWildcard
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindExact:
		return "exact"
	case KindWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// Scope is a parsed scope.
type Scope struct {
	Kind Kind
	// Host is the normalized host for KindExact, and the suffix including
	// the leading dot (".example.com") for KindWildcard.
	Host string
}

// Parse classifies a scope string.
func Parse(s string) Scope {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == Global:
		return Scope{Kind: KindGlobal}
	case strings.HasPrefix(s, wildcardPrefix):
		return Scope{Kind: KindWildcard, Host: s[1:]}
	default:
		return Scope{Kind: KindExact, Host: NormalizeHost(s)}
	}
}

// NormalizeHost lower-cases a hostname and strips a leading "www.".
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

// String returns the canonical scope string.
func (s Scope) String() string {
	switch s.Kind {
	case KindExact:
		return s.Host
	case KindWildcard:
		return "*" + s.Host
	default:
		return Global
	}
}

// Matches reports whether the scope applies to host.
func (s Scope) Matches(host string) bool {
	switch s.Kind {
	case KindGlobal:
		return true
	case KindExact:
		return NormalizeHost(host) == s.Host
	case KindWildcard:
		h := strings.ToLower(strings.TrimSpace(host))
		return strings.HasSuffix(h, s.Host)
	}
	return false
}

// Overlaps reports whether some host could be matched by both scopes.
// The answer does not depend on the current host.
func (s Scope) Overlaps(o Scope) bool {
	if s.Kind == KindGlobal || o.Kind == KindGlobal {
		return true
	}
	switch {
	case s.Kind == KindExact && o.Kind == KindExact:
		return s.Host == o.Host
	case s.Kind == KindExact:
		return o.Matches(s.Host)
	case o.Kind == KindExact:
		return s.Matches(o.Host)
	default:
		// Two wildcards share hosts when one suffix ends with the other.
		return strings.HasSuffix(s.Host, o.Host) || strings.HasSuffix(o.Host, s.Host)
	}
}

// Matches reports whether the scope string applies to host.
func Matches(scope, host string) bool {
	return Parse(scope).Matches(host)
}

// Overlaps reports whether two scope strings can apply to a common host.
func Overlaps(a, b string) bool {
	return Parse(a).Overlaps(Parse(b))
}
