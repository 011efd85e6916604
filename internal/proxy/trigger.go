package proxy

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchMode selects how a Trigger compares request paths.
type MatchMode string

const (
	// MatchPrefix intercepts any path that starts with the pattern.
	MatchPrefix MatchMode = "prefix"
	// MatchExact intercepts only the pattern itself.
	MatchExact MatchMode = "exact"
	// MatchGlob treats the pattern as a doublestar glob.
	MatchGlob MatchMode = "glob"
)

// Trigger decides which request paths are download completions.
type Trigger struct {
	pattern string
	mode    MatchMode
}

// NewTrigger validates pattern for mode.
func NewTrigger(pattern string, mode MatchMode) (Trigger, error) {
	if pattern == "" {
		return Trigger{}, fmt.Errorf("trigger pattern is empty")
	}
	switch mode {
	case MatchPrefix, MatchExact:
	case MatchGlob:
		if !doublestar.ValidatePattern(pattern) {
			return Trigger{}, fmt.Errorf("invalid trigger glob %q", pattern)
		}
	default:
		return Trigger{}, fmt.Errorf("unknown trigger mode %q", mode)
	}
	return Trigger{pattern: pattern, mode: mode}, nil
}

// Match reports whether path should be intercepted. path excludes the query.
func (t Trigger) Match(path string) bool {
	switch t.mode {
	case MatchExact:
		return path == t.pattern
	case MatchGlob:
		ok, _ := doublestar.Match(t.pattern, path)
		return ok
	default:
		return strings.HasPrefix(path, t.pattern)
	}
}

func (t Trigger) String() string {
	return fmt.Sprintf("%s:%s", t.mode, t.pattern)
}
