package merge

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreMatcher matches snapshot paths against gitignore-style patterns.
// A nil IgnoreMatcher matches nothing.
type IgnoreMatcher struct {
	matcher gitignore.Matcher
}

// NewIgnoreMatcher compiles patterns. Empty and comment lines are skipped.
// It returns nil when no pattern remains.
func NewIgnoreMatcher(patterns []string) *IgnoreMatcher {
	var ps []gitignore.Pattern
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}
	if len(ps) == 0 {
		return nil
	}
	return &IgnoreMatcher{matcher: gitignore.NewMatcher(ps)}
}

// Match reports whether the forward-slash path p is ignored.
func (m *IgnoreMatcher) Match(p string) bool {
	if m == nil {
		return false
	}
	return m.matcher.Match(strings.Split(p, "/"), false)
}
