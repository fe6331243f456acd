package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreRules matches paths below a directory against its .gitignore files
// and .git/info/exclude.
type IgnoreRules struct {
	matcher  gitignore.Matcher
	patterns int
}

// LoadIgnoreRules reads all ignore files below root.
// Nested .gitignore files apply to their own subtree, later files take precedence.
func LoadIgnoreRules(ctx context.Context, root string, log Logger) (*IgnoreRules, error) {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore files in %s: %w", root, err)
	}

	log.Debug(ctx, "loaded ignore rules", map[string]interface{}{
		"root":     root,
		"patterns": len(patterns),
	})

	return &IgnoreRules{
		matcher:  gitignore.NewMatcher(patterns),
		patterns: len(patterns),
	}, nil
}

// Match reports whether the forward-slash relative path is ignored.
func (r *IgnoreRules) Match(path string, isDir bool) bool {
	if r == nil || r.patterns == 0 {
		return false
	}
	return r.matcher.Match(strings.Split(path, "/"), isDir)
}

// Len returns the number of loaded patterns.
func (r *IgnoreRules) Len() int {
	if r == nil {
		return 0
	}
	return r.patterns
}
