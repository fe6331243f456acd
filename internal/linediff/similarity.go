package linediff

import (
	"bytes"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity returns a score in [0, 1] describing how alike two contents are.
// Identical contents score 1. Binary contents score 0 unless identical.
func (d *Differ) Similarity(a, b []byte) float64 {
	if bytes.Equal(a, b) {
		return 1
	}
	if d.IsBinary(a) || d.IsBinary(b) {
		return 0
	}
	la, lb := SplitLines(a), SplitLines(b)
	if len(la) == 0 || len(lb) == 0 {
		return 0
	}
	return difflib.NewMatcher(la, lb).Ratio()
}
