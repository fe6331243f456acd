// Package linediff computes line-level edits and unified hunks between two contents.
// Line alignment is a Myers diff computed by github.com/sergi/go-diff in line mode;
// this package turns the resulting edit script into change regions and hunks.
package linediff

import (
	"bytes"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/CPS-IT/migrator/internal/domain"
)

// Default values.
const (
	// DefaultContext is the number of unchanged lines shown around each change.
	DefaultContext = 3

	// DefaultMaxTextBytes is the size above which content is treated as binary.
	DefaultMaxTextBytes int64 = 8 << 20

	// binarySniffLen is how many leading bytes are inspected for a null byte.
	binarySniffLen = 8000
)

// Edit is one change region between old and new line sequences.
// Ranges are 0-based and half-open; an empty old range is a pure insertion
// and an empty new range is a pure deletion.
type Edit struct {
	OldStart int
	OldEnd   int
	NewStart int
	NewEnd   int
}

// Differ computes edits and hunks.
type Differ struct {
	context      int
	maxTextBytes int64
	dmp          *diffmatchpatch.DiffMatchPatch
}

// Option configures a Differ.
type Option func(*Differ)

// WithContext sets the number of context lines around changes. Negative values are ignored.
func WithContext(lines int) Option {
	return func(d *Differ) {
		if lines >= 0 {
			d.context = lines
		}
	}
}

// WithMaxTextBytes sets the size above which content is not line-diffed.
// Zero disables the size check.
func WithMaxTextBytes(n int64) Option {
	return func(d *Differ) {
		if n >= 0 {
			d.maxTextBytes = n
		}
	}
}

// New creates a Differ.
func New(opts ...Option) *Differ {
	dmp := diffmatchpatch.New()
	// No deadline: the alignment must be minimal and deterministic.
	dmp.DiffTimeout = 0

	d := &Differ{
		context:      DefaultContext,
		maxTextBytes: DefaultMaxTextBytes,
		dmp:          dmp,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Context returns the configured number of context lines.
func (d *Differ) Context() int {
	return d.context
}

// IsBinary reports whether content must be handled as an opaque blob:
// it contains a null byte or is larger than the text threshold.
func (d *Differ) IsBinary(content []byte) bool {
	if d.maxTextBytes > 0 && int64(len(content)) > d.maxTextBytes {
		return true
	}
	return bytes.IndexByte(content[:min(len(content), binarySniffLen)], 0) >= 0
}

// SplitLines splits content into lines, each keeping its trailing newline.
// Only the last line can lack the newline.
func SplitLines(content []byte) []string {
	return splitText(string(content))
}

func splitText(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Edits returns the change regions transforming old into new, in order.
func (d *Differ) Edits(old, new []byte) []Edit {
	return d.edits(SplitLines(old), SplitLines(new))
}

// EditLines is Edits for already split lines.
func (d *Differ) EditLines(a, b []string) []Edit {
	return d.edits(a, b)
}

func (d *Differ) edits(a, b []string) []Edit {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	chars1, chars2, lineArray := d.dmp.DiffLinesToChars(strings.Join(a, ""), strings.Join(b, ""))
	diffs := d.dmp.DiffCharsToLines(d.dmp.DiffMain(chars1, chars2, false), lineArray)

	var (
		edits []Edit
		cur   *Edit
		i, j  int
	)
	flush := func() {
		if cur != nil {
			edits = append(edits, *cur)
			cur = nil
		}
	}
	for _, diff := range diffs {
		n := len(splitText(diff.Text))
		if n == 0 {
			continue
		}
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			i += n
			j += n
		case diffmatchpatch.DiffDelete:
			if cur == nil {
				cur = &Edit{OldStart: i, OldEnd: i, NewStart: j, NewEnd: j}
			}
			i += n
			cur.OldEnd = i
		case diffmatchpatch.DiffInsert:
			if cur == nil {
				cur = &Edit{OldStart: i, OldEnd: i, NewStart: j, NewEnd: j}
			}
			j += n
			cur.NewEnd = j
		}
	}
	flush()
	return edits
}

// Hunks returns the unified hunks transforming old into new.
// Identical contents and binary contents produce no hunks.
func (d *Differ) Hunks(old, new []byte) []domain.Hunk {
	if bytes.Equal(old, new) || d.IsBinary(old) || d.IsBinary(new) {
		return nil
	}
	a, b := SplitLines(old), SplitLines(new)
	return d.group(a, b, d.edits(a, b))
}

// group merges edits closer than twice the context into hunks.
func (d *Differ) group(a, b []string, edits []Edit) []domain.Hunk {
	var hunks []domain.Hunk
	for start := 0; start < len(edits); {
		end := start
		for end+1 < len(edits) && edits[end+1].OldStart-edits[end].OldEnd <= 2*d.context {
			end++
		}
		hunks = append(hunks, d.hunk(a, b, edits[start:end+1]))
		start = end + 1
	}
	return hunks
}

func (d *Differ) hunk(a, b []string, edits []Edit) domain.Hunk {
	first, last := edits[0], edits[len(edits)-1]
	pre := min(d.context, first.OldStart)
	post := min(d.context, len(a)-last.OldEnd)

	oldFrom, newFrom := first.OldStart-pre, first.NewStart-pre
	h := domain.Hunk{
		OldLines: last.OldEnd + post - oldFrom,
		NewLines: last.NewEnd + post - newFrom,
	}
	h.OldStart = headerStart(oldFrom, h.OldLines)
	h.NewStart = headerStart(newFrom, h.NewLines)

	pos := oldFrom
	for _, e := range edits {
		h.Lines = appendLines(h.Lines, domain.LineContext, a[pos:e.OldStart])
		h.Lines = appendLines(h.Lines, domain.LineDeleted, a[e.OldStart:e.OldEnd])
		h.Lines = appendLines(h.Lines, domain.LineAdded, b[e.NewStart:e.NewEnd])
		pos = e.OldEnd
	}
	h.Lines = appendLines(h.Lines, domain.LineContext, a[pos:pos+post])
	return h
}

// headerStart converts a 0-based range start into the unified header value.
func headerStart(from, count int) int {
	if count == 0 {
		return from
	}
	return from + 1
}

func appendLines(dst []domain.Line, kind domain.LineKind, lines []string) []domain.Line {
	for _, l := range lines {
		dst = append(dst, domain.Line{
			Kind:      kind,
			Content:   strings.TrimSuffix(l, "\n"),
			NoNewline: !strings.HasSuffix(l, "\n"),
		})
	}
	return dst
}
