// Package domain defines the core entities and interfaces for the migrator.
package domain

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Snapshot is an immutable mapping from forward-slash relative paths to file contents.
// The zero value is an empty snapshot.
type Snapshot struct {
	files map[string][]byte
}

// NewSnapshot creates a Snapshot from the given files.
// Keys are normalized to forward-slash relative paths and contents are copied,
// so later changes to files do not leak into the snapshot.
func NewSnapshot(files map[string][]byte) Snapshot {
	s := Snapshot{files: make(map[string][]byte, len(files))}
	for p, content := range files {
		s.files[NormalizePath(p)] = bytes.Clone(content)
	}
	return s
}

// NormalizePath converts the forward-slash path p into the canonical snapshot
// key form. Backslashes are part of the file name; OS separators are converted
// by the collectors.
func NormalizePath(p string) string {
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// Get returns the content stored for path and whether it exists.
func (s Snapshot) Get(p string) ([]byte, bool) {
	content, ok := s.files[p]
	return content, ok
}

// Has reports whether path exists in the snapshot.
func (s Snapshot) Has(p string) bool {
	_, ok := s.files[p]
	return ok
}

// Len returns the number of files in the snapshot.
func (s Snapshot) Len() int {
	return len(s.files)
}

// Size returns the total number of content bytes in the snapshot.
func (s Snapshot) Size() int64 {
	var total int64
	for _, content := range s.files {
		total += int64(len(content))
	}
	return total
}

// Paths returns all paths in lexicographic order.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Range calls fn for every file in path order until fn returns false.
func (s Snapshot) Range(fn func(path string, content []byte) bool) {
	for _, p := range s.Paths() {
		if !fn(p, s.files[p]) {
			return
		}
	}
}

// Equal reports whether both snapshots hold the same paths with identical contents.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.files) != len(other.files) {
		return false
	}
	for p, content := range s.files {
		o, ok := other.files[p]
		if !ok || !bytes.Equal(content, o) {
			return false
		}
	}
	return true
}

// Without returns a copy of the snapshot with the given paths removed.
func (s Snapshot) Without(paths ...string) Snapshot {
	out := Snapshot{files: make(map[string][]byte, len(s.files))}
	for p, content := range s.files {
		out.files[p] = content
	}
	for _, p := range paths {
		delete(out.files, p)
	}
	return out
}

// LineKind tags a single line inside a Hunk.
type LineKind int

const (
	// LineContext is an unchanged line present on both sides.
	LineContext LineKind = iota
	// LineAdded is a line only present on the new side.
	LineAdded
	// LineDeleted is a line only present on the old side.
	LineDeleted
)

// Prefix returns the unified-diff prefix character for the line kind.
func (k LineKind) Prefix() string {
	switch k {
	case LineAdded:
		return "+"
	case LineDeleted:
		return "-"
	default:
		return " "
	}
}

// Line is one tagged line of a Hunk.
type Line struct {
	Kind LineKind

	// Content is the line text without its trailing newline.
	Content string

	// NoNewline is set on the last line of a file that does not end with a newline.
	NoNewline bool
}

// Hunk describes one block of change between an old and a new content.
// Start values follow unified-diff conventions: 1-based, or the preceding
// line number when the corresponding count is zero.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Header returns the unified-diff hunk header, e.g. "@@ -4,6 +4,6 @@".
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%s +%s @@", formatRange(h.OldStart, h.OldLines), formatRange(h.NewStart, h.NewLines))
}

func formatRange(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// DiffMode classifies a DiffObject.
type DiffMode string

const (
	DiffModeAdded      DiffMode = "added"
	DiffModeModified   DiffMode = "modified"
	DiffModeDeleted    DiffMode = "deleted"
	DiffModeRenamed    DiffMode = "renamed"
	DiffModeCopied     DiffMode = "copied"
	DiffModeConflicted DiffMode = "conflicted"
	DiffModeIgnored    DiffMode = "ignored"
	DiffModeUntracked  DiffMode = "untracked"
)

// DiffModes lists all modes in declaration order.
var DiffModes = []DiffMode{
	DiffModeAdded,
	DiffModeModified,
	DiffModeDeleted,
	DiffModeRenamed,
	DiffModeCopied,
	DiffModeConflicted,
	DiffModeIgnored,
	DiffModeUntracked,
}

// DiffObject is the delta from Ours to the merged tree for one path.
type DiffObject struct {
	Mode DiffMode

	// OriginalPath is empty when Mode is DiffModeAdded or DiffModeUntracked.
	OriginalPath string

	// DestinationPath is empty when Mode is DiffModeDeleted.
	DestinationPath string

	// Hunks may be empty, e.g. for pure renames, deletions and binary files.
	Hunks []Hunk

	// Binary is set when at least one side was not line-diffed.
	Binary bool
}

// Path returns the destination path, or the original path when there is none.
func (o DiffObject) Path() string {
	if o.DestinationPath != "" {
		return o.DestinationPath
	}
	return o.OriginalPath
}

// Outcome is the success or failure summary of a merge attempt.
type Outcome struct {
	successful bool
	message    string
}

// Successful returns a successful Outcome.
func Successful() Outcome {
	return Outcome{successful: true}
}

// Failed returns a failed Outcome carrying message.
func Failed(message string) Outcome {
	return Outcome{message: message}
}

// IsSuccessful reports whether the outcome is successful.
func (o Outcome) IsSuccessful() bool {
	return o.successful
}

// Message returns the failure message; it is empty for successful outcomes.
func (o Outcome) Message() string {
	return o.message
}

// DiffResult is the immutable result of a diff computation.
type DiffResult struct {
	diffObjects []DiffObject
	patch       string
	outcome     Outcome
	trees       *resultTrees
}

// resultTrees keeps the Ours tree the result was computed against and the merged tree.
type resultTrees struct {
	ours   Snapshot
	merged Snapshot
}

// NewDiffResult creates a DiffResult without attached trees.
func NewDiffResult(diffObjects []DiffObject, patch string, outcome Outcome) *DiffResult {
	return &DiffResult{
		diffObjects: append([]DiffObject(nil), diffObjects...),
		patch:       patch,
		outcome:     outcome,
	}
}

// DiffObjects returns the ordered diff objects.
func (r *DiffResult) DiffObjects() []DiffObject {
	return append([]DiffObject(nil), r.diffObjects...)
}

// Patch returns the combined unified-diff text.
func (r *DiffResult) Patch() string {
	return r.patch
}

// Outcome returns the merge outcome.
func (r *DiffResult) Outcome() Outcome {
	return r.outcome
}

// WithOutcome returns a copy of the result carrying outcome instead.
func (r *DiffResult) WithOutcome(outcome Outcome) *DiffResult {
	c := *r
	c.outcome = outcome
	return &c
}

// WithTrees returns a copy of the result that remembers the Ours tree it was
// computed against and the merged tree to materialize on apply.
func (r *DiffResult) WithTrees(ours, merged Snapshot) *DiffResult {
	c := *r
	c.trees = &resultTrees{ours: ours, merged: merged}
	return &c
}

// Trees returns the Ours and merged trees. ok is false when none are attached.
func (r *DiffResult) Trees() (ours, merged Snapshot, ok bool) {
	if r.trees == nil {
		return Snapshot{}, Snapshot{}, false
	}
	return r.trees.ours, r.trees.merged, true
}

// ApplyStatus tags an ApplyResult.
type ApplyStatus int

const (
	// ApplyStatusApplied means the merged tree was written onto Base.
	ApplyStatusApplied ApplyStatus = iota
	// ApplyStatusRefused means Base was left untouched because the outcome was not successful.
	ApplyStatusRefused
)

// ApplyRefusedMessage is the outcome message used when a successful result is refused.
const ApplyRefusedMessage = "Unable to apply patch on a conflicted diff."

// ApplyResult is the tagged result of applying a DiffResult onto Base.
type ApplyResult struct {
	Status ApplyStatus

	// Result is the applied result, or the (possibly outcome-amended) refused result.
	Result *DiffResult

	// Written and Removed list the paths touched on Base, in path order.
	Written []string
	Removed []string
}

// Refused reports whether the apply was refused.
func (r *ApplyResult) Refused() bool {
	return r.Status == ApplyStatusRefused
}

// NewRefusal creates the refusal for result. A successful outcome is replaced with
// a failed one carrying ApplyRefusedMessage; a failed outcome is kept unchanged.
func NewRefusal(result *DiffResult) *ApplyResult {
	if result.Outcome().IsSuccessful() {
		result = result.WithOutcome(Failed(ApplyRefusedMessage))
	}
	return &ApplyResult{
		Status: ApplyStatusRefused,
		Result: result,
	}
}

// WorkingTree is the Git state of the base directory.
type WorkingTree struct {
	HeadSHA    string
	Branch     string
	IsDetached bool

	// Clean is false when tracked files are modified or untracked files exist.
	Clean bool
}
