// Package merge implements the three-way merge of file trees.
// The ancestor is the migration source, ours is the base directory and theirs
// is the migration target; the merge replays ancestor -> theirs onto ours.
package merge

import (
	"bytes"
	"sort"

	"github.com/samber/lo"

	"github.com/CPS-IT/migrator/internal/domain"
	"github.com/CPS-IT/migrator/internal/linediff"
)

// ConflictKind names the kind of disagreement between ours and theirs.
type ConflictKind string

const (
	// ConflictModifyModify means both sides edited overlapping regions differently.
	ConflictModifyModify ConflictKind = "modify/modify"
	// ConflictModifyDelete means ours modified a path that theirs deleted.
	ConflictModifyDelete ConflictKind = "modify/delete"
	// ConflictDeleteModify means ours deleted a path that theirs modified.
	ConflictDeleteModify ConflictKind = "delete/modify"
	// ConflictAddAdd means both sides added the path with different content.
	ConflictAddAdd ConflictKind = "add/add"
)

// Conflict is a path the merge could not reconcile.
type Conflict struct {
	Path string
	Kind ConflictKind
}

// Change is the delta between ours and the merged tree for one path.
// Old is the ours-side content and New the merged (or theirs, for conflicts) content.
type Change struct {
	Mode            domain.DiffMode
	OriginalPath    string
	DestinationPath string
	Old             []byte
	New             []byte
	OldPresent      bool
	NewPresent      bool
}

// Path returns the destination path, or the original path when there is none.
func (c Change) Path() string {
	if c.DestinationPath != "" {
		return c.DestinationPath
	}
	return c.OriginalPath
}

// Result is the outcome of a tree merge.
type Result struct {
	// Merged is ours with every cleanly merged change applied.
	// Conflicting and ignored paths keep their ours content.
	Merged domain.Snapshot

	// Changes are ordered by path.
	Changes []Change

	// Conflicts are ordered by path.
	Conflicts []Conflict
}

// Clean reports whether the merge had no conflicts.
func (r Result) Clean() bool {
	return len(r.Conflicts) == 0
}

// ConflictPaths returns the conflicting paths in order.
func (r Result) ConflictPaths() []string {
	return lo.Map(r.Conflicts, func(c Conflict, _ int) string { return c.Path })
}

// Engine merges snapshots.
type Engine struct {
	differ  *linediff.Differ
	renames RenameOptions
	ignore  *IgnoreMatcher
}

// Option configures an Engine.
type Option func(*Engine)

// WithRenames configures rename and copy detection.
func WithRenames(opts RenameOptions) Option {
	return func(e *Engine) {
		e.renames = opts
	}
}

// WithIgnore excludes paths matching m from the merge.
func WithIgnore(m *IgnoreMatcher) Option {
	return func(e *Engine) {
		e.ignore = m
	}
}

// NewEngine creates an Engine that aligns lines with differ.
func NewEngine(differ *linediff.Differ, opts ...Option) *Engine {
	e := &Engine{
		differ:  differ,
		renames: DefaultRenameOptions(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Merge replays ancestor -> theirs onto ours.
func (e *Engine) Merge(ancestor, ours, theirs domain.Snapshot) Result {
	// Fast paths: nothing changed upstream, or ours already equals theirs.
	if ancestor.Equal(theirs) || ours.Equal(theirs) {
		return Result{Merged: ours}
	}

	paths := lo.Union(ancestor.Paths(), ours.Paths(), theirs.Paths())
	sort.Strings(paths)

	merged := make(map[string][]byte, ours.Len())
	ours.Range(func(p string, content []byte) bool {
		merged[p] = content
		return true
	})

	var (
		changes   []Change
		conflicts []Conflict
	)
	for _, p := range paths {
		a, inA := ancestor.Get(p)
		o, inO := ours.Get(p)
		t, inT := theirs.Get(p)
		sa, so, st := side{a, inA}, side{o, inO}, side{t, inT}

		if e.ignore.Match(p) {
			// Only upstream changes that would have touched ours are reported.
			if !st.equal(sa) && !st.equal(so) {
				changes = append(changes, Change{
					Mode:            domain.DiffModeIgnored,
					OriginalPath:    p,
					DestinationPath: p,
					Old:             o,
					New:             t,
					OldPresent:      inO,
					NewPresent:      inT,
				})
			}
			continue
		}

		res := e.mergePath(sa, so, st)
		if res.conflict != "" {
			conflicts = append(conflicts, Conflict{Path: p, Kind: res.conflict})
			changes = append(changes, Change{
				Mode:            domain.DiffModeConflicted,
				OriginalPath:    p,
				DestinationPath: p,
				Old:             o,
				New:             t,
				OldPresent:      inO,
				NewPresent:      inT,
			})
			continue
		}

		if res.present == inO && bytes.Equal(res.content, o) {
			continue
		}

		change := Change{
			OriginalPath:    p,
			DestinationPath: p,
			Old:             o,
			New:             res.content,
			OldPresent:      inO,
			NewPresent:      res.present,
		}
		switch {
		case !inO:
			change.Mode = domain.DiffModeAdded
			change.OriginalPath = ""
		case !res.present:
			change.Mode = domain.DiffModeDeleted
			change.DestinationPath = ""
		default:
			change.Mode = domain.DiffModeModified
		}
		changes = append(changes, change)

		if res.present {
			merged[p] = res.content
		} else {
			delete(merged, p)
		}
	}

	if e.renames.Enabled {
		changes = e.detectRenames(changes, ours, merged)
	}

	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Path() < changes[j].Path() })

	return Result{
		Merged:    domain.NewSnapshot(merged),
		Changes:   changes,
		Conflicts: conflicts,
	}
}

type side struct {
	content []byte
	present bool
}

func (s side) equal(other side) bool {
	return s.present == other.present && bytes.Equal(s.content, other.content)
}

type pathResult struct {
	content  []byte
	present  bool
	conflict ConflictKind
}

// mergePath resolves one path from its ancestor, ours and theirs versions.
func (e *Engine) mergePath(a, o, t side) pathResult {
	keepOurs := pathResult{content: o.content, present: o.present}
	takeTheirs := pathResult{content: t.content, present: t.present}

	switch {
	case a.equal(t), o.equal(t):
		return keepOurs
	case a.equal(o):
		return takeTheirs
	}

	// All three versions differ from here on.
	switch {
	case !a.present:
		// Both added with different content; a side that did not add would equal a.
		return pathResult{content: o.content, present: o.present, conflict: ConflictAddAdd}
	case !t.present:
		return pathResult{content: o.content, present: o.present, conflict: ConflictModifyDelete}
	case !o.present:
		return pathResult{conflict: ConflictDeleteModify}
	}

	content, ok := e.mergeContent(a.content, o.content, t.content)
	if !ok {
		return pathResult{content: o.content, present: true, conflict: ConflictModifyModify}
	}
	return pathResult{content: content, present: true}
}

// mergeContent line-merges edits of ours and theirs relative to ancestor.
func (e *Engine) mergeContent(ancestor, ours, theirs []byte) ([]byte, bool) {
	if e.differ.IsBinary(ancestor) || e.differ.IsBinary(ours) || e.differ.IsBinary(theirs) {
		return nil, false
	}

	a := linediff.SplitLines(ancestor)
	o := linediff.SplitLines(ours)
	t := linediff.SplitLines(theirs)

	lines, ok := mergeLines(a, o, t, e.differ.EditLines(a, o), e.differ.EditLines(a, t))
	if !ok {
		return nil, false
	}

	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
	}
	return buf.Bytes(), true
}
