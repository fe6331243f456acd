package merge

import (
	"slices"
	"sort"

	"github.com/CPS-IT/migrator/internal/linediff"
)

// sidedEdit is an edit against the ancestor tagged with the side producing it.
type sidedEdit struct {
	linediff.Edit
	theirs bool
}

func (e sidedEdit) insertion() bool {
	return e.OldStart == e.OldEnd
}

// region is a run of overlapping edits covering ancestor lines [start, end).
type region struct {
	start, end int
	ours       []linediff.Edit
	theirs     []linediff.Edit
	// emptyAtEnd is set when an insertion is anchored at end.
	emptyAtEnd bool
}

func (r *region) add(e sidedEdit) {
	if e.theirs {
		r.theirs = append(r.theirs, e.Edit)
	} else {
		r.ours = append(r.ours, e.Edit)
	}
	switch {
	case e.OldEnd > r.end:
		r.end = e.OldEnd
		r.emptyAtEnd = e.insertion()
	case e.OldEnd == r.end && e.insertion():
		r.emptyAtEnd = true
	}
}

// overlaps reports whether e intersects the region or shares its insertion anchor.
func (r *region) overlaps(e sidedEdit) bool {
	if e.OldStart < r.end {
		return true
	}
	return e.OldStart == r.end && r.emptyAtEnd
}

// mergeLines combines the edits of both sides into the merged line sequence.
// It fails when an overlapping region is changed differently on both sides.
func mergeLines(ancestor, ours, theirs []string, oursEdits, theirsEdits []linediff.Edit) ([]string, bool) {
	all := make([]sidedEdit, 0, len(oursEdits)+len(theirsEdits))
	for _, e := range oursEdits {
		all = append(all, sidedEdit{Edit: e})
	}
	for _, e := range theirsEdits {
		all = append(all, sidedEdit{Edit: e, theirs: true})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].OldStart < all[j].OldStart })

	var (
		out []string
		pos int
	)
	for i := 0; i < len(all); {
		r := &region{start: all[i].OldStart, end: all[i].OldStart}
		r.add(all[i])
		i++
		for i < len(all) && r.overlaps(all[i]) {
			r.add(all[i])
			i++
		}

		text, ok := r.resolve(ancestor, ours, theirs)
		if !ok {
			return nil, false
		}
		out = append(out, ancestor[pos:r.start]...)
		out = append(out, text...)
		pos = r.end
	}
	return append(out, ancestor[pos:]...), true
}

// resolve returns the replacement text of the region.
func (r *region) resolve(ancestor, ours, theirs []string) ([]string, bool) {
	switch {
	case len(r.theirs) == 0:
		return replay(ancestor, ours, r.ours, r.start, r.end), true
	case len(r.ours) == 0:
		return replay(ancestor, theirs, r.theirs, r.start, r.end), true
	}
	o := replay(ancestor, ours, r.ours, r.start, r.end)
	t := replay(ancestor, theirs, r.theirs, r.start, r.end)
	return o, slices.Equal(o, t)
}

// replay applies one side's edits to ancestor lines [start, end).
func replay(ancestor, side []string, edits []linediff.Edit, start, end int) []string {
	var out []string
	pos := start
	for _, e := range edits {
		out = append(out, ancestor[pos:e.OldStart]...)
		out = append(out, side[e.NewStart:e.NewEnd]...)
		pos = e.OldEnd
	}
	return append(out, ancestor[pos:end]...)
}
