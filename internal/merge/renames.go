package merge

import (
	"bytes"
	"crypto/sha256"
	"sort"

	"github.com/CPS-IT/migrator/internal/domain"
)

// Rename detection defaults.
const (
	DefaultRenameThreshold = 0.5

	// renameCandidateLimit bounds the similarity pass, which is quadratic.
	renameCandidateLimit = 1000
)

// RenameOptions configures rename and copy detection.
type RenameOptions struct {
	Enabled bool

	// Threshold is the minimum similarity in [0, 1] for a non-exact rename.
	Threshold float64
}

// DefaultRenameOptions returns detection enabled at DefaultRenameThreshold.
func DefaultRenameOptions() RenameOptions {
	return RenameOptions{Enabled: true, Threshold: DefaultRenameThreshold}
}

type renamePair struct {
	deleted int
	added   int
	score   float64
}

// detectRenames pairs deleted with added changes and relabels them as renames,
// then relabels added changes that duplicate an untouched ours file as copies.
func (e *Engine) detectRenames(changes []Change, ours domain.Snapshot, merged map[string][]byte) []Change {
	var deleted, added []int
	for i, c := range changes {
		switch c.Mode {
		case domain.DiffModeDeleted:
			deleted = append(deleted, i)
		case domain.DiffModeAdded:
			added = append(added, i)
		}
	}
	if len(added) == 0 {
		return changes
	}

	pairs := matchExact(changes, deleted, added)
	usedDel, usedAdd := usedSets(pairs)
	if len(deleted) <= renameCandidateLimit && len(added) <= renameCandidateLimit {
		pairs = append(pairs, e.matchSimilar(changes, deleted, added, usedDel, usedAdd)...)
	}

	drop := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		del, add := changes[p.deleted], changes[p.added]
		changes[p.added] = Change{
			Mode:            domain.DiffModeRenamed,
			OriginalPath:    del.OriginalPath,
			DestinationPath: add.DestinationPath,
			Old:             del.Old,
			New:             add.New,
			OldPresent:      true,
			NewPresent:      true,
		}
		drop[p.deleted] = true
	}

	out := changes[:0]
	for i, c := range changes {
		if drop[i] {
			continue
		}
		if c.Mode == domain.DiffModeAdded {
			if source, ok := copySource(c.New, ours, merged); ok {
				c.Mode = domain.DiffModeCopied
				c.OriginalPath = source
				c.Old = c.New
				c.OldPresent = true
			}
		}
		out = append(out, c)
	}
	return out
}

// matchExact pairs deleted and added paths with identical content, in path order.
func matchExact(changes []Change, deleted, added []int) []renamePair {
	byHash := make(map[[sha256.Size]byte][]int)
	for _, d := range deleted {
		h := sha256.Sum256(changes[d].Old)
		byHash[h] = append(byHash[h], d)
	}

	var pairs []renamePair
	for _, a := range added {
		h := sha256.Sum256(changes[a].New)
		candidates := byHash[h]
		if len(candidates) == 0 {
			continue
		}
		pairs = append(pairs, renamePair{deleted: candidates[0], added: a, score: 1})
		byHash[h] = candidates[1:]
	}
	return pairs
}

// matchSimilar pairs the remaining paths by similarity, best score first.
func (e *Engine) matchSimilar(changes []Change, deleted, added []int, usedDel, usedAdd map[int]bool) []renamePair {
	var candidates []renamePair
	for _, d := range deleted {
		if usedDel[d] {
			continue
		}
		for _, a := range added {
			if usedAdd[a] {
				continue
			}
			if !comparableSize(len(changes[d].Old), len(changes[a].New)) {
				continue
			}
			score := e.differ.Similarity(changes[d].Old, changes[a].New)
			if score >= e.renames.Threshold && score > 0 {
				candidates = append(candidates, renamePair{deleted: d, added: a, score: score})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.score != cj.score {
			return ci.score > cj.score
		}
		if pi, pj := changes[ci.deleted].OriginalPath, changes[cj.deleted].OriginalPath; pi != pj {
			return pi < pj
		}
		return changes[ci.added].DestinationPath < changes[cj.added].DestinationPath
	})

	var pairs []renamePair
	for _, c := range candidates {
		if usedDel[c.deleted] || usedAdd[c.added] {
			continue
		}
		usedDel[c.deleted] = true
		usedAdd[c.added] = true
		pairs = append(pairs, c)
	}
	return pairs
}

func usedSets(pairs []renamePair) (map[int]bool, map[int]bool) {
	del := make(map[int]bool, len(pairs))
	add := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		del[p.deleted] = true
		add[p.added] = true
	}
	return del, add
}

// comparableSize skips pairs that cannot reach a useful ratio.
func comparableSize(a, b int) bool {
	if a > b {
		a, b = b, a
	}
	return b <= 2*a+1
}

// copySource returns the first ours path left untouched by the merge whose
// content equals content.
func copySource(content []byte, ours domain.Snapshot, merged map[string][]byte) (string, bool) {
	if len(content) == 0 {
		return "", false
	}
	var source string
	ours.Range(func(p string, o []byte) bool {
		m, ok := merged[p]
		if ok && bytes.Equal(m, o) && bytes.Equal(o, content) {
			source = p
			return false
		}
		return true
	})
	return source, source != ""
}
