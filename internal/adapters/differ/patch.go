package differ

import (
	"fmt"
	"strings"

	"github.com/CPS-IT/migrator/internal/domain"
)

const (
	devNull     = "/dev/null"
	defaultMode = "100644"
	noNewline   = `\ No newline at end of file`
)

// patchEntry is one file section of a patch.
type patchEntry struct {
	object domain.DiffObject

	// hunks may differ from object.Hunks; deletions carry their removed lines here.
	hunks      []domain.Hunk
	oldPresent bool
	newPresent bool
}

// renderPatch writes entries as a git-style unified diff.
func renderPatch(entries []patchEntry) string {
	var b strings.Builder
	for _, e := range entries {
		writeEntry(&b, e)
	}
	return b.String()
}

func writeEntry(b *strings.Builder, e patchEntry) {
	obj := e.object
	oldName, newName := obj.OriginalPath, obj.DestinationPath
	if oldName == "" {
		oldName = newName
	}
	if newName == "" {
		newName = oldName
	}

	fmt.Fprintf(b, "diff --git a/%s b/%s\n", oldName, newName)
	switch {
	case !e.oldPresent:
		fmt.Fprintf(b, "new file mode %s\n", defaultMode)
	case !e.newPresent:
		fmt.Fprintf(b, "deleted file mode %s\n", defaultMode)
	}
	switch obj.Mode {
	case domain.DiffModeRenamed:
		fmt.Fprintf(b, "rename from %s\nrename to %s\n", oldName, newName)
	case domain.DiffModeCopied:
		fmt.Fprintf(b, "copy from %s\ncopy to %s\n", oldName, newName)
	}

	from, to := "a/"+oldName, "b/"+newName
	if !e.oldPresent {
		from = devNull
	}
	if !e.newPresent {
		to = devNull
	}

	if obj.Binary {
		fmt.Fprintf(b, "Binary files %s and %s differ\n", from, to)
		return
	}
	if len(e.hunks) == 0 {
		return
	}

	fmt.Fprintf(b, "--- %s\n+++ %s\n", from, to)
	for _, h := range e.hunks {
		b.WriteString(h.Header())
		b.WriteByte('\n')
		for _, l := range h.Lines {
			b.WriteString(l.Kind.Prefix())
			b.WriteString(l.Content)
			b.WriteByte('\n')
			if l.NoNewline {
				b.WriteString(noNewline)
				b.WriteByte('\n')
			}
		}
	}
}
