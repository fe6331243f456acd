// Package formatter renders diff results for humans, as plain text or styled for terminals.
package formatter

import (
	"strings"

	"github.com/CPS-IT/migrator/internal/domain"
)

const (
	devNull      = "/dev/null"
	binaryNotice = "Binary files differ"
)

// Decorator renders diff paths and hunk lines in unified-diff notation.
type Decorator struct{}

// OriginalPath returns "--- a/<path>", or "--- /dev/null" for an empty path.
func (Decorator) OriginalPath(path string) string {
	if path == "" {
		return decoratePath(devNull, "-")
	}
	return decoratePath("a/"+path, "-")
}

// DestinationPath returns "+++ b/<path>", or "+++ /dev/null" for an empty path.
func (Decorator) DestinationPath(path string) string {
	if path == "" {
		return decoratePath(devNull, "+")
	}
	return decoratePath("b/"+path, "+")
}

// Line returns the line content prefixed by its unified-diff marker.
func (Decorator) Line(line domain.Line) string {
	return line.Kind.Prefix() + line.Content
}

func decoratePath(path, sign string) string {
	return strings.Repeat(sign, 3) + " " + path
}

// headerPaths returns the original and destination path lines of obj.
func headerPaths(d Decorator, obj domain.DiffObject) (string, string) {
	switch obj.Mode {
	case domain.DiffModeAdded, domain.DiffModeUntracked:
		return d.OriginalPath(""), d.DestinationPath(obj.DestinationPath)
	case domain.DiffModeDeleted, domain.DiffModeIgnored:
		return d.OriginalPath(obj.OriginalPath), d.DestinationPath("")
	default:
		return d.OriginalPath(obj.OriginalPath), d.DestinationPath(obj.DestinationPath)
	}
}
