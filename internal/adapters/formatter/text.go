package formatter

import (
	"strings"

	"github.com/CPS-IT/migrator/internal/domain"
)

// Text renders diff results without any styling.
type Text struct {
	decorator Decorator
}

// NewText creates a Text formatter.
func NewText() *Text {
	return &Text{}
}

// Format renders every diff object with its hunks. ok is false when there are no diff objects.
func (f *Text) Format(result *domain.DiffResult) (string, bool) {
	objects := result.DiffObjects()
	if len(objects) == 0 {
		return "", false
	}

	var lines []string
	for _, obj := range objects {
		src, dest := headerPaths(f.decorator, obj)
		lines = append(lines, src, dest)
		if obj.Binary {
			lines = append(lines, binaryNotice)
		}
		for _, h := range obj.Hunks {
			lines = append(lines, h.Header())
			for _, l := range h.Lines {
				lines = append(lines, f.decorator.Line(l))
			}
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n"), true
}
