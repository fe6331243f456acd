package formatter

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/CPS-IT/migrator/internal/domain"
)

// CLI renders diff results styled for terminal display.
// Colors are only emitted when the output writer supports them.
type CLI struct {
	decorator Decorator

	path   lipgloss.Style
	hunk   lipgloss.Style
	added  lipgloss.Style
	delete lipgloss.Style
	badges map[domain.DiffMode]lipgloss.Style
}

// NewCLI creates a CLI formatter whose color profile is detected from w.
func NewCLI(w io.Writer) *CLI {
	r := lipgloss.NewRenderer(w)
	// Diff lines are rendered verbatim, tabs included.
	style := func() lipgloss.Style {
		return r.NewStyle().TabWidth(lipgloss.NoTabConversion)
	}
	badge := func(bg lipgloss.Color) lipgloss.Style {
		return style().Foreground(lipgloss.Color("0")).Background(bg)
	}

	return &CLI{
		path:   style().Bold(true),
		hunk:   style().Foreground(lipgloss.Color("6")),
		added:  style().Foreground(lipgloss.Color("2")),
		delete: style().Foreground(lipgloss.Color("1")),
		badges: map[domain.DiffMode]lipgloss.Style{
			domain.DiffModeAdded:      badge("2"),
			domain.DiffModeCopied:     badge("8"),
			domain.DiffModeDeleted:    badge("1"),
			domain.DiffModeIgnored:    badge("8"),
			domain.DiffModeRenamed:    badge("3"),
			domain.DiffModeConflicted: badge("5"),
			domain.DiffModeUntracked:  badge("2"),
		},
	}
}

// Format renders every diff object with a mode badge and colored hunks.
// ok is false when there are no diff objects.
func (f *CLI) Format(result *domain.DiffResult) (string, bool) {
	objects := result.DiffObjects()
	if len(objects) == 0 {
		return "", false
	}

	var lines []string
	for _, obj := range objects {
		src, dest := headerPaths(f.decorator, obj)
		lines = append(lines, f.path.Render(src), f.path.Render(dest))
		if style, ok := f.badges[obj.Mode]; ok {
			lines = append(lines, style.Render(" "+strings.ToUpper(string(obj.Mode))+" "))
		}
		if obj.Binary {
			lines = append(lines, binaryNotice)
		}
		for _, h := range obj.Hunks {
			lines = append(lines, f.hunk.Render(h.Header()))
			for _, l := range h.Lines {
				lines = append(lines, f.line(l))
			}
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n"), true
}

func (f *CLI) line(l domain.Line) string {
	text := f.decorator.Line(l)
	switch l.Kind {
	case domain.LineAdded:
		return f.added.Render(text)
	case domain.LineDeleted:
		return f.delete.Render(text)
	default:
		return text
	}
}
