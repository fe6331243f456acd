package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Console writes user-facing messages.
type Console struct {
	out     io.Writer
	success lipgloss.Style
	failure lipgloss.Style
	section lipgloss.Style
	comment lipgloss.Style
}

// NewConsole creates a Console writing to out. Plain disables all styling.
func NewConsole(out io.Writer, plain bool) *Console {
	r := lipgloss.NewRenderer(out)
	if plain {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Console{
		out:     out,
		success: r.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("2")),
		failure: r.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")),
		section: r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		comment: r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// Success prints a highlighted success block.
func (c *Console) Success(msg string) {
	c.block(c.success, "[OK] "+msg)
}

// Error prints a highlighted error block.
func (c *Console) Error(msg string) {
	c.block(c.failure, "[ERROR] "+msg)
}

// Section prints an underlined section title.
func (c *Console) Section(title string) {
	c.printf("%s\n%s\n\n", c.section.Render(title), c.section.Render(strings.Repeat("-", len(title))))
}

// Note prints a hint line.
func (c *Console) Note(msg string) {
	c.printf("💡 %s\n", msg)
}

// Comment renders text the way inline references are highlighted in notes.
func (c *Console) Comment(text string) string {
	return c.comment.Render(text)
}

// Println writes text followed by a newline.
func (c *Console) Println(text string) {
	c.printf("%s\n", text)
}

func (c *Console) block(style lipgloss.Style, msg string) {
	c.printf("\n%s\n\n", style.Render(" "+msg+" "))
}

// printf is best-effort; there is no recovery action if the console write fails.
func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
