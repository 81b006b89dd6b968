package console

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	brand   = lipgloss.Color("#2196F3")
	accent  = lipgloss.Color("#8BC34A")
	warning = lipgloss.Color("#FFC107")
	muted   = lipgloss.Color("#9E9E9E")
)

// Styles colours console output. Colour is only emitted when the output is
// a terminal that supports it.
type Styles struct {
	Banner     lipgloss.Style
	Rule       lipgloss.Style
	MenuHeader lipgloss.Style
	MenuKey    lipgloss.Style
	Reply      lipgloss.Style
	Warning    lipgloss.Style
	Suggestion lipgloss.Style
	Typing     lipgloss.Style
}

func NewStyles(out io.Writer) Styles {
	r := lipgloss.NewRenderer(out)
	return Styles{
		Banner:     r.NewStyle().Foreground(brand).Bold(true),
		Rule:       r.NewStyle().Foreground(muted),
		MenuHeader: r.NewStyle().Foreground(brand).Bold(true),
		MenuKey:    r.NewStyle().Foreground(accent).Bold(true),
		Reply:      r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#f2f2f2"}),
		Warning:    r.NewStyle().Foreground(warning),
		Suggestion: r.NewStyle().Foreground(accent).Italic(true),
		Typing:     r.NewStyle().Foreground(muted).Italic(true),
	}
}
