package theme

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the Lip Gloss styles derived from a Theme.
type Styles struct {
	FocusedBorder   lipgloss.Style
	UnfocusedBorder lipgloss.Style

	Title    lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	URL      lipgloss.Style
	Key      lipgloss.Style
	Hint     lipgloss.Style
	Selected lipgloss.Style

	StatusBar lipgloss.Style
	Badge     lipgloss.Style
	Modal     lipgloss.Style

	theme Theme
}

// NewStyles creates a Styles set from a Theme.
func NewStyles(t Theme) Styles {
	return Styles{
		FocusedBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Accent),
		UnfocusedBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Overlay),

		Title:    lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		Normal:   lipgloss.NewStyle().Foreground(t.Text),
		Muted:    lipgloss.NewStyle().Foreground(t.Muted),
		Error:    lipgloss.NewStyle().Foreground(t.Red),
		Success:  lipgloss.NewStyle().Foreground(t.Green),
		Warning:  lipgloss.NewStyle().Foreground(t.Yellow),
		URL:      lipgloss.NewStyle().Foreground(t.Blue),
		Key:      lipgloss.NewStyle().Foreground(t.Accent),
		Hint:     lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Selected: lipgloss.NewStyle().Foreground(t.Base).Background(t.Accent),

		StatusBar: lipgloss.NewStyle().
			Foreground(t.Subtext).
			Background(t.Surface).
			Padding(0, 1),
		Badge: lipgloss.NewStyle().
			Foreground(t.Base).
			Background(t.Teal).
			Bold(true).
			Padding(0, 1),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Accent).
			Padding(1, 2),

		theme: t,
	}
}

// Theme returns the palette the styles were built from.
func (s Styles) Theme() Theme { return s.theme }

// Method renders an HTTP method in its color.
func (s Styles) Method(method string) string {
	return lipgloss.NewStyle().
		Foreground(s.theme.MethodColor(method)).
		Bold(true).
		Width(6).
		Render(method)
}

// Status renders a status label: green when ok, red otherwise.
func (s Styles) Status(label string, ok bool) string {
	if ok {
		return s.Success.Render(label)
	}
	return s.Error.Render(label)
}
