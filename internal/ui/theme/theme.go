// Package theme holds the color palettes and Lip Gloss styles of the
// terminal UI.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a named palette.
type Theme struct {
	Name string
	// Chroma is the syntax highlighting style used for response bodies.
	Chroma string

	Base    lipgloss.Color
	Surface lipgloss.Color
	Overlay lipgloss.Color

	Text    lipgloss.Color
	Subtext lipgloss.Color
	Muted   lipgloss.Color

	Accent lipgloss.Color
	Red    lipgloss.Color
	Yellow lipgloss.Color
	Green  lipgloss.Color
	Blue   lipgloss.Color
	Teal   lipgloss.Color
}

// MethodColor returns the color for an HTTP method.
func (t Theme) MethodColor(method string) lipgloss.Color {
	switch strings.ToUpper(method) {
	case "GET":
		return t.Green
	case "POST":
		return t.Yellow
	case "PUT":
		return t.Blue
	case "DELETE":
		return t.Red
	default:
		return t.Text
	}
}

// Catalog maps normalized theme names to the built-in themes.
var Catalog = map[string]Theme{}

func init() {
	for _, t := range []Theme{CatppuccinMocha, CatppuccinLatte, Nord, Dracula} {
		Catalog[normalizeKey(t.Name)] = t
	}
}

// Get returns a built-in theme by name.
func Get(name string) (Theme, bool) {
	t, ok := Catalog[normalizeKey(name)]
	return t, ok
}

// Default returns the default theme.
func Default() Theme {
	return CatppuccinMocha
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}

var CatppuccinMocha = Theme{
	Name:    "Catppuccin Mocha",
	Chroma:  "catppuccin-mocha",
	Base:    lipgloss.Color("#1e1e2e"),
	Surface: lipgloss.Color("#313244"),
	Overlay: lipgloss.Color("#45475a"),
	Text:    lipgloss.Color("#cdd6f4"),
	Subtext: lipgloss.Color("#a6adc8"),
	Muted:   lipgloss.Color("#585b70"),
	Accent:  lipgloss.Color("#cba6f7"),
	Red:     lipgloss.Color("#f38ba8"),
	Yellow:  lipgloss.Color("#f9e2af"),
	Green:   lipgloss.Color("#a6e3a1"),
	Blue:    lipgloss.Color("#89b4fa"),
	Teal:    lipgloss.Color("#94e2d5"),
}

var CatppuccinLatte = Theme{
	Name:    "Catppuccin Latte",
	Chroma:  "catppuccin-latte",
	Base:    lipgloss.Color("#eff1f5"),
	Surface: lipgloss.Color("#ccd0da"),
	Overlay: lipgloss.Color("#9ca0b0"),
	Text:    lipgloss.Color("#4c4f69"),
	Subtext: lipgloss.Color("#6c6f85"),
	Muted:   lipgloss.Color("#8c8fa1"),
	Accent:  lipgloss.Color("#8839ef"),
	Red:     lipgloss.Color("#d20f39"),
	Yellow:  lipgloss.Color("#df8e1d"),
	Green:   lipgloss.Color("#40a02b"),
	Blue:    lipgloss.Color("#1e66f5"),
	Teal:    lipgloss.Color("#179299"),
}

var Nord = Theme{
	Name:    "Nord",
	Chroma:  "nord",
	Base:    lipgloss.Color("#2e3440"),
	Surface: lipgloss.Color("#3b4252"),
	Overlay: lipgloss.Color("#434c5e"),
	Text:    lipgloss.Color("#eceff4"),
	Subtext: lipgloss.Color("#d8dee9"),
	Muted:   lipgloss.Color("#4c566a"),
	Accent:  lipgloss.Color("#88c0d0"),
	Red:     lipgloss.Color("#bf616a"),
	Yellow:  lipgloss.Color("#ebcb8b"),
	Green:   lipgloss.Color("#a3be8c"),
	Blue:    lipgloss.Color("#5e81ac"),
	Teal:    lipgloss.Color("#8fbcbb"),
}

var Dracula = Theme{
	Name:    "Dracula",
	Chroma:  "dracula",
	Base:    lipgloss.Color("#282a36"),
	Surface: lipgloss.Color("#44475a"),
	Overlay: lipgloss.Color("#6272a4"),
	Text:    lipgloss.Color("#f8f8f2"),
	Subtext: lipgloss.Color("#d0d0d0"),
	Muted:   lipgloss.Color("#6272a4"),
	Accent:  lipgloss.Color("#bd93f9"),
	Red:     lipgloss.Color("#ff5555"),
	Yellow:  lipgloss.Color("#f1fa8c"),
	Green:   lipgloss.Color("#50fa7b"),
	Blue:    lipgloss.Color("#6272a4"),
	Teal:    lipgloss.Color("#8be9fd"),
}
