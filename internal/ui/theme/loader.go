package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// yamlTheme is the on-disk form of a custom theme. Missing colors are taken
// from the default theme.
type yamlTheme struct {
	Name    string `yaml:"name"`
	Chroma  string `yaml:"chroma"`
	Base    string `yaml:"base"`
	Surface string `yaml:"surface"`
	Overlay string `yaml:"overlay"`
	Text    string `yaml:"text"`
	Subtext string `yaml:"subtext"`
	Muted   string `yaml:"muted"`
	Accent  string `yaml:"accent"`
	Red     string `yaml:"red"`
	Yellow  string `yaml:"yellow"`
	Green   string `yaml:"green"`
	Blue    string `yaml:"blue"`
	Teal    string `yaml:"teal"`
}

// LoadCustomTheme loads a theme from a YAML file.
func LoadCustomTheme(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("reading theme file: %w", err)
	}

	var yt yamlTheme
	if err := yaml.Unmarshal(data, &yt); err != nil {
		return Theme{}, fmt.Errorf("parsing theme YAML: %w", err)
	}
	if yt.Name == "" {
		base := filepath.Base(path)
		yt.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	t := Default()
	t.Name = yt.Name
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	if yt.Chroma != "" {
		t.Chroma = yt.Chroma
	}
	set(&t.Base, yt.Base)
	set(&t.Surface, yt.Surface)
	set(&t.Overlay, yt.Overlay)
	set(&t.Text, yt.Text)
	set(&t.Subtext, yt.Subtext)
	set(&t.Muted, yt.Muted)
	set(&t.Accent, yt.Accent)
	set(&t.Red, yt.Red)
	set(&t.Yellow, yt.Yellow)
	set(&t.Green, yt.Green)
	set(&t.Blue, yt.Blue)
	set(&t.Teal, yt.Teal)
	return t, nil
}

// LoadCustomThemes loads all YAML themes from a directory.
func LoadCustomThemes(dir string) map[string]Theme {
	themes := make(map[string]Theme)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return themes
	}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		t, err := LoadCustomTheme(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		themes[normalizeKey(t.Name)] = t
	}
	return themes
}

// Resolve looks up a theme by name: built-ins first, then custom themes in
// ~/.config/assertify/themes, then the default.
func Resolve(name string) Theme {
	if t, ok := Get(name); ok {
		return t
	}
	if home, err := os.UserHomeDir(); err == nil {
		customs := LoadCustomThemes(filepath.Join(home, ".config", "assertify", "themes"))
		if t, ok := customs[normalizeKey(name)]; ok {
			return t
		}
	}
	return Default()
}
