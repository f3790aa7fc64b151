package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeKey(t *testing.T) {
	got := normalizeKey("  Catppuccin Mocha  ")
	if got != "catppuccin-mocha" {
		t.Fatalf("normalizeKey() = %q, want catppuccin-mocha", got)
	}
}

func TestGetBuiltInTheme(t *testing.T) {
	for _, name := range []string{"catppuccin mocha", "Catppuccin-Latte", "nord", "DRACULA"} {
		if _, ok := Get(name); !ok {
			t.Errorf("Get(%q) not found", name)
		}
	}
	if _, ok := Get("solarized"); ok {
		t.Error("Get(solarized) should not be found")
	}
}

func TestBuiltInsHaveChromaStyle(t *testing.T) {
	for key, th := range Catalog {
		if th.Chroma == "" {
			t.Errorf("theme %q has no chroma style", key)
		}
	}
}

func TestResolveCustomThemeFromHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "assertify", "themes")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	doc := "name: Ocean Breeze\nbase: \"#001122\"\ntext: \"#ffffff\"\n"
	if err := os.WriteFile(filepath.Join(dir, "ocean.yaml"), []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	// ignored: wrong extension
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("name: Nope"), 0644)

	got := Resolve("ocean breeze")
	if got.Name != "Ocean Breeze" {
		t.Fatalf("Resolve(custom) name = %q, want Ocean Breeze", got.Name)
	}
	if got.Base != "#001122" {
		t.Fatalf("base = %q, want #001122", got.Base)
	}
	if got.Green != CatppuccinMocha.Green {
		t.Fatalf("unset colors should come from the default theme, got green %q", got.Green)
	}
}

func TestLoadCustomThemeNameFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "midnight.yml")
	if err := os.WriteFile(path, []byte("accent: \"#ff00ff\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadCustomTheme(path)
	if err != nil {
		t.Fatalf("LoadCustomTheme() error: %v", err)
	}
	if got.Name != "midnight" || got.Accent != "#ff00ff" {
		t.Fatalf("got name %q accent %q", got.Name, got.Accent)
	}
}

func TestLoadCustomThemeInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("name: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCustomTheme(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if got := Resolve("not-a-real-theme"); got.Name != Default().Name {
		t.Fatalf("Resolve(unknown) = %q, want %q", got.Name, Default().Name)
	}
}

func TestMethodColor(t *testing.T) {
	th := Nord
	if th.MethodColor("get") != th.Green {
		t.Error("GET should be green")
	}
	if th.MethodColor("DELETE") != th.Red {
		t.Error("DELETE should be red")
	}
	if th.MethodColor("OPTIONS") != th.Text {
		t.Error("unknown methods use the text color")
	}
}

func TestStylesMethod(t *testing.T) {
	s := NewStyles(Dracula)
	if !strings.Contains(s.Method("POST"), "POST") {
		t.Fatal("rendered method should contain the method name")
	}
	if s.Theme().Name != "Dracula" {
		t.Fatalf("Theme() = %q", s.Theme().Name)
	}
}
