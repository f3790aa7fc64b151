package editor

import (
	"encoding/json"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/assertify/internal/core/request"
	"github.com/sadopc/assertify/internal/ui/theme"
)

func newModel() Model {
	m := New(theme.NewStyles(theme.Default()))
	m.SetSize(80, 30)
	m.SetFocused(true)
	return m
}

func typeText(m Model, s string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func TestComposerBuildsForm(t *testing.T) {
	m := newModel()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	if m.Method() != request.MethodPost {
		t.Fatalf("method = %q, want POST", m.Method())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")})
	if !m.Editing() || m.Field() != FieldURL {
		t.Fatal("i should start editing the URL")
	}
	m = typeText(m, "https://api.test/users")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, `{"X-Test":"1"}`)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.Field() != FieldBody {
		t.Fatalf("field = %d, want body", m.Field())
	}
	m = typeText(m, `{"name":"ada"}`)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.Editing() {
		t.Fatal("esc should leave editing")
	}

	d, err := request.ParseForm(m.Form())
	if err != nil {
		t.Fatalf("ParseForm() error: %v", err)
	}
	if d.URL != "https://api.test/users" || d.Method != request.MethodPost {
		t.Fatalf("descriptor = %+v", d)
	}
	if v, _ := d.Headers.Get("X-Test"); v != "1" {
		t.Fatalf("header X-Test = %q", v)
	}
	if string(d.Body) != `{"name":"ada"}` {
		t.Fatalf("body = %s", d.Body)
	}
}

func TestComposerLoadAndErrors(t *testing.T) {
	m := newModel()
	m.Load(request.Descriptor{
		URL:     "https://api.test/items",
		Method:  request.MethodPut,
		Headers: request.Pairs{{Key: "A", Value: "b"}},
		Body:    json.RawMessage(`{"x":1}`),
	})

	f := m.Form()
	if f.Method != request.MethodPut || f.URL != "https://api.test/items" {
		t.Fatalf("form = %+v", f)
	}
	if f.Headers != `{"A":"b"}` {
		t.Fatalf("headers = %q", f.Headers)
	}
	if f.Params != "" {
		t.Fatalf("params = %q, want empty", f.Params)
	}

	m.SetErrors(map[string]string{"headers": "Invalid JSON"})
	if !strings.Contains(m.View(), "Invalid JSON") {
		t.Fatal("view should show the field error")
	}
	m.Load(request.Descriptor{URL: "https://x"})
	if strings.Contains(m.View(), "Invalid JSON") {
		t.Fatal("loading a request clears errors")
	}
	if m.Method() != request.MethodGet {
		t.Fatalf("empty method should default to GET, got %q", m.Method())
	}
}

func TestCycleMethodWraps(t *testing.T) {
	m := newModel()
	for range request.Methods {
		m.CycleMethod()
	}
	if m.Method() != request.MethodGet {
		t.Fatalf("method = %q, want GET after a full cycle", m.Method())
	}
}
