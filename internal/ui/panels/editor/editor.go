// Package editor is the request composer panel.
package editor

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/assertify/internal/core/request"
	"github.com/sadopc/assertify/internal/ui/theme"
)

// Field identifies a composer input.
type Field int

const (
	FieldURL Field = iota
	FieldHeaders
	FieldParams
	FieldBody
	fieldCount
)

var fieldNames = [...]string{"URL", "Headers", "Params", "Body"}

// errorKeys maps fields to request.ValidationError keys.
var errorKeys = [...]string{"url", "headers", "params", "body"}

// Model is the composer panel.
type Model struct {
	method  string
	url     textinput.Model
	headers textinput.Model
	params  textinput.Model
	body    textarea.Model

	field   Field
	editing bool
	errors  map[string]string

	focused bool
	width   int
	height  int
	styles  theme.Styles
}

// New creates a composer with an empty GET request.
func New(styles theme.Styles) Model {
	mk := func(placeholder string, limit int) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = limit
		ti.Prompt = ""
		return ti
	}
	body := textarea.New()
	body.Placeholder = `{"name": "value"}`
	body.ShowLineNumbers = false
	body.CharLimit = 0
	body.SetHeight(6)

	return Model{
		method:  request.MethodGet,
		url:     mk("https://api.example.com/data", 2048),
		headers: mk(`{"Accept": "application/json"}`, 4096),
		params:  mk(`{"page": 1}`, 4096),
		body:    body,
		styles:  styles,
		width:   60,
		height:  20,
	}
}

// SetFocused sets whether the panel is focused.
func (m *Model) SetFocused(f bool) { m.focused = f }

// SetSize sets the panel dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	inner := max(w-4, 10)
	m.url.Width = inner
	m.headers.Width = inner
	m.params.Width = inner
	m.body.SetWidth(inner)
	m.body.SetHeight(max(h-14, 3))
}

// Editing reports whether a text input has focus.
func (m Model) Editing() bool { return m.editing }

// Method returns the selected method.
func (m Model) Method() string { return m.method }

// Field returns the highlighted field.
func (m Model) Field() Field { return m.field }

// Form returns the raw composer input.
func (m Model) Form() request.Form {
	return request.Form{
		URL:     m.url.Value(),
		Method:  m.method,
		Headers: m.headers.Value(),
		Params:  m.params.Value(),
		Body:    m.body.Value(),
	}
}

// Load fills the composer from a recorded request.
func (m *Model) Load(d request.Descriptor) {
	m.method = d.Method
	if m.method == "" {
		m.method = request.MethodGet
	}
	m.url.SetValue(d.URL)
	m.headers.SetValue(pairsText(d.Headers))
	m.params.SetValue(pairsText(d.Params))
	m.body.SetValue(string(d.Body))
	m.errors = nil
}

// SetErrors shows per-field validation messages; nil clears them.
func (m *Model) SetErrors(fields map[string]string) { m.errors = fields }

// FocusField starts editing f.
func (m *Model) FocusField(f Field) tea.Cmd {
	m.blurAll()
	m.field = f
	m.editing = true
	switch f {
	case FieldURL:
		m.url.CursorEnd()
		return m.url.Focus()
	case FieldHeaders:
		return m.headers.Focus()
	case FieldParams:
		return m.params.Focus()
	default:
		return m.body.Focus()
	}
}

// Blur leaves editing mode.
func (m *Model) Blur() {
	m.blurAll()
	m.editing = false
}

func (m *Model) blurAll() {
	m.url.Blur()
	m.headers.Blur()
	m.params.Blur()
	m.body.Blur()
}

// CycleMethod selects the next supported method.
func (m *Model) CycleMethod() {
	for i, v := range request.Methods {
		if v == m.method {
			m.method = request.Methods[(i+1)%len(request.Methods)]
			return
		}
	}
	m.method = request.MethodGet
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.editing {
		return m.updateEditing(msg)
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "j", "down":
		m.field = (m.field + 1) % fieldCount
	case "k", "up":
		m.field = (m.field + fieldCount - 1) % fieldCount
	case "m":
		m.CycleMethod()
	case "i":
		cmd := m.FocusField(m.field)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.Msg) (Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.Blur()
			return m, nil
		case "tab":
			cmd := m.FocusField((m.field + 1) % fieldCount)
			return m, cmd
		case "shift+tab":
			cmd := m.FocusField((m.field + fieldCount - 1) % fieldCount)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.field {
	case FieldURL:
		m.url, cmd = m.url.Update(msg)
	case FieldHeaders:
		m.headers, cmd = m.headers.Update(msg)
	case FieldParams:
		m.params, cmd = m.params.Update(msg)
	case FieldBody:
		m.body, cmd = m.body.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	border := m.styles.UnfocusedBorder
	if m.focused {
		border = m.styles.FocusedBorder
	}
	innerW := max(m.width-2, 1)
	innerH := max(m.height-2, 1)

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Request") + "  " + m.styles.Method(m.method))
	b.WriteString("\n\n")

	views := [...]string{m.url.View(), m.headers.View(), m.params.View(), m.body.View()}
	for f := FieldURL; f < fieldCount; f++ {
		label := m.styles.Key.Render(fieldNames[f])
		if f == m.field && m.focused {
			label = m.styles.Selected.Render(fieldNames[f])
		}
		if f == FieldBody && m.method != request.MethodPost && m.method != request.MethodPut {
			label += m.styles.Hint.Render("  (not sent for " + m.method + ")")
		}
		b.WriteString(label + "\n" + views[f] + "\n")
		if msg := m.errors[errorKeys[f]]; msg != "" {
			b.WriteString(m.styles.Error.Render(msg) + "\n")
		}
		b.WriteString("\n")
	}
	if msg := m.errors["method"]; msg != "" {
		b.WriteString(m.styles.Error.Render(msg) + "\n")
	}

	return border.
		Width(innerW).
		Height(innerH).
		Render(lipgloss.NewStyle().MaxHeight(innerH).Render(b.String()))
}

func pairsText(p request.Pairs) string {
	if len(p) == 0 {
		return ""
	}
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}
