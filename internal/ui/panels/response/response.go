// Package response is the panel showing the selected response envelope.
package response

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/assertify/internal/core/request"
	"github.com/sadopc/assertify/internal/ui/render"
	"github.com/sadopc/assertify/internal/ui/theme"
)

type subTab int

const (
	tabData subTab = iota
	tabRequest
)

var subTabLabels = []string{"Data", "Request"}

// Model shows an envelope's data and the request that produced it.
type Model struct {
	viewport viewport.Model
	spinner  spinner.Model

	env     *request.Envelope
	active  subTab
	wrap    bool
	loading bool
	focused bool
	width   int
	height  int

	styles theme.Styles
}

// New creates a new response panel model.
func New(s theme.Styles) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(s.Theme().Accent)

	return Model{
		viewport: viewport.New(0, 0),
		spinner:  sp,
		styles:   s,
		wrap:     true,
	}
}

// SetEnvelope shows env.
func (m *Model) SetEnvelope(env request.Envelope) {
	m.loading = false
	m.env = &env
	m.renderContent()
	m.viewport.GotoTop()
}

// Envelope returns the envelope being shown.
func (m Model) Envelope() (request.Envelope, bool) {
	if m.env == nil {
		return request.Envelope{}, false
	}
	return *m.env, true
}

// SetLoading puts the panel into loading state.
func (m *Model) SetLoading(loading bool) { m.loading = loading }

// Loading reports whether a request is in flight.
func (m Model) Loading() bool { return m.loading }

// SetFocused sets whether this panel has focus.
func (m *Model) SetFocused(f bool) { m.focused = f }

// SetSize updates the panel dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	// border, tab line, summary line
	m.viewport.Width = max(w-2, 0)
	m.viewport.Height = max(h-4, 0)
	m.renderContent()
}

func (m *Model) renderContent() {
	if m.env == nil {
		return
	}
	var content string
	switch m.active {
	case tabRequest:
		d := m.env.Descriptor()
		b, err := json.Marshal(d)
		if err != nil {
			content = err.Error()
			break
		}
		content = render.Body(b, m.styles.Theme().Chroma)
	default:
		content = render.Body(m.env.Data, m.styles.Theme().Chroma)
	}
	if m.wrap {
		content = render.Wrap(content, m.viewport.Width)
	}
	m.viewport.SetContent(content)
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "[", "]":
			m.active = (m.active + 1) % subTab(len(subTabLabels))
			m.renderContent()
			m.viewport.GotoTop()
			return m, nil
		case "w":
			m.wrap = !m.wrap
			m.renderContent()
			return m, nil
		case "g":
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
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

	tabs := make([]string, len(subTabLabels))
	for i, l := range subTabLabels {
		if subTab(i) == m.active {
			tabs[i] = m.styles.Title.Render(l)
		} else {
			tabs[i] = m.styles.Muted.Render(l)
		}
	}
	header := strings.Join(tabs, "  ")

	var body string
	switch {
	case m.loading:
		body = m.spinner.View() + " " + m.styles.Muted.Render("Sending…")
	case m.env == nil:
		body = m.styles.Muted.Render("No response yet")
	default:
		body = m.summary() + "\n" + m.viewport.View()
	}

	return border.
		Width(innerW).
		Height(innerH).
		Render(lipgloss.NewStyle().MaxHeight(innerH).Render(header + "\n" + body))
}

func (m Model) summary() string {
	env := m.env
	line := m.styles.Method(env.Method) + " " + m.styles.URL.Render(env.URL) +
		"  " + m.styles.Muted.Render(render.Size(len(env.Data)))
	if msg, ok := env.FailureMessage(); ok {
		line += "\n" + m.styles.Error.Render("✗ "+msg)
	}
	return lipgloss.NewStyle().MaxWidth(max(m.width-2, 1)).Render(line)
}
