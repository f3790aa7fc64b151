// Package sidebar is the history and collections panel.
package sidebar

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/ui/msgs"
	"github.com/sadopc/assertify/internal/ui/render"
	"github.com/sadopc/assertify/internal/ui/theme"
)

// UnknownRequest labels collection members missing from history.
const UnknownRequest = "Unknown Request"

// View selects what the sidebar lists.
type View int

const (
	ViewHistory View = iota
	ViewCollections
)

// row is one rendered line. Only rows with an item are selectable.
type row struct {
	item   *history.Item
	header string
	label  string
}

// Model is the sidebar panel.
type Model struct {
	items []history.Item
	cols  []collection.Collection
	view  View

	rows   []row
	cursor int

	width   int
	height  int
	focused bool

	filtering   bool
	filterInput textinput.Model

	now    func() time.Time
	styles theme.Styles
}

// New creates a new sidebar model.
func New(s theme.Styles) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.CharLimit = 128

	return Model{
		styles:      s,
		filterInput: ti,
		now:         time.Now,
	}
}

// SetData replaces the listed history and collections.
func (m *Model) SetData(items []history.Item, cols []collection.Collection) {
	m.items = items
	m.cols = cols
	m.rebuild()
}

// SetSize sets the panel dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.filterInput.Width = max(w-6, 4)
}

// SetFocused sets whether this panel has focus.
func (m *Model) SetFocused(f bool) { m.focused = f }

// Filtering reports whether the filter input has focus.
func (m Model) Filtering() bool { return m.filtering }

// ActiveView returns what is being listed.
func (m Model) ActiveView() View { return m.view }

// Current returns the item under the cursor.
func (m Model) Current() (history.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) || m.rows[m.cursor].item == nil {
		return history.Item{}, false
	}
	return *m.rows[m.cursor].item, true
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.filtering {
		return m.updateFilter(msg)
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "j", "down":
		m.move(1)
	case "k", "up":
		m.move(-1)
	case "g", "home":
		m.cursor = -1
		m.move(1)
	case "G", "end":
		m.cursor = len(m.rows)
		m.move(-1)
	case "t":
		if m.view == ViewHistory {
			m.view = ViewCollections
		} else {
			m.view = ViewHistory
		}
		m.cursor = 0
		m.rebuild()
	case "/":
		m.filtering = true
		focus := m.filterInput.Focus()
		return m, tea.Batch(focus, func() tea.Msg {
			return msgs.SetModeMsg{Mode: msgs.ModeFilter}
		})
	case "enter", "l":
		if it, ok := m.Current(); ok {
			return m, func() tea.Msg { return msgs.HistorySelectedMsg{Item: it} }
		}
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.Msg) (Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter", "esc":
			m.filtering = false
			m.filterInput.Blur()
			if key.String() == "esc" {
				m.filterInput.SetValue("")
				m.rebuild()
			}
			return m, func() tea.Msg { return msgs.SetModeMsg{Mode: msgs.ModeNormal} }
		}
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.cursor = 0
	m.rebuild()
	return m, cmd
}

// move steps the cursor by delta, skipping rows that cannot be selected.
func (m *Model) move(delta int) {
	for i := m.cursor + delta; i >= 0 && i < len(m.rows); i += delta {
		if m.rows[i].item != nil {
			m.cursor = i
			return
		}
	}
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		m.cursor = 0
	}
}

func (m *Model) rebuild() {
	query := m.filterInput.Value()
	m.rows = m.rows[:0]

	switch m.view {
	case ViewHistory:
		for _, it := range history.Filter(m.items, query) {
			it := it
			m.rows = append(m.rows, row{item: &it})
		}
	case ViewCollections:
		index := history.Index(m.items)
		for _, c := range m.cols {
			m.rows = append(m.rows, row{header: fmt.Sprintf("%s (%d)", c.Name, len(c.Items))})
			for _, id := range c.Items {
				if it, ok := index[id]; ok {
					m.rows = append(m.rows, row{item: &it})
				} else {
					m.rows = append(m.rows, row{label: UnknownRequest})
				}
			}
		}
	}

	if m.cursor >= len(m.rows) || m.cursor < 0 || (len(m.rows) > 0 && m.rows[m.cursor].item == nil) {
		m.cursor = -1
		m.move(1)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	border := m.styles.UnfocusedBorder
	if m.focused {
		border = m.styles.FocusedBorder
	}
	innerW := max(m.width-2, 1)
	innerH := max(m.height-2, 1)

	hist, cols := m.styles.Muted.Render("History"), m.styles.Muted.Render("Collections")
	if m.view == ViewHistory {
		hist = m.styles.Title.Render("History")
	} else {
		cols = m.styles.Title.Render("Collections")
	}
	lines := []string{hist + "  " + cols, ""}

	if len(m.rows) == 0 {
		empty := "  No history yet"
		if m.view == ViewCollections {
			empty = "  No collections"
		} else if m.filterInput.Value() != "" {
			empty = "  No matches"
		}
		lines = append(lines, m.styles.Muted.Render(empty))
	}
	for i, r := range m.rows {
		lines = append(lines, m.renderRow(r, i == m.cursor && m.focused, innerW))
	}

	avail := innerH
	if m.filtering {
		avail--
	}
	content := fitHeight(strings.Join(lines, "\n"), avail, m.cursor+2)
	if m.filtering {
		content += "\n" + m.filterInput.View()
	}

	return border.Width(innerW).Height(innerH).Render(content)
}

func (m Model) renderRow(r row, isCursor bool, width int) string {
	switch {
	case r.header != "":
		return m.styles.Key.Render(r.header)
	case r.item == nil:
		return "  " + m.styles.Hint.Render(r.label)
	}

	indent := ""
	if m.view == ViewCollections {
		indent = "  "
	}
	age := render.Age(r.item.CreatedAt.Time, m.now())
	if isCursor {
		plain := indent + padMethod(r.item.Method) + " " + r.item.URL
		return m.styles.Selected.Width(width).MaxWidth(width).Render(plain)
	}
	line := indent + m.styles.Method(r.item.Method) + " " + r.item.URL
	tail := m.styles.Muted.Render(" " + age)
	if lipgloss.Width(line)+lipgloss.Width(tail) > width {
		return lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	return line + tail
}

// padMethod pads an HTTP method to 6 chars.
func padMethod(method string) string {
	if len(method) >= 6 {
		return method[:6]
	}
	return method + strings.Repeat(" ", 6-len(method))
}

// fitHeight truncates or pads content to h lines, scrolling so that line
// focus stays visible.
func fitHeight(content string, h, focus int) string {
	lines := strings.Split(content, "\n")
	if len(lines) > h && focus >= h {
		lines = lines[focus-h+1:]
	}
	if len(lines) > h {
		lines = lines[:h]
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
