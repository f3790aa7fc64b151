package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/ui/msgs"
	"github.com/sadopc/assertify/internal/ui/theme"
)

// Picker is the add-to-collection dialog. The last row opens a name input
// for a new collection.
type Picker struct {
	Visible bool

	item   *history.Item
	cols   []collection.Collection
	cursor int

	naming bool
	input  textinput.Model

	theme theme.Theme
}

// NewPicker creates a hidden picker.
func NewPicker(t theme.Theme) Picker {
	ti := textinput.New()
	ti.Placeholder = "Collection name"
	ti.Prompt = "› "
	ti.CharLimit = 100
	return Picker{theme: t, input: ti}
}

// Open shows the picker for item.
func (m *Picker) Open(item history.Item, cols []collection.Collection) {
	it := item
	m.Visible = true
	m.item = &it
	m.cols = cols
	m.cursor = 0
	m.naming = false
	m.input.Blur()
	m.input.SetValue("")
}

// OpenNew shows only the name input; the new collection starts empty.
func (m *Picker) OpenNew() {
	m.Visible = true
	m.item = nil
	m.cols = nil
	m.startNaming()
}

// SetCollections refreshes the list while the picker is open.
func (m *Picker) SetCollections(cols []collection.Collection) {
	m.cols = cols
	if m.cursor > len(cols) {
		m.cursor = len(cols)
	}
}

// Naming reports whether the name input has focus.
func (m Picker) Naming() bool { return m.naming }

func (m *Picker) startNaming() {
	m.naming = true
	m.input.SetValue("")
	m.input.Focus()
}

func (m *Picker) close() tea.Cmd {
	m.Visible = false
	m.naming = false
	m.input.Blur()
	return func() tea.Msg { return msgs.SetModeMsg{Mode: msgs.ModeNormal} }
}

// Update implements tea.Model.
func (m Picker) Update(msg tea.Msg) (Picker, tea.Cmd) {
	if !m.Visible {
		return m, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.naming {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.naming {
		switch key.String() {
		case "esc":
			if m.item == nil {
				cmd := m.close()
				return m, cmd
			}
			m.naming = false
			m.input.Blur()
			return m, nil
		case "enter":
			create := msgs.CreateCollectionMsg{Name: m.input.Value(), Item: m.item}
			cmd := m.close()
			return m, tea.Batch(cmd, func() tea.Msg { return create })
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "esc", "q":
		cmd := m.close()
		return m, cmd
	case "j", "down":
		if m.cursor < len(m.cols) {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "n":
		m.startNaming()
		return m, textinput.Blink
	case "enter":
		if m.cursor == len(m.cols) {
			m.startNaming()
			return m, textinput.Blink
		}
		pick := msgs.PickCollectionMsg{CollectionID: m.cols[m.cursor].ID, Item: *m.item}
		cmd := m.close()
		return m, tea.Batch(cmd, func() tea.Msg { return pick })
	}
	return m, nil
}

// View renders the dialog.
func (m Picker) View() string {
	if !m.Visible {
		return ""
	}
	const boxWidth = 50

	title := "Add to collection"
	if m.item == nil {
		title = "New collection"
	}
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(m.theme.Text).Bold(true).Render(title))
	b.WriteString("\n")
	if m.item != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(m.theme.Subtext).
			Width(boxWidth - 4).MaxHeight(1).
			Render(m.item.Method + " " + m.item.URL))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.naming {
		b.WriteString(m.input.View())
	} else {
		row := func(i int, label string) {
			st := lipgloss.NewStyle().Foreground(m.theme.Text).Width(boxWidth - 4)
			if i == m.cursor {
				st = st.Foreground(m.theme.Base).Background(m.theme.Accent)
			}
			b.WriteString(st.Render(label) + "\n")
		}
		for i, c := range m.cols {
			row(i, c.Name)
		}
		row(len(m.cols), "+ New collection")
	}

	return lipgloss.NewStyle().
		Width(boxWidth).
		Background(m.theme.Surface).
		Foreground(m.theme.Text).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Accent).
		Padding(1, 2).
		Render(b.String())
}
