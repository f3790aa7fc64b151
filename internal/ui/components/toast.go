// Package components holds the small reusable pieces of the terminal UI.
package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/assertify/internal/ui/theme"
)

// toastDismissMsg dismisses the toast. seq ignores ticks of older toasts.
type toastDismissMsg struct{ seq int }

// Toast is an auto-dismiss notification.
type Toast struct {
	Visible bool
	text    string
	isError bool
	seq     int
	theme   theme.Theme
}

// NewToast creates a new toast component.
func NewToast(t theme.Theme) Toast {
	return Toast{theme: t}
}

// Show displays a toast message and returns a Cmd for auto-dismiss.
func (m *Toast) Show(text string, isError bool, d time.Duration) tea.Cmd {
	if d <= 0 {
		d = 3 * time.Second
	}
	m.Visible = true
	m.text = text
	m.isError = isError
	m.seq++
	seq := m.seq
	return tea.Tick(d, func(time.Time) tea.Msg {
		return toastDismissMsg{seq: seq}
	})
}

// Text returns the message being shown.
func (m Toast) Text() string { return m.text }

// Update implements tea.Model.
func (m Toast) Update(msg tea.Msg) (Toast, tea.Cmd) {
	if d, ok := msg.(toastDismissMsg); ok && d.seq == m.seq {
		m.Visible = false
		m.text = ""
	}
	return m, nil
}

// View renders the toast notification.
func (m Toast) View() string {
	if !m.Visible || m.text == "" {
		return ""
	}

	fg := m.theme.Green
	if m.isError {
		fg = m.theme.Red
	}

	return lipgloss.NewStyle().
		Foreground(fg).
		Background(m.theme.Surface).
		Bold(true).
		Padding(0, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(fg).
		Render(m.text)
}
