package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/assertify/internal/migration"
	"github.com/sadopc/assertify/internal/session"
	"github.com/sadopc/assertify/internal/ui/msgs"
	"github.com/sadopc/assertify/internal/ui/render"
	"github.com/sadopc/assertify/internal/ui/theme"
)

// StatusBar is a full-width bottom status bar.
type StatusBar struct {
	identity  session.Identity
	loading   bool
	migration *migration.Report

	failed   bool
	duration time.Duration
	size     int

	mode    msgs.AppMode
	message string
	width   int
	theme   theme.Theme
}

// NewStatusBar creates a new status bar.
func NewStatusBar(t theme.Theme) StatusBar {
	return StatusBar{theme: t}
}

// SetSession updates the identity section.
func (m *StatusBar) SetSession(id session.Identity, loading bool, r *migration.Report) {
	m.identity = id
	m.loading = loading
	m.migration = r
}

// SetResponse records the outcome of the last request.
func (m *StatusBar) SetResponse(failed bool, d time.Duration, size int) {
	m.failed = failed
	m.duration = d
	m.size = size
}

// SetMode sets the current app mode.
func (m *StatusBar) SetMode(mode msgs.AppMode) { m.mode = mode }

// SetWidth sets the available width.
func (m *StatusBar) SetWidth(w int) { m.width = w }

// SetMessage sets a status message; an empty string clears it.
func (m *StatusBar) SetMessage(text string) { m.message = text }

// View renders the status bar.
func (m StatusBar) View() string {
	seg := func(c lipgloss.Color, s string) string {
		return lipgloss.NewStyle().Foreground(c).Background(m.theme.Surface).Render(s)
	}

	var left []string
	if m.message != "" {
		left = append(left, seg(m.theme.Text, m.message))
	} else if m.duration > 0 {
		if m.failed {
			left = append(left, seg(m.theme.Red, "failed"))
		} else {
			left = append(left, seg(m.theme.Green, "ok"))
		}
		left = append(left,
			seg(m.theme.Subtext, formatDuration(m.duration)),
			seg(m.theme.Subtext, render.Size(m.size)))
	}

	mode := lipgloss.NewStyle().
		Foreground(m.theme.Accent).
		Background(m.theme.Surface).
		Bold(true).
		Render("[" + m.mode.String() + "]")

	var right []string
	if m.loading {
		right = append(right, seg(m.theme.Yellow, "syncing…"))
	}
	if r := m.migration; r != nil && !r.Skipped {
		txt := fmt.Sprintf("migrated %d/%d", r.HistoryMigrated, r.HistoryMigrated+r.HistoryFailed)
		c := m.theme.Teal
		if r.HistoryFailed+r.CollectionsFailed > 0 {
			c = m.theme.Yellow
		}
		right = append(right, seg(c, txt))
	}
	right = append(right, lipgloss.NewStyle().
		Foreground(m.theme.Teal).
		Background(m.theme.Surface).
		Bold(true).
		Render(m.identity.String()))

	l := " " + strings.Join(left, seg(m.theme.Muted, " │ "))
	r := strings.Join(right, seg(m.theme.Muted, " │ ")) + " "
	gap := m.width - lipgloss.Width(l) - lipgloss.Width(mode) - lipgloss.Width(r)
	g1 := max(gap/2, 1)
	g2 := max(gap-gap/2, 1)

	return lipgloss.NewStyle().
		Background(m.theme.Surface).
		Width(m.width).
		MaxWidth(m.width).
		Render(l + strings.Repeat(" ", g1) + mode + strings.Repeat(" ", g2) + r)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
