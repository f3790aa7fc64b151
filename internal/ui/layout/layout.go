// Package layout computes panel sizes for the terminal UI.
package layout

// PanelLayout holds calculated dimensions for the three-panel layout.
type PanelLayout struct {
	Width  int
	Height int

	SidebarWidth  int
	ComposerWidth int
	ResponseWidth int

	ContentHeight int // height minus header and status bar

	SidebarVisible bool
	TwoPanelMode   bool
	SinglePanel    bool
}

const (
	headerHeight    = 1
	statusBarHeight = 1
	minSidebarWidth = 24
	maxSidebarWidth = 40
)

// Calculate computes the panel layout from terminal dimensions.
func Calculate(width, height int, sidebarVisible bool) PanelLayout {
	l := PanelLayout{
		Width:          width,
		Height:         height,
		SidebarVisible: sidebarVisible,
		ContentHeight:  max(height-headerHeight-statusBarHeight, 1),
	}

	switch {
	case width < 60:
		l.SinglePanel = true
		l.SidebarVisible = false
		l.ComposerWidth = width
		l.ResponseWidth = width
	case width < 100:
		l.TwoPanelMode = true
		l.SidebarVisible = false
		half := width / 2
		l.ComposerWidth = half
		l.ResponseWidth = width - half
	default:
		if sidebarVisible {
			l.SidebarWidth = clamp(width/4, minSidebarWidth, maxSidebarWidth)
			remaining := width - l.SidebarWidth
			l.ComposerWidth = remaining * 2 / 5
			l.ResponseWidth = remaining - l.ComposerWidth
		} else {
			l.ComposerWidth = width * 2 / 5
			l.ResponseWidth = width - l.ComposerWidth
		}
	}

	return l
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
