package layout

import "testing"

func TestCalculate_WideScreen(t *testing.T) {
	l := Calculate(160, 40, true)

	if l.SinglePanel || l.TwoPanelMode {
		t.Fatal("expected three panels at 160 cols")
	}
	if l.SidebarWidth < minSidebarWidth || l.SidebarWidth > maxSidebarWidth {
		t.Errorf("sidebar width %d outside [%d, %d]", l.SidebarWidth, minSidebarWidth, maxSidebarWidth)
	}
	total := l.SidebarWidth + l.ComposerWidth + l.ResponseWidth
	if total != 160 {
		t.Errorf("panel widths should sum to 160, got %d", total)
	}
	if l.ContentHeight != 38 {
		t.Errorf("content height = %d, want 38", l.ContentHeight)
	}
}

func TestCalculate_MediumScreen(t *testing.T) {
	l := Calculate(80, 30, true)

	if !l.TwoPanelMode {
		t.Error("should be two panel mode at 80 cols")
	}
	if l.SidebarVisible {
		t.Error("sidebar should be hidden in two-panel mode")
	}
}

func TestCalculate_NarrowScreen(t *testing.T) {
	l := Calculate(50, 1, true)

	if !l.SinglePanel {
		t.Error("should be single panel at 50 cols")
	}
	if l.ContentHeight != 1 {
		t.Errorf("content height = %d, want at least 1", l.ContentHeight)
	}
}

func TestCalculate_SidebarHidden(t *testing.T) {
	l := Calculate(160, 40, false)

	if l.SidebarWidth != 0 {
		t.Error("sidebar width should be 0 when hidden")
	}
	if total := l.ComposerWidth + l.ResponseWidth; total != 160 {
		t.Errorf("composer+response should sum to 160, got %d", total)
	}
}
