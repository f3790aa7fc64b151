package msgs

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/syncer"
)

func TestAppModeString(t *testing.T) {
	tests := []struct {
		name string
		mode AppMode
		want string
	}{
		{name: "normal", mode: ModeNormal, want: "NORMAL"},
		{name: "insert", mode: ModeInsert, want: "INSERT"},
		{name: "filter", mode: ModeFilter, want: "FILTER"},
		{name: "picker", mode: ModePicker, want: "PICK"},
		{name: "unknown", mode: AppMode(999), want: "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mode.String()
			if got != tt.want {
				t.Fatalf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHooksForwardToProgram(t *testing.T) {
	var got []tea.Msg
	h := Hooks(func(m tea.Msg) { got = append(got, m) })

	h.OnChange(syncer.Snapshot{Loading: true})
	h.OnAddToCollection(history.Item{ID: "h1"})
	h.OnError(errors.New("boom"))

	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3", len(got))
	}
	if _, ok := got[0].(StateChangedMsg); !ok {
		t.Errorf("first message = %#v", got[0])
	}
	if p, ok := got[1].(PromptAddMsg); !ok || p.Item.ID != "h1" {
		t.Errorf("second message = %#v", got[1])
	}
	if e, ok := got[2].(ErrorMsg); !ok || e.Err.Error() != "boom" {
		t.Errorf("third message = %#v", got[2])
	}
}
