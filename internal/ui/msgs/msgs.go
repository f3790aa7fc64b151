// Package msgs holds the Bubble Tea messages shared by the UI components.
package msgs

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/core/request"
	"github.com/sadopc/assertify/internal/syncer"
)

// Panel focus targets
type PanelFocus int

const (
	FocusSidebar PanelFocus = iota
	FocusComposer
	FocusResponse
)

// AppMode represents the current input mode.
type AppMode int

const (
	ModeNormal AppMode = iota
	ModeInsert
	ModeFilter
	ModePicker
)

func (m AppMode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeInsert:
		return "INSERT"
	case ModeFilter:
		return "FILTER"
	case ModePicker:
		return "PICK"
	default:
		return "UNKNOWN"
	}
}

// SetModeMsg changes the app mode.
type SetModeMsg struct {
	Mode AppMode
}

// StateChangedMsg tells the UI to refresh from the controller's latest
// snapshot. It carries no state so that delivery order does not matter.
type StateChangedMsg struct{}

// PromptAddMsg asks the UI to offer adding Item to a collection.
type PromptAddMsg struct {
	Item history.Item
}

// ErrorMsg reports a background failure.
type ErrorMsg struct {
	Err error
}

// HistorySelectedMsg is sent when the user picks a recorded request.
type HistorySelectedMsg struct {
	Item history.Item
}

// ResponseMsg is emitted when a proxied request completes. Err is set when
// recording it in history failed; Envelope is always usable.
type ResponseMsg struct {
	Envelope request.Envelope
	Item     history.Item
	Duration time.Duration
	Err      error
}

// PickCollectionMsg adds Item to an existing collection.
type PickCollectionMsg struct {
	CollectionID string
	Item         history.Item
}

// CreateCollectionMsg creates a collection and, when Item is set, adds the
// item to it.
type CreateCollectionMsg struct {
	Name string
	Item *history.Item
}

// CollectionDoneMsg reports the outcome of a collection mutation.
type CollectionDoneMsg struct {
	Collection collection.Collection
	Added      bool
	Err        error
}

// ToastMsg shows a toast notification.
type ToastMsg struct {
	Text     string
	IsError  bool
	Duration time.Duration
}

// Hooks routes controller callbacks into a program through send.
func Hooks(send func(tea.Msg)) syncer.Hooks {
	return syncer.Hooks{
		OnChange:          func(syncer.Snapshot) { send(StateChangedMsg{}) },
		OnAddToCollection: func(it history.Item) { send(PromptAddMsg{Item: it}) },
		OnError:           func(err error) { send(ErrorMsg{Err: err}) },
	}
}
