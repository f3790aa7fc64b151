package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/core/request"
	"github.com/sadopc/assertify/internal/ui/msgs"
)

// promptAdd opens the picker for the item under the sidebar cursor, or the
// last completed request.
func (a App) promptAdd() (tea.Model, tea.Cmd) {
	item, ok := a.sidebar.Current()
	if a.focus != msgs.FocusSidebar || !ok {
		if a.lastItem == nil {
			cmd := a.toast.Show("Select a request first", true, 2*time.Second)
			return a, cmd
		}
		item = *a.lastItem
	}
	a.picker.Open(item, a.snap.Collections)
	a.setMode(msgs.ModePicker)
	return a, nil
}

func (a App) addToCollection(msg msgs.PickCollectionMsg) (tea.Model, tea.Cmd) {
	col, ok := collection.Find(a.snap.Collections, msg.CollectionID)
	if !ok {
		cmd := a.toast.Show("Collection no longer exists", true, 3*time.Second)
		return a, cmd
	}
	ctrl, timeout, item := a.ctrl, a.timeout, msg.Item
	return a, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := ctrl.AddToCollection(ctx, col, item)
		return msgs.CollectionDoneMsg{Collection: col, Added: err == nil, Err: err}
	}
}

func (a App) createCollection(msg msgs.CreateCollectionMsg) (tea.Model, tea.Cmd) {
	ctrl, timeout := a.ctrl, a.timeout
	var item *history.Item
	if msg.Item != nil {
		it := *msg.Item
		item = &it
	}
	return a, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		col, err := ctrl.CreateCollection(ctx, msg.Name)
		if err != nil || item == nil {
			return msgs.CollectionDoneMsg{Collection: col, Err: err}
		}
		err = ctrl.AddToCollection(ctx, col, *item)
		return msgs.CollectionDoneMsg{Collection: col, Added: err == nil, Err: err}
	}
}

func (a App) handleCollectionDone(msg msgs.CollectionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		text := msg.Err.Error()
		var ve *request.ValidationError
		if errors.As(msg.Err, &ve) && ve.Fields["name"] != "" {
			text = ve.Fields["name"]
		}
		cmd := a.toast.Show(text, true, 4*time.Second)
		return a, cmd
	}
	text := "Created " + msg.Collection.Name
	if msg.Added {
		text = "Added to " + msg.Collection.Name
	}
	cmd := a.toast.Show(text, false, 2*time.Second)
	return a, cmd
}
