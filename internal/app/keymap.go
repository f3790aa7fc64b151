package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all application keybindings.
type KeyMap struct {
	// Global
	Quit        key.Binding
	ForceQuit   key.Binding
	SendRequest key.Binding
	Reload      key.Binding
	Guest       key.Binding

	// Normal mode
	CycleFocus    key.Binding
	CycleFocusRev key.Binding
	FocusSidebar  key.Binding
	FocusComposer key.Binding
	FocusResponse key.Binding
	ToggleSidebar key.Binding
	AddToCol      key.Binding
	NewCollection key.Binding
	Copy          key.Binding
	CopyCurl      key.Binding
}

// DefaultKeyMap returns the default keybinding configuration.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		SendRequest: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "send request"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload"),
		),
		Guest: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "continue as guest"),
		),
		CycleFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next panel"),
		),
		CycleFocusRev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev panel"),
		),
		FocusSidebar: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "sidebar"),
		),
		FocusComposer: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "composer"),
		),
		FocusResponse: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "response"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "toggle sidebar"),
		),
		AddToCol: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add to collection"),
		),
		NewCollection: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new collection"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy response"),
		),
		CopyCurl: key.NewBinding(
			key.WithKeys("Y"),
			key.WithHelp("Y", "copy as curl"),
		),
	}
}

// hints renders the status line help for normal mode.
func (k KeyMap) hints() []key.Binding {
	return []key.Binding{k.SendRequest, k.CycleFocus, k.AddToCol, k.NewCollection, k.Copy, k.Guest, k.Quit}
}
