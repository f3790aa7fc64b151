// Package app is the Bubble Tea terminal UI.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/core/request"
	"github.com/sadopc/assertify/internal/logging"
	"github.com/sadopc/assertify/internal/syncer"
	"github.com/sadopc/assertify/internal/ui/components"
	"github.com/sadopc/assertify/internal/ui/layout"
	"github.com/sadopc/assertify/internal/ui/msgs"
	"github.com/sadopc/assertify/internal/ui/panels/editor"
	"github.com/sadopc/assertify/internal/ui/panels/response"
	"github.com/sadopc/assertify/internal/ui/panels/sidebar"
	"github.com/sadopc/assertify/internal/ui/theme"
)

// Controller is the part of the sync controller the UI drives.
type Controller interface {
	Snapshot() syncer.Snapshot
	RequestComplete(ctx context.Context, env request.Envelope) (history.Item, error)
	CreateCollection(ctx context.Context, name string) (collection.Collection, error)
	AddToCollection(ctx context.Context, col collection.Collection, item history.Item) error
	SelectHistoryItem(item history.Item) request.Envelope
	Reload(ctx context.Context) error
}

// Sender forwards a request through the backend proxy.
type Sender interface {
	Send(ctx context.Context, d request.Descriptor, credential string) request.Envelope
}

// Session supplies credentials and the guest choice.
type Session interface {
	Token(ctx context.Context) (string, error)
	ChooseGuest()
}

// Options configures the UI.
type Options struct {
	Theme   string
	Timeout time.Duration
	Logger  *log.Logger
}

// App is the root Bubble Tea model.
type App struct {
	sidebar  sidebar.Model
	editor   editor.Model
	response response.Model

	statusBar components.StatusBar
	toast     components.Toast
	picker    components.Picker

	ctrl    Controller
	sender  Sender
	session Session
	timeout time.Duration
	log     *log.Logger
	copy    func(string) error

	snap       syncer.Snapshot
	selectedID string
	lastItem   *history.Item

	mode           msgs.AppMode
	focus          msgs.PanelFocus
	sidebarVisible bool
	layout         layout.PanelLayout
	keys           KeyMap

	theme  theme.Theme
	styles theme.Styles

	width  int
	height int
	ready  bool
}

// New creates the root model.
func New(ctrl Controller, sender Sender, sess Session, opts Options) App {
	t := theme.Resolve(opts.Theme)
	s := theme.NewStyles(t)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	a := App{
		sidebar:  sidebar.New(s),
		editor:   editor.New(s),
		response: response.New(s),

		statusBar: components.NewStatusBar(t),
		toast:     components.NewToast(t),
		picker:    components.NewPicker(t),

		ctrl:    ctrl,
		sender:  sender,
		session: sess,
		timeout: timeout,
		log:     logging.Component(opts.Logger, "tui"),
		copy:    clipboard.WriteAll,

		mode:           msgs.ModeNormal,
		focus:          msgs.FocusComposer,
		sidebarVisible: true,
		keys:           DefaultKeyMap(),

		theme:  t,
		styles: s,
	}
	a.refresh()
	a.updateFocus()
	return a
}

// Run starts the program and routes controller hooks into it. bind is
// usually (*syncer.Controller).SetHooks.
func Run(a App, bind func(syncer.Hooks)) error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	// Send blocks until the event loop runs; hooks fire from controller
	// goroutines and from the caller's own sign-in path.
	bind(msgs.Hooks(func(m tea.Msg) { go p.Send(m) }))
	defer bind(syncer.Hooks{})
	// a load may have finished between New and bind
	go p.Send(msgs.StateChangedMsg{})
	_, err := p.Run()
	return err
}

func (a App) Init() tea.Cmd {
	return nil
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout = layout.Calculate(msg.Width, msg.Height, a.sidebarVisible)
		a.resizePanels()
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case msgs.StateChangedMsg:
		a.refresh()
		return a, nil

	case msgs.PromptAddMsg:
		if a.picker.Visible {
			return a, nil
		}
		it := msg.Item
		a.lastItem = &it
		a.picker.Open(msg.Item, a.snap.Collections)
		a.setMode(msgs.ModePicker)
		return a, nil

	case msgs.ErrorMsg:
		a.log.Warn("background error", "err", msg.Err)
		cmd := a.toast.Show(msg.Err.Error(), true, 5*time.Second)
		return a, cmd

	case msgs.ResponseMsg:
		return a.handleResponse(msg)

	case msgs.HistorySelectedMsg:
		env := a.ctrl.SelectHistoryItem(msg.Item)
		it := msg.Item
		a.lastItem = &it
		a.selectedID = env.RequestID
		a.response.SetEnvelope(env)
		a.editor.Load(env.Descriptor())
		return a, nil

	case msgs.PickCollectionMsg:
		return a.addToCollection(msg)

	case msgs.CreateCollectionMsg:
		return a.createCollection(msg)

	case msgs.CollectionDoneMsg:
		return a.handleCollectionDone(msg)

	case msgs.SetModeMsg:
		a.setMode(msg.Mode)
		return a, nil

	case msgs.ToastMsg:
		cmd := a.toast.Show(msg.Text, msg.IsError, msg.Duration)
		return a, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.toast, cmd = a.toast.Update(msg)
	cmds = append(cmds, cmd)
	a.response, cmd = a.response.Update(msg)
	cmds = append(cmds, cmd)
	if a.picker.Visible {
		a.picker, cmd = a.picker.Update(msg)
		cmds = append(cmds, cmd)
	}
	if a.editor.Editing() {
		a.editor, cmd = a.editor.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.ForceQuit) {
		return a, tea.Quit
	}
	if a.picker.Visible {
		var cmd tea.Cmd
		a.picker, cmd = a.picker.Update(msg)
		return a, cmd
	}
	if a.editor.Editing() {
		if key.Matches(msg, a.keys.SendRequest) {
			a.editor.Blur()
			a.setMode(msgs.ModeNormal)
			return a.sendRequest()
		}
		var cmd tea.Cmd
		a.editor, cmd = a.editor.Update(msg)
		if !a.editor.Editing() {
			a.setMode(msgs.ModeNormal)
		}
		return a, cmd
	}
	if a.sidebar.Filtering() {
		var cmd tea.Cmd
		a.sidebar, cmd = a.sidebar.Update(msg)
		return a, cmd
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.SendRequest):
		return a.sendRequest()
	case key.Matches(msg, a.keys.Reload):
		return a, a.reload()
	case key.Matches(msg, a.keys.Guest):
		a.session.ChooseGuest()
		cmd := a.toast.Show("Continuing as guest", false, 2*time.Second)
		return a, cmd
	case key.Matches(msg, a.keys.CycleFocus):
		a.cycleFocus(false)
		return a, nil
	case key.Matches(msg, a.keys.CycleFocusRev):
		a.cycleFocus(true)
		return a, nil
	case key.Matches(msg, a.keys.FocusSidebar):
		a.focusPanel(msgs.FocusSidebar)
		return a, nil
	case key.Matches(msg, a.keys.FocusComposer):
		a.focusPanel(msgs.FocusComposer)
		return a, nil
	case key.Matches(msg, a.keys.FocusResponse):
		a.focusPanel(msgs.FocusResponse)
		return a, nil
	case key.Matches(msg, a.keys.ToggleSidebar):
		a.sidebarVisible = !a.sidebarVisible
		if !a.sidebarVisible && a.focus == msgs.FocusSidebar {
			a.focus = msgs.FocusComposer
		}
		a.layout = layout.Calculate(a.width, a.height, a.sidebarVisible)
		a.resizePanels()
		return a, nil
	case key.Matches(msg, a.keys.AddToCol):
		return a.promptAdd()
	case key.Matches(msg, a.keys.NewCollection):
		a.picker.OpenNew()
		a.setMode(msgs.ModePicker)
		return a, nil
	case key.Matches(msg, a.keys.Copy):
		return a.copyEnvelope()
	case key.Matches(msg, a.keys.CopyCurl):
		return a.copyAsCurl()
	}

	var cmd tea.Cmd
	switch a.focus {
	case msgs.FocusSidebar:
		a.sidebar, cmd = a.sidebar.Update(msg)
	case msgs.FocusComposer:
		if msg.String() == "enter" {
			return a.sendRequest()
		}
		a.editor, cmd = a.editor.Update(msg)
		if a.editor.Editing() {
			a.setMode(msgs.ModeInsert)
		}
	case msgs.FocusResponse:
		a.response, cmd = a.response.Update(msg)
	}
	return a, cmd
}

// refresh pulls the controller's latest snapshot into the panels.
func (a *App) refresh() {
	s := a.ctrl.Snapshot()
	a.snap = s
	a.sidebar.SetData(s.History, s.Collections)
	a.statusBar.SetSession(s.Identity, s.Loading, s.Migration)
	if a.picker.Visible {
		a.picker.SetCollections(s.Collections)
	}
	switch {
	case s.Selected == nil:
		a.selectedID = ""
	case s.Selected.RequestID != a.selectedID:
		a.selectedID = s.Selected.RequestID
		a.response.SetEnvelope(*s.Selected)
	}
}

func (a *App) setMode(m msgs.AppMode) {
	a.mode = m
	a.statusBar.SetMode(m)
}

func (a *App) cycleFocus(reverse bool) {
	panels := []msgs.PanelFocus{msgs.FocusSidebar, msgs.FocusComposer, msgs.FocusResponse}
	if !a.sidebarVisible || (a.ready && !a.layout.SidebarVisible) {
		panels = panels[1:]
	}

	idx := 0
	for i, p := range panels {
		if p == a.focus {
			idx = i
			break
		}
	}
	if reverse {
		idx = (idx - 1 + len(panels)) % len(panels)
	} else {
		idx = (idx + 1) % len(panels)
	}
	a.focusPanel(panels[idx])
}

func (a *App) focusPanel(p msgs.PanelFocus) {
	a.focus = p
	a.updateFocus()
}

func (a *App) updateFocus() {
	a.sidebar.SetFocused(a.focus == msgs.FocusSidebar)
	a.editor.SetFocused(a.focus == msgs.FocusComposer)
	a.response.SetFocused(a.focus == msgs.FocusResponse)
}

func (a *App) resizePanels() {
	l := a.layout
	a.sidebar.SetSize(l.SidebarWidth, l.ContentHeight)
	a.editor.SetSize(l.ComposerWidth, l.ContentHeight)
	a.response.SetSize(l.ResponseWidth, l.ContentHeight)
	a.statusBar.SetWidth(a.width)
	a.updateFocus()
}

func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var panels string
	if a.layout.SinglePanel {
		switch a.focus {
		case msgs.FocusSidebar:
			panels = a.sidebar.View()
		case msgs.FocusComposer:
			panels = a.editor.View()
		case msgs.FocusResponse:
			panels = a.response.View()
		}
	} else {
		var views []string
		if a.layout.SidebarVisible {
			views = append(views, a.sidebar.View())
		}
		views = append(views, a.editor.View(), a.response.View())
		panels = lipgloss.JoinHorizontal(lipgloss.Top, views...)
	}

	main := lipgloss.JoinVertical(lipgloss.Left, a.header(), panels, a.statusBar.View())

	if a.picker.Visible {
		main = overlayCenter(main, a.picker.View(), a.width, a.height)
	}
	if a.toast.Visible {
		main = overlayTopRight(main, a.toast.View(), a.width)
	}
	return main
}

func (a App) header() string {
	title := a.styles.Badge.Render("assertify")
	var hints []string
	for _, b := range a.keys.hints() {
		h := b.Help()
		hints = append(hints, a.styles.Key.Render(h.Key)+" "+a.styles.Muted.Render(h.Desc))
	}
	line := title + "  " + strings.Join(hints, "  ")
	return lipgloss.NewStyle().MaxWidth(a.width).Render(line)
}

func overlayCenter(_, overlay string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
}

func overlayTopRight(bg, overlay string, width int) string {
	gap := max(width-lipgloss.Width(overlay)-2, 0)
	positioned := lipgloss.NewStyle().MarginLeft(gap).Render(overlay)
	return positioned + "\n" + bg
}
