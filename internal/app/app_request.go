package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/assertify/internal/core/request"
	"github.com/sadopc/assertify/internal/export"
	"github.com/sadopc/assertify/internal/syncer"
	"github.com/sadopc/assertify/internal/ui/msgs"
	"github.com/sadopc/assertify/internal/ui/render"
)

// sendRequest validates the composer and forwards the request.
func (a App) sendRequest() (tea.Model, tea.Cmd) {
	d, err := request.ParseForm(a.editor.Form())
	if err != nil {
		var ve *request.ValidationError
		if errors.As(err, &ve) {
			a.editor.SetErrors(ve.Fields)
		}
		a.statusBar.SetMessage("Fix the highlighted fields")
		return a, nil
	}
	a.editor.SetErrors(nil)
	a.statusBar.SetMessage("")
	a.response.SetLoading(true)

	ctrl, sender, sess, timeout, logger := a.ctrl, a.sender, a.session, a.timeout, a.log
	cmd := func() tea.Msg {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cred, err := sess.Token(ctx)
		if err != nil {
			logger.Debug("sending without credential", "err", err)
			cred = ""
		}
		env := sender.Send(ctx, d, cred)
		dur := time.Since(start)

		saveCtx, cancelSave := context.WithTimeout(context.Background(), timeout)
		defer cancelSave()
		item, err := ctrl.RequestComplete(saveCtx, env)
		return msgs.ResponseMsg{Envelope: env, Item: item, Duration: dur, Err: err}
	}
	return a, tea.Batch(cmd, a.response.Init())
}

func (a App) handleResponse(msg msgs.ResponseMsg) (tea.Model, tea.Cmd) {
	a.response.SetEnvelope(msg.Envelope)
	_, failed := msg.Envelope.FailureMessage()
	a.statusBar.SetResponse(failed, msg.Duration, len(msg.Envelope.Data))

	if msg.Err != nil {
		text := "Not saved to history: " + msg.Err.Error()
		if errors.Is(msg.Err, syncer.ErrNoIdentity) {
			text = "Sign in or continue as guest (ctrl+g) to keep history"
		}
		a.log.Warn("request not recorded", "err", msg.Err)
		cmd := a.toast.Show(text, true, 5*time.Second)
		return a, cmd
	}
	it := msg.Item
	a.lastItem = &it
	a.selectedID = it.ID
	return a, nil
}

func (a App) reload() tea.Cmd {
	ctrl, timeout := a.ctrl, a.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := ctrl.Reload(ctx); err != nil {
			return msgs.ToastMsg{Text: err.Error(), IsError: true}
		}
		return msgs.ToastMsg{Text: "Reloading…", Duration: time.Second}
	}
}

// copyEnvelope copies the shown envelope as indented JSON.
func (a App) copyEnvelope() (tea.Model, tea.Cmd) {
	env, ok := a.response.Envelope()
	if !ok {
		cmd := a.toast.Show("Nothing to copy", true, 2*time.Second)
		return a, cmd
	}
	b, err := json.Marshal(env)
	if err != nil {
		cmd := a.toast.Show("Copy failed: "+err.Error(), true, 3*time.Second)
		return a, cmd
	}
	if err := a.copy(render.Pretty(b)); err != nil {
		cmd := a.toast.Show("Clipboard error: "+err.Error(), true, 3*time.Second)
		return a, cmd
	}
	cmd := a.toast.Show("Copied response", false, 2*time.Second)
	return a, cmd
}

// copyAsCurl copies the composer's request as a curl command. The
// credential is left out.
func (a App) copyAsCurl() (tea.Model, tea.Cmd) {
	d, err := request.ParseForm(a.editor.Form())
	if err != nil {
		cmd := a.toast.Show("Invalid request: "+err.Error(), true, 3*time.Second)
		return a, cmd
	}
	if err := a.copy(export.AsCurl(d, "")); err != nil {
		cmd := a.toast.Show("Clipboard error: "+err.Error(), true, 3*time.Second)
		return a, cmd
	}
	cmd := a.toast.Show("Copied as cURL", false, 2*time.Second)
	return a, cmd
}
