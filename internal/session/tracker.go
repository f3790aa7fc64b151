// Package session tracks who is using the client: nobody yet, a guest, or a
// signed-in user.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/sadopc/assertify/internal/logging"
)

// ErrNotAuthenticated is returned by Token when no user is signed in.
var ErrNotAuthenticated = errors.New("not authenticated")

// State is the identity kind.
type State int

const (
	Unknown State = iota
	Guest
	Authenticated
)

func (s State) String() string {
	switch s {
	case Guest:
		return "guest"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Principal is a signed-in user as reported by the identity provider.
type Principal struct {
	ID     string
	Email  string
	Tokens oauth2.TokenSource
}

// Identity is the tracker's current view.
type Identity struct {
	State     State
	Principal *Principal
}

// UserID returns the principal's id, or "" when not authenticated.
func (i Identity) UserID() string {
	if i.State != Authenticated || i.Principal == nil {
		return ""
	}
	return i.Principal.ID
}

func (i Identity) String() string {
	if id := i.UserID(); id != "" {
		return fmt.Sprintf("%s(%s)", i.State, id)
	}
	return i.State.String()
}

// Transition is emitted on every identity change. Seq increases by one per
// transition.
type Transition struct {
	Seq  uint64
	From Identity
	To   Identity
}

// Preferences persists the guest opt-in choice.
type Preferences interface {
	GuestOptIn() bool
	SetGuestOptIn(bool)
}

// Options configures a Tracker.
type Options struct {
	// RequireGuestOptIn keeps a signed-out user in Unknown until ChooseGuest
	// is called (or was called in an earlier session).
	RequireGuestOptIn bool
	Logger            *log.Logger
}

// Tracker holds the current identity and notifies subscribers of changes.
type Tracker struct {
	mu        sync.Mutex
	current   Identity
	seq       uint64
	prefs     Preferences
	opts      Options
	listeners map[int]func(Transition)
	nextID    int
	log       *log.Logger

	// emitMu serializes listener delivery so transitions arrive in order.
	emitMu sync.Mutex
}

// NewTracker creates a tracker in the Unknown state.
func NewTracker(prefs Preferences, opts Options) *Tracker {
	return &Tracker{
		prefs:     prefs,
		opts:      opts,
		listeners: make(map[int]func(Transition)),
		log:       logging.Component(opts.Logger, "session"),
	}
}

// Current returns the current identity.
func (t *Tracker) Current() Identity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Subscribe registers fn for every future transition and returns a function
// that removes it.
func (t *Tracker) Subscribe(fn func(Transition)) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Observe is the identity provider callback. A nil principal means signed
// out. Entering Authenticated first refreshes the credential; if that fails
// the identity is left unchanged and the error returned.
func (t *Tracker) Observe(p *Principal) error {
	if p != nil {
		if p.Tokens == nil {
			return fmt.Errorf("principal %q has no token source", p.ID)
		}
		if _, err := p.Tokens.Token(); err != nil {
			t.log.Warn("credential refresh failed, staying in current state", "user", p.ID, "err", err)
			return fmt.Errorf("refreshing credential: %w", err)
		}
		if t.prefs != nil {
			t.prefs.SetGuestOptIn(false)
		}
		t.transition(Identity{State: Authenticated, Principal: p})
		return nil
	}

	cur := t.Current()
	switch cur.State {
	case Authenticated:
		t.transition(Identity{State: Guest})
	case Unknown:
		if t.opts.RequireGuestOptIn && (t.prefs == nil || !t.prefs.GuestOptIn()) {
			t.log.Debug("signed out, waiting for guest opt-in")
			return nil
		}
		t.transition(Identity{State: Guest})
	}
	return nil
}

// ChooseGuest records the guest opt-in and leaves Unknown. It does nothing
// once an identity has been resolved.
func (t *Tracker) ChooseGuest() {
	if t.prefs != nil {
		t.prefs.SetGuestOptIn(true)
	}
	if t.Current().State == Unknown {
		t.transition(Identity{State: Guest})
	}
}

// Token returns a current credential for the signed-in user. Each call asks
// the principal's token source, which refreshes an expired token.
func (t *Tracker) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cur := t.Current()
	if cur.State != Authenticated || cur.Principal == nil || cur.Principal.Tokens == nil {
		return "", ErrNotAuthenticated
	}
	tok, err := cur.Principal.Tokens.Token()
	if err != nil {
		return "", fmt.Errorf("fetching credential: %w", err)
	}
	return tok.AccessToken, nil
}

func (t *Tracker) transition(to Identity) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	from := t.current
	if sameIdentity(from, to) {
		if to.Principal != nil {
			// keep the newest token source for the same user
			t.current.Principal = to.Principal
		}
		t.mu.Unlock()
		return
	}
	t.seq++
	tr := Transition{Seq: t.seq, From: from, To: to}
	t.current = to
	listeners := make([]func(Transition), 0, len(t.listeners))
	for i := 0; i < t.nextID; i++ {
		if fn, ok := t.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	t.mu.Unlock()

	t.log.Info("identity changed", "seq", tr.Seq, "from", from, "to", to)
	for _, fn := range listeners {
		fn(tr)
	}
}

func sameIdentity(a, b Identity) bool {
	if a.State != b.State {
		return false
	}
	if a.State != Authenticated {
		return true
	}
	return a.UserID() == b.UserID()
}
