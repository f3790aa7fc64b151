package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type memPrefs struct {
	mu    sync.Mutex
	optIn bool
}

func (p *memPrefs) GuestOptIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.optIn
}

func (p *memPrefs) SetGuestOptIn(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.optIn = v
}

// countingSource hands out numbered tokens so refreshes are observable.
type countingSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &oauth2.Token{AccessToken: "tok-" + string(rune('0'+s.calls))}, nil
}

func principal(id string) *Principal {
	return &Principal{ID: id, Email: id + "@example.com", Tokens: &countingSource{}}
}

func record(t *testing.T, tr *Tracker) *[]Transition {
	t.Helper()
	var got []Transition
	unsub := tr.Subscribe(func(x Transition) { got = append(got, x) })
	t.Cleanup(unsub)
	return &got
}

func TestInitialStateUnknown(t *testing.T) {
	tr := NewTracker(&memPrefs{}, Options{})
	assert.Equal(t, Unknown, tr.Current().State)

	_, err := tr.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSignedOutBecomesGuest(t *testing.T) {
	tr := NewTracker(&memPrefs{}, Options{})
	got := record(t, tr)

	require.NoError(t, tr.Observe(nil))
	require.NoError(t, tr.Observe(nil))

	require.Len(t, *got, 1, "duplicate notification emits nothing")
	assert.Equal(t, Unknown, (*got)[0].From.State)
	assert.Equal(t, Guest, (*got)[0].To.State)
	assert.Equal(t, uint64(1), (*got)[0].Seq)
}

func TestGuestOptInRequired(t *testing.T) {
	prefs := &memPrefs{}
	tr := NewTracker(prefs, Options{RequireGuestOptIn: true})
	got := record(t, tr)

	require.NoError(t, tr.Observe(nil))
	assert.Equal(t, Unknown, tr.Current().State)
	assert.Empty(t, *got)

	tr.ChooseGuest()
	assert.Equal(t, Guest, tr.Current().State)
	assert.True(t, prefs.GuestOptIn())
	require.Len(t, *got, 1)
}

func TestGuestOptInRemembered(t *testing.T) {
	tr := NewTracker(&memPrefs{optIn: true}, Options{RequireGuestOptIn: true})
	require.NoError(t, tr.Observe(nil))
	assert.Equal(t, Guest, tr.Current().State)
}

func TestSignInFromGuest(t *testing.T) {
	prefs := &memPrefs{optIn: true}
	tr := NewTracker(prefs, Options{})
	got := record(t, tr)
	require.NoError(t, tr.Observe(nil))

	p := principal("u1")
	require.NoError(t, tr.Observe(p))

	require.Len(t, *got, 2)
	last := (*got)[1]
	assert.Equal(t, Guest, last.From.State)
	assert.Equal(t, Authenticated, last.To.State)
	assert.Equal(t, "u1", last.To.UserID())
	assert.Equal(t, uint64(2), last.Seq)
	assert.False(t, prefs.GuestOptIn(), "sign-in clears the guest choice")
	assert.Equal(t, 1, p.Tokens.(*countingSource).calls, "credential refreshed before the transition")
}

func TestRefreshFailureAbortsTransition(t *testing.T) {
	tr := NewTracker(&memPrefs{}, Options{})
	got := record(t, tr)
	require.NoError(t, tr.Observe(nil))

	bad := &Principal{ID: "u1", Tokens: &countingSource{err: errors.New("revoked")}}
	err := tr.Observe(bad)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "revoked")
	assert.Equal(t, Guest, tr.Current().State)
	assert.Len(t, *got, 1)
}

func TestSignOutAndAccountSwitch(t *testing.T) {
	tr := NewTracker(&memPrefs{}, Options{})
	got := record(t, tr)

	require.NoError(t, tr.Observe(principal("u1")))
	require.NoError(t, tr.Observe(principal("u1")))
	require.NoError(t, tr.Observe(principal("u2")))
	require.NoError(t, tr.Observe(nil))

	require.Len(t, *got, 3)
	assert.Equal(t, Unknown, (*got)[0].From.State)
	assert.Equal(t, "u1", (*got)[1].From.UserID())
	assert.Equal(t, "u2", (*got)[1].To.UserID())
	assert.Equal(t, Authenticated, (*got)[2].From.State)
	assert.Equal(t, Guest, (*got)[2].To.State)
}

func TestTokenRefetchesEachCall(t *testing.T) {
	tr := NewTracker(&memPrefs{}, Options{})
	p := principal("u1")
	require.NoError(t, tr.Observe(p))

	a, err := tr.Token(context.Background())
	require.NoError(t, err)
	b, err := tr.Token(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 3, p.Tokens.(*countingSource).calls)
}

func TestTokenHonorsContext(t *testing.T) {
	tr := NewTracker(&memPrefs{}, Options{})
	require.NoError(t, tr.Observe(principal("u1")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Token(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnsubscribe(t *testing.T) {
	tr := NewTracker(&memPrefs{}, Options{})
	calls := 0
	unsub := tr.Subscribe(func(Transition) { calls++ })
	unsub()

	require.NoError(t, tr.Observe(nil))
	assert.Zero(t, calls)
}

func TestChooseGuestAfterSignInIsNoop(t *testing.T) {
	tr := NewTracker(&memPrefs{}, Options{})
	require.NoError(t, tr.Observe(principal("u1")))
	tr.ChooseGuest()
	assert.Equal(t, Authenticated, tr.Current().State)
}
