// Package auth signs users in against the configured OAuth2 identity
// provider and keeps the resulting session on disk.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sadopc/assertify/internal/config"
	"github.com/sadopc/assertify/internal/logging"
	"github.com/sadopc/assertify/internal/session"
)

// ErrTokenExpired is returned by a pasted token once its exp claim passes.
var ErrTokenExpired = errors.New("stored token expired; run assertify login")

// stored is the on-disk session.
type stored struct {
	UserID string        `json:"user_id"`
	Email  string        `json:"email,omitempty"`
	Static bool          `json:"static,omitempty"`
	Token  *oauth2.Token `json:"token"`
}

// Provider is the identity provider adapter. It reports the signed-in
// principal (or nil) to watchers whenever the session changes.
type Provider struct {
	conf       *oauth2.Config
	path       string
	httpClient *http.Client
	log        *log.Logger

	mu       sync.Mutex
	watchers map[int]func(*session.Principal) error
	nextID   int
}

// NewProvider creates a provider that keeps its session at path.
func NewProvider(cfg config.AuthConfig, path string, httpClient *http.Client, logger *log.Logger) *Provider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Provider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: cfg.Scopes,
		},
		path:       path,
		httpClient: httpClient,
		log:        logging.Component(logger, "auth"),
		watchers:   make(map[int]func(*session.Principal) error),
	}
}

// Current returns the stored principal, or nil when signed out.
func (p *Provider) Current() (*session.Principal, error) {
	s, err := p.load()
	if err != nil || s == nil {
		return nil, err
	}
	return p.principal(s), nil
}

// Watch calls fn with the current principal and again after every sign-in
// or sign-out made through this provider. Errors from fn are logged.
func (p *Provider) Watch(fn func(*session.Principal) error) (stop func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = fn
	p.mu.Unlock()

	cur, err := p.Current()
	if err != nil {
		p.log.Warn("reading stored session", "err", err)
	}
	if err := fn(cur); err != nil {
		p.log.Warn("identity callback failed", "err", err)
	}

	return func() {
		p.mu.Lock()
		delete(p.watchers, id)
		p.mu.Unlock()
	}
}

// LoginPassword signs in with the resource owner password grant.
func (p *Provider) LoginPassword(ctx context.Context, username, password string) (*session.Principal, error) {
	if p.conf.Endpoint.TokenURL == "" {
		return nil, fmt.Errorf("auth.token_url is not configured")
	}
	tok, err := p.conf.PasswordCredentialsToken(p.clientContext(ctx), username, password)
	if err != nil {
		return nil, fmt.Errorf("password sign-in: %w", err)
	}
	return p.signIn(tok, false)
}

// LoginBrowser runs the authorization code flow with PKCE. open is handed
// the authorization URL; OpenBrowser is the usual choice.
func (p *Provider) LoginBrowser(ctx context.Context, open func(string) error) (*session.Principal, error) {
	if p.conf.Endpoint.AuthURL == "" || p.conf.Endpoint.TokenURL == "" {
		return nil, fmt.Errorf("auth.auth_url and auth.token_url must be configured")
	}

	state := uuid.NewString()
	cs, err := listenCallback(state)
	if err != nil {
		return nil, err
	}

	conf := *p.conf
	conf.RedirectURL = cs.RedirectURI()
	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	if err := open(authURL); err != nil {
		cs.Close()
		return nil, err
	}
	p.log.Info("waiting for browser sign-in", "redirect", conf.RedirectURL)

	code, err := cs.Wait(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := conf.Exchange(p.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return p.signIn(tok, false)
}

// LoginToken signs in with a pasted bearer token. It is never refreshed.
func (p *Provider) LoginToken(accessToken string) (*session.Principal, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("empty token")
	}
	tok := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	if c, ok := parseClaims(accessToken); ok && !c.Expiry.IsZero() {
		tok.Expiry = c.Expiry
	}
	return p.signIn(tok, true)
}

// SignOut removes the stored session and notifies watchers.
func (p *Provider) SignOut() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	p.log.Info("signed out")
	p.notify(nil)
	return nil
}

func (p *Provider) signIn(tok *oauth2.Token, static bool) (*session.Principal, error) {
	id, email := identify(tok)
	s := &stored{UserID: id, Email: email, Static: static, Token: tok}
	if err := p.save(s); err != nil {
		return nil, err
	}
	p.log.Info("signed in", "user", id, "email", email)

	pr := p.principal(s)
	p.notify(pr)
	return pr, nil
}

func (p *Provider) notify(pr *session.Principal) {
	p.mu.Lock()
	fns := make([]func(*session.Principal) error, 0, len(p.watchers))
	for i := 0; i < p.nextID; i++ {
		if fn, ok := p.watchers[i]; ok {
			fns = append(fns, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range fns {
		if err := fn(pr); err != nil {
			p.log.Warn("identity callback failed", "err", err)
		}
	}
}

func (p *Provider) principal(s *stored) *session.Principal {
	var src oauth2.TokenSource
	if s.Static || s.Token.RefreshToken == "" || p.conf.Endpoint.TokenURL == "" {
		src = staticSource{tok: s.Token}
	} else {
		src = &persistingSource{
			base: oauth2.ReuseTokenSource(s.Token, p.conf.TokenSource(p.clientContext(context.Background()), s.Token)),
			last: s.Token.AccessToken,
			save: func(tok *oauth2.Token) error {
				return p.save(&stored{UserID: s.UserID, Email: s.Email, Token: tok})
			},
			log: p.log,
		}
	}
	return &session.Principal{ID: s.UserID, Email: s.Email, Tokens: src}
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func (p *Provider) load() (*stored, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var s stored
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", p.path, err)
	}
	if s.Token == nil || s.Token.AccessToken == "" || s.UserID == "" {
		return nil, nil
	}
	return &s, nil
}

func (p *Provider) save(s *stored) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// staticSource serves a token that cannot be refreshed.
type staticSource struct {
	tok *oauth2.Token
}

func (s staticSource) Token() (*oauth2.Token, error) {
	if !s.tok.Expiry.IsZero() && time.Now().After(s.tok.Expiry) {
		return nil, ErrTokenExpired
	}
	t := *s.tok
	return &t, nil
}

// persistingSource writes refreshed tokens back to the session file.
type persistingSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token) error
	log  *log.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	changed := tok.AccessToken != s.last
	s.last = tok.AccessToken
	s.mu.Unlock()

	if changed {
		if err := s.save(tok); err != nil {
			s.log.Warn("persisting refreshed token", "err", err)
		} else {
			s.log.Debug("token refreshed")
		}
	}
	return tok, nil
}
