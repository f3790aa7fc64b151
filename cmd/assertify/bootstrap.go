package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/sadopc/assertify/internal/auth"
	"github.com/sadopc/assertify/internal/config"
	"github.com/sadopc/assertify/internal/core/localstore"
	"github.com/sadopc/assertify/internal/logging"
	"github.com/sadopc/assertify/internal/migration"
	"github.com/sadopc/assertify/internal/proxy"
	"github.com/sadopc/assertify/internal/remote"
	"github.com/sadopc/assertify/internal/session"
	"github.com/sadopc/assertify/internal/syncer"
	"github.com/sadopc/assertify/internal/transport"
)

// runtimeEnv is the wired application: stores, session, controller and the
// identity provider feeding it.
type runtimeEnv struct {
	cfg      config.Config
	log      *log.Logger
	local    *localstore.Store
	proxy    *proxy.Client
	tracker  *session.Tracker
	provider *auth.Provider
	ctrl     *syncer.Controller

	unwatch     func()
	unsubscribe func()
}

// open wires everything and reports the stored session to the tracker. The
// terminal UI owns the screen, so logs only go to stderr for CLI commands.
func (c *cli) open(tui bool) (*runtimeEnv, error) {
	cfg := c.loadConfig()
	logger := logging.New(cfg.Log, c.verbose && !tui)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	httpClient, err := transport.NewClient(transport.Options{
		Timeout: cfg.Timeout,
		Proxy:   cfg.Proxy,
		TLS:     cfg.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring transport: %w", err)
	}
	local, err := localstore.NewStore(cfg.LocalStorePath(), logger)
	if err != nil {
		return nil, err
	}

	rem := remote.New(cfg.BackendURL, httpClient, logger)
	tracker := session.NewTracker(local, session.Options{
		RequireGuestOptIn: cfg.RequireGuestOptIn,
		Logger:            logger,
	})
	engine := migration.NewEngine(local, rem, migration.Options{
		Rate:   cfg.Migration.Rate,
		Burst:  cfg.Migration.Burst,
		Logger: logger,
	})
	ctrl := syncer.New(local, rem, engine, tracker, syncer.Hooks{}, logger)

	env := &runtimeEnv{
		cfg:      cfg,
		log:      logger,
		local:    local,
		proxy:    proxy.New(cfg.BackendURL, httpClient, logger),
		tracker:  tracker,
		provider: auth.NewProvider(cfg.Auth, cfg.SessionPath(), httpClient, logger),
		ctrl:     ctrl,
	}
	env.unsubscribe = tracker.Subscribe(ctrl.HandleTransition)
	env.unwatch = env.provider.Watch(tracker.Observe)
	logger.Debug("started", "backend", cfg.BackendURL, "data_dir", cfg.DataDir, "identity", tracker.Current())
	return env, nil
}

// settle waits for background loads and migrations to finish.
func (e *runtimeEnv) settle() syncer.Snapshot {
	e.ctrl.Wait()
	return e.ctrl.Snapshot()
}

// Close stops watching the session and closes the local store once
// background work is done.
func (e *runtimeEnv) Close() error {
	e.unwatch()
	e.ctrl.Wait()
	e.unsubscribe()
	return e.local.Close()
}
