// Package migration moves a guest's local history and collections to the
// signed-in user's remote store.
package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/logging"
)

// ErrInProgress is returned when a run for the same key is already active.
var ErrInProgress = errors.New("migration already in progress")

// LocalStore is the guest data being migrated.
type LocalStore interface {
	ReadHistory() []history.Item
	WriteHistory([]history.Item)
	ReadCollections() []collection.Collection
	WriteCollections([]collection.Collection)
	Clear()
}

// RemoteStore receives the migrated data.
type RemoteStore interface {
	SaveHistory(ctx context.Context, item history.Item, credential string) (history.Item, error)
	CreateCollection(ctx context.Context, name, credential string) (collection.Collection, error)
	AddRequestToCollection(ctx context.Context, collectionID, requestID, credential string) error
}

// TokenFunc returns a fresh credential. It is called before every remote
// call.
type TokenFunc func(ctx context.Context) (string, error)

// Report summarizes one run.
type Report struct {
	HistoryMigrated     int
	HistoryFailed       int
	CollectionsMigrated int
	CollectionsFailed   int
	// Skipped is set when the key already completed and nothing was done.
	Skipped bool
}

// Options configures an Engine. Rate is remote calls per second; zero means
// unlimited.
type Options struct {
	Rate   float64
	Burst  int
	Logger *log.Logger
}

// RunOption adjusts a single run.
type RunOption func(*runOptions)

type runOptions struct {
	commit func(writeBack func())
}

// WithCommit hands the final write-back to commit, which may run it under
// its own lock or skip it. Skipping leaves the local store untouched.
func WithCommit(commit func(writeBack func())) RunOption {
	return func(o *runOptions) { o.commit = commit }
}

// Engine runs migrations. Runs are sequential and at most one run per key
// ever does work.
type Engine struct {
	local   LocalStore
	remote  RemoteStore
	limiter *rate.Limiter
	log     *log.Logger

	runMu    sync.Mutex
	mu       sync.Mutex
	inFlight map[string]bool
	done     map[string]Report
}

// NewEngine creates a migration engine.
func NewEngine(local LocalStore, remote RemoteStore, opts Options) *Engine {
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	return &Engine{
		local:    local,
		remote:   remote,
		limiter:  rate.NewLimiter(limit, burst),
		log:      logging.Component(opts.Logger, "migration"),
		inFlight: make(map[string]bool),
		done:     make(map[string]Report),
	}
}

// Run migrates everything in the local store. key identifies the sign-in
// that triggered the run; a key that already completed returns its first
// report with Skipped set. Items and collections that could not be
// migrated stay in the local store, together with enough bookkeeping that
// a later run never re-creates what already exists remotely.
func (e *Engine) Run(ctx context.Context, key string, token TokenFunc, opts ...RunOption) (Report, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	e.mu.Lock()
	if r, ok := e.done[key]; ok {
		e.mu.Unlock()
		r.Skipped = true
		return r, nil
	}
	if e.inFlight[key] {
		e.mu.Unlock()
		return Report{}, ErrInProgress
	}
	e.inFlight[key] = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.inFlight, key)
		e.mu.Unlock()
	}()

	e.runMu.Lock()
	report, err := e.migrate(ctx, token, o.commit)
	e.runMu.Unlock()

	if err != nil {
		e.log.Warn("migration interrupted", "key", key, "err", err)
		return report, err
	}
	e.mu.Lock()
	e.done[key] = report
	e.mu.Unlock()
	return report, nil
}

// run holds the state of one migration pass.
type run struct {
	*Engine
	token TokenFunc
	// fatal stops every further remote call once set.
	fatal error
}

// call waits for the limiter, fetches a credential and runs fn. Limiter and
// credential failures are fatal to the whole run; fn's error is not.
func (r *run) call(ctx context.Context, fn func(credential string) error) error {
	if r.fatal != nil {
		return r.fatal
	}
	if err := r.limiter.Wait(ctx); err != nil {
		r.fatal = err
		return err
	}
	cred, err := r.token(ctx)
	if err != nil {
		r.fatal = fmt.Errorf("fetching credential: %w", err)
		return r.fatal
	}
	return fn(cred)
}

func (e *Engine) migrate(ctx context.Context, token TokenFunc, commit func(func())) (Report, error) {
	items := e.local.ReadHistory()
	cols := e.local.ReadCollections()
	var report Report
	if len(items) == 0 && len(cols) == 0 {
		return report, nil
	}
	e.log.Info("migrating guest data", "history", len(items), "collections", len(cols))

	r := &run{Engine: e, token: token}

	// step 1: history
	remoteIDs := make(map[string]string, len(items))
	pending := make(map[string]bool)
	var keptItems []history.Item
	for _, it := range items {
		var saved history.Item
		err := r.call(ctx, func(cred string) error {
			var err error
			saved, err = e.remote.SaveHistory(ctx, it, cred)
			return err
		})
		if err != nil {
			if r.fatal == nil {
				report.HistoryFailed++
				e.log.Warn("history item not migrated", "id", it.ID, "err", err)
			}
			keptItems = append(keptItems, it)
			pending[it.ID] = true
			continue
		}
		remoteIDs[it.ID] = saved.ID
		report.HistoryMigrated++
	}

	// step 2: collections and membership
	var keptCols []collection.Collection
	for _, orig := range cols {
		c := orig.Clone()
		if c.RemoteID == "" {
			var created collection.Collection
			err := r.call(ctx, func(cred string) error {
				var err error
				created, err = e.remote.CreateCollection(ctx, c.Name, cred)
				return err
			})
			if err != nil {
				if r.fatal == nil {
					report.CollectionsFailed++
					e.log.Warn("collection not migrated", "id", c.ID, "name", c.Name, "err", err)
				}
				// members that left the local store this run must stay resolvable
				for _, ref := range c.Items {
					if id, ok := remoteIDs[ref]; ok {
						if c.RemoteRefs == nil {
							c.RemoteRefs = make(map[string]string)
						}
						c.RemoteRefs[ref] = id
					}
				}
				keptCols = append(keptCols, c)
				continue
			}
			c.RemoteID = created.ID
		}

		refs := make(map[string]string, len(c.RemoteRefs))
		var keptRefs []string
		for _, ref := range c.Items {
			remoteID, ok := remoteIDs[ref]
			if !ok {
				remoteID, ok = c.RemoteRefs[ref]
			}
			if !ok {
				if pending[ref] {
					keptRefs = append(keptRefs, ref)
				} else {
					e.log.Warn("skipping dangling collection reference", "collection", c.ID, "item", ref)
				}
				continue
			}
			err := r.call(ctx, func(cred string) error {
				return e.remote.AddRequestToCollection(ctx, c.RemoteID, remoteID, cred)
			})
			if err != nil {
				if r.fatal == nil {
					e.log.Warn("collection membership not migrated", "collection", c.ID, "item", ref, "err", err)
				}
				keptRefs = append(keptRefs, ref)
				refs[ref] = remoteID
			}
		}

		if len(keptRefs) == 0 {
			report.CollectionsMigrated++
			continue
		}
		c.Items = keptRefs
		c.RemoteRefs = refs
		if len(c.RemoteRefs) == 0 {
			c.RemoteRefs = nil
		}
		if r.fatal == nil {
			report.CollectionsFailed++
		}
		keptCols = append(keptCols, c)
	}

	// step 3: write back whatever is left
	writeBack := func() {
		if len(keptItems) == 0 && len(keptCols) == 0 {
			e.local.Clear()
			return
		}
		e.local.WriteHistory(keptItems)
		e.local.WriteCollections(keptCols)
	}
	if commit != nil {
		commit(writeBack)
	} else {
		writeBack()
	}
	e.log.Info("migration finished",
		"history_migrated", report.HistoryMigrated, "history_failed", report.HistoryFailed,
		"collections_migrated", report.CollectionsMigrated, "collections_failed", report.CollectionsFailed)

	return report, r.fatal
}
