// Package syncer keeps the in-memory state consistent with whichever store
// owns the user's data: the local store for guests, the backend for
// signed-in users.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/core/request"
	"github.com/sadopc/assertify/internal/core/state"
	"github.com/sadopc/assertify/internal/logging"
	"github.com/sadopc/assertify/internal/migration"
	"github.com/sadopc/assertify/internal/session"
)

var (
	// ErrNoIdentity is returned by mutations before the identity is known.
	ErrNoIdentity = errors.New("identity not resolved yet")
	// ErrUnknownCollection is returned when adding to a collection that is
	// not loaded.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Local is the guest store.
type Local interface {
	ReadHistory() []history.Item
	WriteHistory([]history.Item)
	ReadCollections() []collection.Collection
	WriteCollections([]collection.Collection)
	Empty() bool
	Clear()
}

// Remote is the signed-in user's store.
type Remote interface {
	GetHistory(ctx context.Context, credential string) []history.Item
	GetCollections(ctx context.Context, credential string) []collection.Collection
	SaveHistory(ctx context.Context, item history.Item, credential string) (history.Item, error)
	CreateCollection(ctx context.Context, name, credential string) (collection.Collection, error)
	AddRequestToCollection(ctx context.Context, collectionID, requestID, credential string) error
}

// Migrator moves guest data to the remote store.
type Migrator interface {
	Run(ctx context.Context, key string, token migration.TokenFunc, opts ...migration.RunOption) (migration.Report, error)
}

// Credentials hands out the signed-in user's credential.
type Credentials interface {
	Token(ctx context.Context) (string, error)
}

// Hooks observe the controller. All are optional and are called without the
// controller's lock held.
type Hooks struct {
	OnChange          func(Snapshot)
	OnAddToCollection func(history.Item)
	OnError           func(error)
}

// Snapshot is a copy of the controller's state.
type Snapshot struct {
	Identity session.Identity
	state.Store
	Loading   bool
	Migration *migration.Report
}

// errIdentityChanged cancels work that belongs to a previous identity.
var errIdentityChanged = errors.New("identity changed")

// Controller reacts to identity transitions and routes every mutation to
// the store that owns the current identity's data.
type Controller struct {
	local    Local
	remote   Remote
	migrator Migrator
	creds    Credentials
	hooks    Hooks
	log      *log.Logger
	now      func() time.Time

	mu sync.Mutex
	// epoch changes with the identity; gen changes with every load.
	epoch     uint64
	gen       uint64
	identity  session.Identity
	state     *state.Store
	loading   bool
	migration *migration.Report
	// epochCtx is cancelled when the epoch changes. Migrations run on it.
	epochCtx    context.Context
	cancelEpoch context.CancelCauseFunc

	wg sync.WaitGroup
}

// New creates a controller. It starts with an Unknown identity and empty
// state.
func New(local Local, remote Remote, migrator Migrator, creds Credentials, hooks Hooks, logger *log.Logger) *Controller {
	c := &Controller{
		local:    local,
		remote:   remote,
		migrator: migrator,
		creds:    creds,
		hooks:    hooks,
		log:      logging.Component(logger, "syncer"),
		now:      time.Now,
		state:    state.NewStore(),
	}
	c.epochCtx, c.cancelEpoch = context.WithCancelCause(context.Background())
	return c
}

// SetHooks replaces the hooks. Used when the UI is created after the
// controller.
func (c *Controller) SetHooks(h Hooks) {
	c.mu.Lock()
	c.hooks = h
	c.mu.Unlock()
}

// HandleTransition is the session listener. Bookkeeping happens before it
// returns; loading happens in the background.
func (c *Controller) HandleTransition(tr session.Transition) {
	c.mu.Lock()
	c.epoch++
	c.gen++
	gen := c.gen
	c.cancelEpoch(errIdentityChanged)
	c.epochCtx, c.cancelEpoch = context.WithCancelCause(context.Background())
	ep := epochRef{ctx: c.epochCtx, n: c.epoch}
	c.identity = tr.To
	c.migration = nil
	if tr.From.State == session.Authenticated && tr.To.State == session.Guest {
		// the next guest must not inherit anything
		c.local.Clear()
	}
	c.state.Reset()
	c.loading = tr.To.State != session.Unknown
	migrateKey := ""
	switch {
	case tr.To.State != session.Authenticated:
	case tr.From.State == session.Guest:
		migrateKey = fmt.Sprintf("%s#%d", tr.To.UserID(), tr.Seq)
	case tr.From.State == session.Unknown && !c.local.Empty():
		// leftovers of an earlier partial migration
		migrateKey = fmt.Sprintf("%s#%d", tr.To.UserID(), tr.Seq)
	}
	c.mu.Unlock()

	c.log.Debug("transition", "seq", tr.Seq, "from", tr.From, "to", tr.To, "gen", gen)
	c.emit()

	if tr.To.State == session.Unknown {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.load(context.Background(), ep, gen, tr.To, migrateKey)
	}()
}

// Reload re-reads the current identity's data. A signed-in user's
// leftover guest data is migrated again first.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.identity.State == session.Unknown {
		c.mu.Unlock()
		return ErrNoIdentity
	}
	c.gen++
	gen := c.gen
	id := c.identity
	ep := epochRef{ctx: c.epochCtx, n: c.epoch}
	migrateKey := ""
	if id.State == session.Authenticated && !c.local.Empty() {
		migrateKey = fmt.Sprintf("%s#reload-%d", id.UserID(), gen)
	}
	c.loading = true
	c.mu.Unlock()
	c.emit()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.load(context.WithoutCancel(ctx), ep, gen, id, migrateKey)
	}()
	return nil
}

// epochRef is the epoch a background job was issued under.
type epochRef struct {
	ctx context.Context
	n   uint64
}

func (c *Controller) load(ctx context.Context, ep epochRef, gen uint64, id session.Identity, migrateKey string) {
	switch id.State {
	case session.Guest:
		// read under the lock so guest mutations cannot interleave
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.state.Replace(c.local.ReadHistory(), c.local.ReadCollections())
		c.loading = false
		c.mu.Unlock()
		c.emit()

	case session.Authenticated:
		if migrateKey != "" {
			report, err := c.migrate(ep, migrateKey)
			switch {
			case errors.Is(err, migration.ErrInProgress):
				c.log.Debug("migration already running", "key", migrateKey)
			case err != nil:
				c.fail(gen, fmt.Errorf("migrating guest data: %w", err))
			default:
				c.mu.Lock()
				if gen == c.gen {
					c.migration = &report
				}
				c.mu.Unlock()
			}
		}

		cred, err := c.creds.Token(ctx)
		if err != nil {
			c.fail(gen, fmt.Errorf("loading remote data: %w", err))
			c.apply(gen, nil, nil)
			return
		}
		c.apply(gen, c.remote.GetHistory(ctx, cred), c.remote.GetCollections(ctx, cred))
	}
}

// migrate runs the migrator on the epoch's context. The write-back only
// happens while the epoch is still current, so a sign-out that wiped the
// local store in the meantime stays wiped.
func (c *Controller) migrate(ep epochRef, key string) (migration.Report, error) {
	return c.migrator.Run(ep.ctx, key, c.creds.Token, migration.WithCommit(func(writeBack func()) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if ep.n != c.epoch {
			c.log.Debug("discarding migration write-back", "key", key, "cause", context.Cause(ep.ctx))
			return
		}
		writeBack()
	}))
}

// apply installs loaded data unless a newer generation started meanwhile.
func (c *Controller) apply(gen uint64, items []history.Item, cols []collection.Collection) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("dropping stale load", "gen", gen)
		return
	}
	c.state.Replace(items, cols)
	c.loading = false
	c.mu.Unlock()
	c.emit()
}

// RequestComplete records a finished request in the current identity's
// history, selects it and raises the add-to-collection prompt.
func (c *Controller) RequestComplete(ctx context.Context, env request.Envelope) (history.Item, error) {
	item := history.FromEnvelope(env, c.now())

	c.mu.Lock()
	epoch, id := c.epoch, c.identity
	switch id.State {
	case session.Unknown:
		c.mu.Unlock()
		return history.Item{}, ErrNoIdentity
	case session.Guest:
		c.local.WriteHistory(append([]history.Item{item}, c.local.ReadHistory()...))
		c.state.PrependHistory(item)
		c.state.Select(item.Envelope())
		c.mu.Unlock()
		c.emit()
		c.PromptAddToCollection(item)
		return item, nil
	}
	c.mu.Unlock()

	err := c.withCredential(ctx, func(cred string) (err error) {
		item, err = c.remote.SaveHistory(ctx, item, cred)
		return err
	})
	if err != nil {
		return history.Item{}, err
	}
	if !c.commit(epoch, func(s *state.Store) {
		s.PrependHistory(item)
		s.Select(item.Envelope())
	}) {
		return item, nil
	}
	c.PromptAddToCollection(item)
	return item, nil
}

// CreateCollection creates an empty collection in the current identity's
// store.
func (c *Controller) CreateCollection(ctx context.Context, name string) (collection.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return collection.Collection{}, &request.ValidationError{Fields: map[string]string{"name": "Name is required"}}
	}

	c.mu.Lock()
	epoch, id := c.epoch, c.identity
	switch id.State {
	case session.Unknown:
		c.mu.Unlock()
		return collection.Collection{}, ErrNoIdentity
	case session.Guest:
		col := collection.New(name)
		c.local.WriteCollections(append(c.local.ReadCollections(), col))
		c.state.AddCollection(col)
		c.mu.Unlock()
		c.emit()
		return col.Clone(), nil
	}
	c.mu.Unlock()

	var col collection.Collection
	err := c.withCredential(ctx, func(cred string) (err error) {
		col, err = c.remote.CreateCollection(ctx, name, cred)
		return err
	})
	if err != nil {
		return collection.Collection{}, err
	}
	c.commit(epoch, func(s *state.Store) { s.AddCollection(col) })
	return col.Clone(), nil
}

// AddToCollection adds item to col. Adding an item the collection already
// holds does nothing.
func (c *Controller) AddToCollection(ctx context.Context, col collection.Collection, item history.Item) error {
	c.mu.Lock()
	epoch, id := c.epoch, c.identity
	if id.State == session.Unknown {
		c.mu.Unlock()
		return ErrNoIdentity
	}
	current, ok := c.state.Collection(col.ID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCollection, col.ID)
	}
	if current.Contains(item.ID) {
		c.mu.Unlock()
		return nil
	}
	if id.State == session.Guest {
		cols := c.local.ReadCollections()
		for i := range cols {
			if cols[i].ID == col.ID {
				cols[i].Add(item.ID)
			}
		}
		c.local.WriteCollections(cols)
		c.state.AddToCollection(col.ID, item.ID)
		c.mu.Unlock()
		c.emit()
		return nil
	}
	c.mu.Unlock()

	err := c.withCredential(ctx, func(cred string) error {
		return c.remote.AddRequestToCollection(ctx, col.ID, item.ID, cred)
	})
	if err != nil {
		return err
	}
	c.commit(epoch, func(s *state.Store) { s.AddToCollection(col.ID, item.ID) })
	return nil
}

// SelectHistoryItem shows item's recorded response and returns its
// envelope.
func (c *Controller) SelectHistoryItem(item history.Item) request.Envelope {
	env := item.Envelope()
	c.mu.Lock()
	c.state.Select(env)
	c.mu.Unlock()
	c.emit()
	return env
}

// PromptAddToCollection asks the UI to offer adding item to a collection.
func (c *Controller) PromptAddToCollection(item history.Item) {
	c.mu.Lock()
	fn := c.hooks.OnAddToCollection
	c.mu.Unlock()
	if fn != nil {
		fn(item)
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait blocks until background loads finish.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Identity: c.identity,
		Store:    c.state.Clone(),
		Loading:  c.loading,
	}
	if c.migration != nil {
		r := *c.migration
		s.Migration = &r
	}
	return s
}

// withCredential fetches a credential and runs fn with it.
func (c *Controller) withCredential(ctx context.Context, fn func(cred string) error) error {
	cred, err := c.creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("fetching credential: %w", err)
	}
	return fn(cred)
}

// commit applies a remote mutation's result to the state unless the
// identity changed while it was in flight. It reports whether it applied.
func (c *Controller) commit(epoch uint64, fn func(*state.Store)) bool {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		c.log.Debug("dropping stale mutation", "epoch", epoch)
		return false
	}
	fn(c.state)
	c.mu.Unlock()
	c.emit()
	return true
}

func (c *Controller) fail(gen uint64, err error) {
	c.mu.Lock()
	stale := gen != c.gen
	fn := c.hooks.OnError
	c.mu.Unlock()
	if stale {
		return
	}
	c.log.Error("background sync failed", "err", err)
	if fn != nil {
		fn(err)
	}
}

func (c *Controller) emit() {
	c.mu.Lock()
	fn := c.hooks.OnChange
	var snap Snapshot
	if fn != nil {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
