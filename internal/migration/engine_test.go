package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/core/localstore"
)

// fakeRemote is an in-memory remote store with injectable failures.
type fakeRemote struct {
	mu sync.Mutex

	history     []history.Item
	collections map[string][]string // remote collection id -> remote item ids
	names       map[string]string
	creates     int
	saves       int
	adds        int
	seq         int

	failSave   map[string]bool // local item id
	failCreate map[string]bool // collection name
	failAdd    map[string]bool // remote item id

	// block, when set, is received from before SaveHistory returns.
	block chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		collections: map[string][]string{},
		names:       map[string]string{},
		failSave:    map[string]bool{},
		failCreate:  map[string]bool{},
		failAdd:     map[string]bool{},
	}
}

func (f *fakeRemote) SaveHistory(ctx context.Context, item history.Item, cred string) (history.Item, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.failSave[item.ID] {
		return history.Item{}, errors.New("save rejected")
	}
	f.seq++
	item.ID = fmt.Sprintf("r-%s", item.ID)
	f.history = append(f.history, item)
	return item, nil
}

func (f *fakeRemote) CreateCollection(ctx context.Context, name, cred string) (collection.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.failCreate[name] {
		return collection.Collection{}, errors.New("create rejected")
	}
	f.seq++
	id := fmt.Sprintf("rc-%d", f.seq)
	f.collections[id] = []string{}
	f.names[id] = name
	return collection.Collection{ID: id, Name: name, Items: []string{}}, nil
}

func (f *fakeRemote) AddRequestToCollection(ctx context.Context, colID, reqID, cred string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds++
	if f.failAdd[reqID] {
		return errors.New("add rejected")
	}
	f.collections[colID] = append(f.collections[colID], reqID)
	return nil
}

func (f *fakeRemote) itemsOf(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, n := range f.names {
		if n == name {
			return f.collections[id]
		}
	}
	return nil
}

func staticToken(context.Context) (string, error) { return "tok", nil }

func newLocal(t *testing.T) *localstore.Store {
	t.Helper()
	s, err := localstore.NewStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *localstore.Store) {
	t.Helper()
	s.WriteHistory([]history.Item{
		{ID: "h1", URL: "https://a", Method: "GET"},
		{ID: "h2", URL: "https://b", Method: "POST"},
		{ID: "h3", URL: "https://c", Method: "GET"},
	})
	s.WriteCollections([]collection.Collection{
		{ID: "c1", Name: "Users", Items: []string{"h1", "h2"}},
		{ID: "c2", Name: "Misc", Items: []string{"h3"}},
	})
}

func TestRunMigratesEverything(t *testing.T) {
	local := newLocal(t)
	seed(t, local)
	remote := newFakeRemote()
	e := NewEngine(local, remote, Options{})

	report, err := e.Run(context.Background(), "u1#1", staticToken)

	require.NoError(t, err)
	assert.Equal(t, Report{HistoryMigrated: 3, CollectionsMigrated: 2}, report)
	assert.Len(t, remote.history, 3)
	assert.Equal(t, []string{"r-h1", "r-h2"}, remote.itemsOf("Users"))
	assert.Equal(t, []string{"r-h3"}, remote.itemsOf("Misc"))
	assert.True(t, local.Empty())
}

func TestRunEmptyStoreIsNoop(t *testing.T) {
	remote := newFakeRemote()
	e := NewEngine(newLocal(t), remote, Options{})

	report, err := e.Run(context.Background(), "u1#1", staticToken)

	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Zero(t, remote.saves+remote.creates+remote.adds)
}

func TestRunSameKeyTwiceIsSkipped(t *testing.T) {
	local := newLocal(t)
	seed(t, local)
	remote := newFakeRemote()
	e := NewEngine(local, remote, Options{})

	first, err := e.Run(context.Background(), "u1#1", staticToken)
	require.NoError(t, err)

	// new guest data appears, but the same sign-in must not migrate again
	local.WriteHistory([]history.Item{{ID: "h9", URL: "https://z", Method: "GET"}})
	second, err := e.Run(context.Background(), "u1#1", staticToken)

	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.HistoryMigrated, second.HistoryMigrated)
	assert.Equal(t, 3, remote.saves)
}

func TestRunConcurrentSameKey(t *testing.T) {
	local := newLocal(t)
	seed(t, local)
	remote := newFakeRemote()
	remote.block = make(chan struct{})
	e := NewEngine(local, remote, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := e.Run(context.Background(), "u1#1", staticToken)
		done <- err
	}()

	require.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.inFlight["u1#1"]
	}, time.Second, time.Millisecond)

	_, err := e.Run(context.Background(), "u1#1", staticToken)
	assert.ErrorIs(t, err, ErrInProgress)

	close(remote.block)
	require.NoError(t, <-done)
	assert.Equal(t, 3, remote.saves, "each item saved exactly once")
}

func TestRunPartialFailureThenRetry(t *testing.T) {
	local := newLocal(t)
	seed(t, local)
	remote := newFakeRemote()
	remote.failSave["h2"] = true
	e := NewEngine(local, remote, Options{})

	report, err := e.Run(context.Background(), "u1#1", staticToken)

	require.NoError(t, err)
	assert.Equal(t, 2, report.HistoryMigrated)
	assert.Equal(t, 1, report.HistoryFailed)
	assert.Equal(t, 1, report.CollectionsMigrated)
	assert.Equal(t, 1, report.CollectionsFailed)

	left := local.ReadHistory()
	require.Len(t, left, 1)
	assert.Equal(t, "h2", left[0].ID)
	cols := local.ReadCollections()
	require.Len(t, cols, 1)
	assert.Equal(t, "Users", cols[0].Name)
	assert.Equal(t, []string{"h2"}, cols[0].Items)
	assert.NotEmpty(t, cols[0].RemoteID)
	assert.Equal(t, []string{"r-h1"}, remote.itemsOf("Users"))

	delete(remote.failSave, "h2")
	report, err = e.Run(context.Background(), "u1#2", staticToken)

	require.NoError(t, err)
	assert.Equal(t, Report{HistoryMigrated: 1, CollectionsMigrated: 1}, report)
	assert.Equal(t, 2, remote.creates, "Users is not created a second time")
	assert.Equal(t, []string{"r-h1", "r-h2"}, remote.itemsOf("Users"))
	assert.Len(t, remote.history, 3)
	assert.True(t, local.Empty())
}

func TestRunFailedMembershipKeepsRemoteRef(t *testing.T) {
	local := newLocal(t)
	seed(t, local)
	remote := newFakeRemote()
	remote.failAdd["r-h3"] = true
	e := NewEngine(local, remote, Options{})

	_, err := e.Run(context.Background(), "u1#1", staticToken)
	require.NoError(t, err)

	assert.Empty(t, local.ReadHistory())
	cols := local.ReadCollections()
	require.Len(t, cols, 1)
	assert.Equal(t, map[string]string{"h3": "r-h3"}, cols[0].RemoteRefs)

	delete(remote.failAdd, "r-h3")
	_, err = e.Run(context.Background(), "u1#2", staticToken)

	require.NoError(t, err)
	assert.Equal(t, 3, remote.saves, "h3 is not saved again")
	assert.Equal(t, []string{"r-h3"}, remote.itemsOf("Misc"))
	assert.True(t, local.Empty())
}

func TestRunFailedCreateKeepsCollection(t *testing.T) {
	local := newLocal(t)
	seed(t, local)
	remote := newFakeRemote()
	remote.failCreate["Misc"] = true
	e := NewEngine(local, remote, Options{})

	report, err := e.Run(context.Background(), "u1#1", staticToken)

	require.NoError(t, err)
	assert.Equal(t, 1, report.CollectionsFailed)
	cols := local.ReadCollections()
	require.Len(t, cols, 1)
	assert.Equal(t, "Misc", cols[0].Name)
	assert.Empty(t, cols[0].RemoteID)
	assert.Equal(t, []string{"h3"}, cols[0].Items)
	assert.Equal(t, map[string]string{"h3": "r-h3"}, cols[0].RemoteRefs)
	assert.Empty(t, local.ReadHistory(), "h3 itself migrated")

	delete(remote.failCreate, "Misc")
	_, err = e.Run(context.Background(), "u1#2", staticToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"r-h3"}, remote.itemsOf("Misc"))
	assert.True(t, local.Empty())
}

func TestRunSkipsDanglingReferences(t *testing.T) {
	local := newLocal(t)
	local.WriteCollections([]collection.Collection{{ID: "c1", Name: "Ghosts", Items: []string{"gone"}}})
	remote := newFakeRemote()
	e := NewEngine(local, remote, Options{})

	report, err := e.Run(context.Background(), "u1#1", staticToken)

	require.NoError(t, err)
	assert.Equal(t, 1, report.CollectionsMigrated)
	assert.Zero(t, remote.adds)
	assert.True(t, local.Empty())
}

func TestRunCredentialFailureStopsAndWritesBack(t *testing.T) {
	local := newLocal(t)
	seed(t, local)
	remote := newFakeRemote()
	e := NewEngine(local, remote, Options{})

	calls := 0
	token := func(context.Context) (string, error) {
		calls++
		if calls > 1 {
			return "", errors.New("signed out")
		}
		return "tok", nil
	}

	report, err := e.Run(context.Background(), "u1#1", token)

	require.Error(t, err)
	assert.Equal(t, 1, report.HistoryMigrated)
	assert.Zero(t, report.HistoryFailed, "items never attempted are not failures")
	assert.Len(t, local.ReadHistory(), 2)
	assert.Len(t, local.ReadCollections(), 2)

	// the interrupted key may run again
	report, err = e.Run(context.Background(), "u1#1", staticToken)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.True(t, local.Empty())
	assert.Len(t, remote.history, 3)
}

func TestRunCancelledContext(t *testing.T) {
	local := newLocal(t)
	seed(t, local)
	remote := newFakeRemote()
	e := NewEngine(local, remote, Options{Rate: 1000, Burst: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Run(ctx, "u1#1", staticToken)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, remote.saves)
	assert.Len(t, local.ReadHistory(), 3)
}

func TestRunCommitCanSkipWriteBack(t *testing.T) {
	local := newLocal(t)
	seed(t, local)
	remote := newFakeRemote()
	remote.failSave["h3"] = true
	e := NewEngine(local, remote, Options{})

	var called bool
	report, err := e.Run(context.Background(), "u1#1", staticToken, WithCommit(func(func()) {
		called = true
	}))

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 2, report.HistoryMigrated)
	assert.Len(t, local.ReadHistory(), 3, "skipped write-back leaves the store as it was")
	assert.Len(t, local.ReadCollections(), 2)
}

func TestRunCommitWritesBackResidue(t *testing.T) {
	local := newLocal(t)
	seed(t, local)
	remote := newFakeRemote()
	remote.failSave["h3"] = true
	e := NewEngine(local, remote, Options{})

	_, err := e.Run(context.Background(), "u1#1", staticToken, WithCommit(func(writeBack func()) {
		writeBack()
	}))

	require.NoError(t, err)
	kept := local.ReadHistory()
	require.Len(t, kept, 1)
	assert.Equal(t, "h3", kept[0].ID)
}
