package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/assertify/internal/config"
	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
)

// backend is an in-memory stand-in for the assertify backend.
type backend struct {
	mu          sync.Mutex
	proxied     []map[string]any
	history     []map[string]any
	collections []map[string]any
	memberships []string
	proxyStatus int
	nextID      int
}

func (b *backend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /proxy", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		b.mu.Lock()
		b.proxied = append(b.proxied, body)
		status := b.proxyStatus
		b.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":"upstream unreachable"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"response": map[string]any{
				"echo":  body["url"],
				"users": []map[string]any{{"id": 1}, {"id": 2}},
			},
		})
	})
	mux.HandleFunc("GET /history", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.history)
	})
	mux.HandleFunc("POST /history", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		var item map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&item))
		b.mu.Lock()
		defer b.mu.Unlock()
		b.nextID++
		item["id"] = fmt.Sprintf("srv-%d", b.nextID)
		b.history = append([]map[string]any{item}, b.history...)
		json.NewEncoder(w).Encode(item)
	})
	mux.HandleFunc("GET /collections", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.collections)
	})
	mux.HandleFunc("POST /collections", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		var in struct{ Name string }
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		b.mu.Lock()
		defer b.mu.Unlock()
		b.nextID++
		col := map[string]any{"id": fmt.Sprintf("col-%d", b.nextID), "name": in.Name, "items": []string{}}
		b.collections = append(b.collections, col)
		json.NewEncoder(w).Encode(col)
	})
	mux.HandleFunc("POST /collection-items", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(w, r) {
			return
		}
		var in struct {
			CollectionID string `json:"collectionId"`
			RequestID    string `json:"requestId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		b.mu.Lock()
		defer b.mu.Unlock()
		b.memberships = append(b.memberships, in.CollectionID+"/"+in.RequestID)
		for _, col := range b.collections {
			if col["id"] == in.CollectionID {
				col["items"] = append(col["items"].([]string), in.RequestID)
			}
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"success":true}`)
	})
	return mux
}

func (b *backend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return false
	}
	return true
}

func (b *backend) count() (proxied, saved int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.proxied), len(b.history)
}

// setup isolates the CLI from the user's real config and data.
func setup(t *testing.T) (*backend, string) {
	t.Helper()
	b := &backend{}
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)

	home := t.TempDir()
	dataDir := filepath.Join(home, "data")
	t.Setenv("HOME", home)
	t.Setenv(config.EnvBackendURL, srv.URL)
	t.Setenv(config.EnvDataDir, dataDir)
	t.Setenv(config.EnvLogLevel, "debug")
	return b, dataDir
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errb bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errb)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return result{stdout: out.String(), stderr: errb.String(), err: err}
}

func signedToken(t *testing.T, sub, email string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": email,
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func historyItems(t *testing.T, args ...string) []history.Item {
	t.Helper()
	res := run(t, "", append([]string{"history", "list", "--json"}, args...)...)
	require.NoError(t, res.err, res.stderr)
	var items []history.Item
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &items))
	return items
}

func TestSendAsGuestRecordsLocally(t *testing.T) {
	b, _ := setup(t)

	res := run(t, "", "send", "https://api.test/users", "-H", "Accept: application/json", "-q", "page=2")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, `"requestId"`)
	assert.Contains(t, res.stdout, `"echo": "https://api.test/users?page=2"`)

	proxied, saved := b.count()
	assert.Equal(t, 1, proxied)
	assert.Equal(t, 0, saved, "guest history never reaches the backend")

	items := historyItems(t)
	require.Len(t, items, 1)
	assert.Equal(t, "https://api.test/users", items[0].URL)
	assert.Equal(t, "GET", items[0].Method)
	v, _ := items[0].Params.Get("page")
	assert.Equal(t, "2", v)

	res = run(t, "", "history", "show", items[0].ID[:6], "--path", "$.users[*].id")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "1\n2\n", res.stdout)

	res = run(t, "", "history", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "METHOD")
	assert.Contains(t, res.stdout, "https://api.test/users")
}

func TestSendDataAndPath(t *testing.T) {
	setup(t)

	res := run(t, "", "send", "https://api.test/x", "--path", "$.echo")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "\"https://api.test/x\"\n", res.stdout)

	res = run(t, "", "send", "https://api.test/x", "--data")
	require.NoError(t, res.err, res.stderr)
	assert.NotContains(t, res.stdout, "requestId")
	assert.Contains(t, res.stdout, `"users"`)
}

func TestSendValidatesBeforeProxying(t *testing.T) {
	b, _ := setup(t)

	res := run(t, "", "send", "not-a-url")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "URL must be absolute")

	res = run(t, "", "send", "https://api.test/x", "-X", "POST", "-d", "{broken")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "body: Invalid JSON")

	res = run(t, "", "send", "https://api.test/x", "-H", "no-colon")
	require.Error(t, res.err)

	proxied, _ := b.count()
	assert.Equal(t, 0, proxied)
}

func TestSendFailureStillRecorded(t *testing.T) {
	b, _ := setup(t)
	b.proxyStatus = http.StatusBadGateway

	res := run(t, "", "send", "https://api.test/down")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "upstream unreachable")
	assert.Contains(t, res.stdout, `"success": false`)

	items := historyItems(t)
	require.Len(t, items, 1)
	assert.Contains(t, string(items[0].ResponseData), "upstream unreachable")
}

func TestGuestCollections(t *testing.T) {
	setup(t)

	res := run(t, "", "collections", "create", "Smoke")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, `Created collection "Smoke"`)

	res = run(t, "", "send", "https://api.test/health", "--collection", "smoke")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stderr, "to Smoke")

	items := historyItems(t)
	require.Len(t, items, 1)

	// adding again is a no-op
	res = run(t, "", "collections", "add", "Smoke", items[0].ID)
	require.NoError(t, res.err, res.stderr)

	res = run(t, "", "collections", "list", "--json")
	require.NoError(t, res.err)
	var cols []collection.Collection
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &cols))
	require.Len(t, cols, 1)
	assert.Equal(t, []string{items[0].ID}, cols[0].Items)

	res = run(t, "", "collections", "export")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "name: Smoke")
	assert.Contains(t, res.stdout, "url: https://api.test/health")

	out := filepath.Join(t.TempDir(), "cols.yaml")
	res = run(t, "", "collections", "export", "-o", out)
	require.NoError(t, res.err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Smoke")

	res = run(t, "", "collections", "add", "Nope", items[0].ID)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `no collection "Nope"`)
}

func TestLoginMovesGuestData(t *testing.T) {
	b, _ := setup(t)

	require.NoError(t, run(t, "", "collections", "create", "Users").err)
	require.NoError(t, run(t, "", "send", "https://api.test/users", "--collection", "Users").err)
	require.NoError(t, run(t, "", "send", "https://api.test/orders").err)

	res := run(t, "", "login", "--token", signedToken(t, "u1", "ada@example.com"))
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Signed in as u1 <ada@example.com>")
	assert.Contains(t, res.stdout, "Moved 2 requests and 1 collections")

	_, saved := b.count()
	assert.Equal(t, 2, saved)
	b.mu.Lock()
	require.Len(t, b.memberships, 1)
	assert.True(t, strings.HasPrefix(b.memberships[0], "col-"))
	b.mu.Unlock()

	// the signed-in history now comes from the backend
	items := historyItems(t)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.True(t, strings.HasPrefix(it.ID, "srv-"), it.ID)
	}

	res = run(t, "", "whoami")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "u1 <ada@example.com>")
	assert.Contains(t, res.stdout, "127.0.0.1")

	// new requests are saved remotely
	require.NoError(t, run(t, "", "send", "https://api.test/new").err)
	_, saved = b.count()
	assert.Equal(t, 3, saved)

	res = run(t, "", "history", "curl", items[0].ID, "--with-token")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Authorization: Bearer ")

	res = run(t, "", "logout")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Signed out.")

	// signing out leaves a fresh, empty guest
	res = run(t, "", "whoami")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "guest")
	assert.Empty(t, historyItems(t))
}

func TestLoginValidatesFlags(t *testing.T) {
	setup(t)

	res := run(t, "", "login")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "exactly one")

	res = run(t, "", "login", "--password")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "--username")

	res = run(t, "", "login", "--password", "-u", "ada")
	require.Error(t, res.err, "no token_url configured")
}

func TestGuestOptIn(t *testing.T) {
	b, dataDir := setup(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("require_guest_opt_in: true\n"), 0o644))

	res := run(t, "", "--config", cfgPath, "send", "https://api.test/x")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stderr, "not recorded in history")
	proxied, _ := b.count()
	assert.Equal(t, 1, proxied, "the response is still fetched")

	res = run(t, "", "--config", cfgPath, "whoami")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "unknown")

	res = run(t, "", "--config", cfgPath, "guest")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Continuing as guest")

	// the choice is remembered
	res = run(t, "", "--config", cfgPath, "whoami")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "guest")
	assert.Contains(t, res.stdout, dataDir)
}

func TestHistoryCurl(t *testing.T) {
	setup(t)
	require.NoError(t, run(t, "", "send", "https://api.test/items", "-X", "POST", "-d", `{"a":1}`).err)
	items := historyItems(t)
	require.Len(t, items, 1)

	res := run(t, "", "history", "curl", items[0].ID)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "curl -X POST")
	assert.Contains(t, res.stdout, `{"a":1}`)
	assert.NotContains(t, res.stdout, "Authorization")

	res = run(t, "", "history", "curl", items[0].ID, "--with-token")
	require.Error(t, res.err, "guests have no token")
}

func TestHistoryFilter(t *testing.T) {
	setup(t)
	require.NoError(t, run(t, "", "send", "https://api.test/users").err)
	require.NoError(t, run(t, "", "send", "https://api.test/orders").err)

	items := historyItems(t, "--filter", "ordrs")
	require.Len(t, items, 1)
	assert.Equal(t, "https://api.test/orders", items[0].URL)

	assert.Len(t, historyItems(t, "-n", "1"), 1)
}

func TestFindItem(t *testing.T) {
	items := []history.Item{{ID: "abc123"}, {ID: "abd456"}, {ID: "zz"}}

	it, err := findItem(items, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", it.ID)

	_, err = findItem(items, "ab")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = findItem(items, "nope")
	assert.ErrorContains(t, err, "no history item")
}

func TestFindCollection(t *testing.T) {
	cols := []collection.Collection{{ID: "c1", Name: "Users"}, {ID: "c2", Name: "users"}, {ID: "c3", Name: "Orders"}}

	c, err := findCollection(cols, "c2")
	require.NoError(t, err)
	assert.Equal(t, "users", c.Name)

	c, err = findCollection(cols, "orders")
	require.NoError(t, err)
	assert.Equal(t, "c3", c.ID)

	_, err = findCollection(cols, "USERS")
	assert.ErrorContains(t, err, "ambiguous")
}

func TestVersion(t *testing.T) {
	res := run(t, "", "version")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "assertify "), res.stdout)
}

func TestSendFromCurl(t *testing.T) {
	b, _ := setup(t)

	res := run(t, "", "send", "--curl", `curl -X PUT -H 'X-Mode: test' --json '{"a":1}' https://api.test/items/1`)
	require.NoError(t, res.err, res.stderr)

	b.mu.Lock()
	require.Len(t, b.proxied, 1)
	got := b.proxied[0]
	b.mu.Unlock()
	assert.Equal(t, "PUT", got["method"])
	assert.Equal(t, "https://api.test/items/1", got["url"])
	assert.Equal(t, map[string]any{"a": float64(1)}, got["body"])
	assert.Equal(t, "test", got["headers"].(map[string]any)["X-Mode"])

	res = run(t, "", "send", "https://api.test/x", "--curl", "curl https://api.test/y")
	require.Error(t, res.err)
	res = run(t, "", "send")
	require.Error(t, res.err)
}

func TestHistoryDiff(t *testing.T) {
	setup(t)
	require.NoError(t, run(t, "", "send", "https://api.test/a").err)
	require.NoError(t, run(t, "", "send", "https://api.test/b").err)
	require.NoError(t, run(t, "", "send", "https://api.test/a").err)
	items := historyItems(t)
	require.Len(t, items, 3)

	res := run(t, "", "history", "diff", items[0].ID, items[2].ID)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "Responses are identical.\n", res.stdout)

	res = run(t, "", "history", "diff", items[1].ID, items[0].ID)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, `-  "echo": "https://api.test/b"`)
	assert.Contains(t, res.stdout, `+  "echo": "https://api.test/a"`)
}
