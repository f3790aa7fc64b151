// Package remote talks to the backend's per-user history and collection
// endpoints.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/core/request"
	"github.com/sadopc/assertify/internal/logging"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned %d", e.Code)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

// Client is the authenticated user's remote store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *log.Logger
}

// New creates a remote store client for the backend at baseURL.
func New(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        logging.Component(logger, "remote"),
	}
}

// GetHistory returns the user's history. Failures are logged and yield an
// empty slice.
func (c *Client) GetHistory(ctx context.Context, credential string) []history.Item {
	var items []history.Item
	if err := c.getList(ctx, "/history", "history", credential, &items); err != nil {
		c.log.Warn("fetching history", "err", err)
		return []history.Item{}
	}
	if items == nil {
		return []history.Item{}
	}
	return items
}

// GetCollections returns the user's collections. Failures are logged and
// yield an empty slice.
func (c *Client) GetCollections(ctx context.Context, credential string) []collection.Collection {
	var cols []collection.Collection
	if err := c.getList(ctx, "/collections", "collections", credential, &cols); err != nil {
		c.log.Warn("fetching collections", "err", err)
		return []collection.Collection{}
	}
	if cols == nil {
		return []collection.Collection{}
	}
	// bookkeeping fields are local-only
	for i := range cols {
		cols[i].RemoteID = ""
		cols[i].RemoteRefs = nil
	}
	return cols
}

// SaveHistory records item for the user and returns the stored item with
// its server-assigned id. Fields the server does not echo are taken from
// item.
func (c *Client) SaveHistory(ctx context.Context, item history.Item, credential string) (history.Item, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/history", credential, item, &raw); err != nil {
		return history.Item{}, fmt.Errorf("saving history item: %w", err)
	}

	var echo struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(unwrap(raw, "item"), &echo); err != nil {
		return history.Item{}, fmt.Errorf("decoding saved history item: %w", err)
	}
	id := request.ScalarString(echo.ID)
	if id == "" {
		return history.Item{}, fmt.Errorf("saving history item: backend returned no id")
	}

	saved := item
	var full history.Item
	if err := json.Unmarshal(unwrap(raw, "item"), &full); err == nil && full.URL != "" {
		saved = full
	}
	saved.ID = id
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = item.CreatedAt
	}
	return saved, nil
}

// CreateCollection creates an empty collection named name.
func (c *Client) CreateCollection(ctx context.Context, name, credential string) (collection.Collection, error) {
	var raw json.RawMessage
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, "/collections", credential, body, &raw); err != nil {
		return collection.Collection{}, fmt.Errorf("creating collection: %w", err)
	}

	var col collection.Collection
	if err := json.Unmarshal(unwrap(raw, "collection"), &col); err != nil {
		return collection.Collection{}, fmt.Errorf("decoding created collection: %w", err)
	}
	if col.ID == "" {
		return collection.Collection{}, fmt.Errorf("creating collection: backend returned no id")
	}
	if col.Name == "" {
		col.Name = name
	}
	col.RemoteID = ""
	col.RemoteRefs = nil
	return col, nil
}

// AddRequestToCollection records membership of a history item.
func (c *Client) AddRequestToCollection(ctx context.Context, collectionID, requestID, credential string) error {
	body := map[string]string{"collectionId": collectionID, "requestId": requestID}
	if err := c.do(ctx, http.MethodPost, "/collection-items", credential, body, nil); err != nil {
		return fmt.Errorf("adding request to collection: %w", err)
	}
	return nil
}

// getList decodes either a bare JSON array or an object wrapping one under
// key or "data".
func (c *Client) getList(ctx context.Context, path, key, credential string, dst any) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, credential, nil, &raw); err != nil {
		return err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		if v, ok := wrapper[key]; ok {
			raw = v
		} else {
			raw = wrapper["data"]
		}
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, credential string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	c.log.Debug("remote call", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = data
		return nil
	}
	return json.Unmarshal(data, out)
}

// unwrap returns raw[key] when raw is an object holding key, else raw.
func unwrap(raw json.RawMessage, key string) json.RawMessage {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return raw
	}
	if v, ok := wrapper[key]; ok && len(v) > 0 && v[0] == '{' {
		return v
	}
	return raw
}
