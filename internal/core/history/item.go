// Package history defines a recorded API call.
package history

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/assertify/internal/core/request"
)

// Item is one recorded API call. Items are created once, when a request
// completes, and never modified afterwards.
type Item struct {
	ID           string          `json:"id"`
	URL          string          `json:"url"`
	Method       string          `json:"method"`
	Headers      request.Pairs   `json:"headers"`
	Params       request.Pairs   `json:"params"`
	Body         json.RawMessage `json:"body"`
	ResponseData json.RawMessage `json:"responseData"`
	CreatedAt    Timestamp       `json:"createdAt"`
}

// NewID returns a client-side identifier for guest-owned items.
func NewID() string {
	return uuid.New().String()
}

// FromEnvelope records a completed request. The envelope's request id becomes
// the item id; a fresh id is generated when it is missing.
func FromEnvelope(env request.Envelope, now time.Time) Item {
	id := env.RequestID
	if id == "" {
		id = NewID()
	}
	method := env.Method
	if method == "" {
		method = request.MethodGet
	}
	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	d := env.Descriptor()
	return Item{
		ID:           id,
		URL:          d.URL,
		Method:       method,
		Headers:      d.Headers,
		Params:       d.Params,
		Body:         d.Body,
		ResponseData: append(json.RawMessage(nil), data...),
		CreatedAt:    Timestamp{Time: now.UTC()},
	}
}

// Envelope rebuilds the envelope shown when the item is selected again.
func (it Item) Envelope() request.Envelope {
	return request.NewEnvelope(it.ID, it.Descriptor(), append(json.RawMessage(nil), it.ResponseData...))
}

// Descriptor returns the request that produced the item.
func (it Item) Descriptor() request.Descriptor {
	return request.Descriptor{
		URL:     it.URL,
		Method:  it.Method,
		Headers: it.Headers,
		Params:  it.Params,
		Body:    it.Body,
	}.Clone()
}

// UnmarshalJSON accepts the encodings different backend versions have used:
// responseData may arrive as data, and a missing id is derived from the
// record's content so every decode of the same record yields the same id.
func (it *Item) UnmarshalJSON(b []byte) error {
	type plain Item
	var aux struct {
		plain
		ID   json.RawMessage `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*it = Item(aux.plain)
	it.ID = request.ScalarString(aux.ID)
	if len(it.ResponseData) == 0 || string(it.ResponseData) == "null" {
		it.ResponseData = aux.Data
	}
	if it.ID == "" {
		it.ID = contentID(b)
	}
	if it.Method == "" {
		it.Method = request.MethodGet
	}
	return nil
}

func contentID(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, buf.Bytes()).String()
}

// Index returns the items keyed by id.
func Index(items []Item) map[string]Item {
	m := make(map[string]Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return m
}
