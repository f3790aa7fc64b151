// Package collection defines named, ordered groups of history item references.
package collection

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/sadopc/assertify/internal/core/request"
)

// Collection is a user-curated, ordered list of history item ids. It refers
// to items, it never embeds them.
type Collection struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Items []string `json:"items"`

	// Local-only bookkeeping for a migration that did not finish. RemoteID is
	// the remote collection already created for this one; RemoteRefs maps a
	// local item id to the remote id of an item that already migrated.
	RemoteID   string            `json:"remoteId,omitempty"`
	RemoteRefs map[string]string `json:"remoteRefs,omitempty"`
}

// New creates an empty guest collection with a client-side id.
func New(name string) Collection {
	return Collection{
		ID:    uuid.New().String(),
		Name:  name,
		Items: []string{},
	}
}

// Contains reports whether id is already referenced.
func (c Collection) Contains(id string) bool {
	for _, v := range c.Items {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id unless it is already present. It reports whether the
// collection changed.
func (c *Collection) Add(id string) bool {
	if id == "" || c.Contains(id) {
		return false
	}
	c.Items = append(c.Items, id)
	return true
}

// Clone returns a deep copy.
func (c Collection) Clone() Collection {
	out := c
	out.Items = append([]string{}, c.Items...)
	if c.RemoteRefs != nil {
		out.RemoteRefs = make(map[string]string, len(c.RemoteRefs))
		for k, v := range c.RemoteRefs {
			out.RemoteRefs[k] = v
		}
	}
	return out
}

// UnmarshalJSON accepts items as bare ids or as embedded objects with an id,
// normalizing to ids and dropping duplicates.
func (c *Collection) UnmarshalJSON(b []byte) error {
	type plain Collection
	var aux struct {
		plain
		ID    json.RawMessage   `json:"id"`
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*c = Collection(aux.plain)
	c.ID = request.ScalarString(aux.ID)
	c.Items = make([]string, 0, len(aux.Items))
	for _, raw := range aux.Items {
		c.Add(itemID(raw))
	}
	return nil
}

func itemID(raw json.RawMessage) string {
	var obj struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && len(obj.ID) > 0 {
		return request.ScalarString(obj.ID)
	}
	return request.ScalarString(raw)
}

// Find returns the collection with the given id.
func Find(cols []Collection, id string) (Collection, bool) {
	for _, c := range cols {
		if c.ID == id {
			return c, true
		}
	}
	return Collection{}, false
}

// CloneAll deep-copies a slice of collections.
func CloneAll(cols []Collection) []Collection {
	if cols == nil {
		return nil
	}
	out := make([]Collection, len(cols))
	for i, c := range cols {
		out[i] = c.Clone()
	}
	return out
}
