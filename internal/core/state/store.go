// Package state holds what the screens show: the current history, the
// collections and the selected response.
package state

import (
	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/core/request"
)

// Store holds the central application state. It is not safe for concurrent
// use; the sync controller owns it and guards it with its own lock.
type Store struct {
	History     []history.Item
	Collections []collection.Collection
	Selected    *request.Envelope
}

// NewStore creates an empty state store.
func NewStore() *Store {
	return &Store{
		History:     []history.Item{},
		Collections: []collection.Collection{},
	}
}

// Reset drops everything, as on sign-out.
func (s *Store) Reset() {
	s.History = []history.Item{}
	s.Collections = []collection.Collection{}
	s.Selected = nil
}

// Replace swaps in freshly loaded history and collections. The selection is
// kept.
func (s *Store) Replace(items []history.Item, cols []collection.Collection) {
	if items == nil {
		items = []history.Item{}
	}
	if cols == nil {
		cols = []collection.Collection{}
	}
	s.History = items
	s.Collections = cols
}

// PrependHistory puts a new item at the top of the history.
func (s *Store) PrependHistory(item history.Item) {
	s.History = append([]history.Item{item}, s.History...)
}

// AddCollection appends a new collection.
func (s *Store) AddCollection(c collection.Collection) {
	s.Collections = append(s.Collections, c)
}

// Collection returns the collection with the given id.
func (s *Store) Collection(id string) (collection.Collection, bool) {
	return collection.Find(s.Collections, id)
}

// AddToCollection records membership. It reports false when the collection
// is unknown or already holds the item.
func (s *Store) AddToCollection(collectionID, itemID string) bool {
	for i := range s.Collections {
		if s.Collections[i].ID == collectionID {
			return s.Collections[i].Add(itemID)
		}
	}
	return false
}

// Select shows env as the current response.
func (s *Store) Select(env request.Envelope) {
	s.Selected = &env
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *Store) Clone() Store {
	out := Store{
		History:     append([]history.Item(nil), s.History...),
		Collections: collection.CloneAll(s.Collections),
	}
	if out.History == nil {
		out.History = []history.Item{}
	}
	if out.Collections == nil {
		out.Collections = []collection.Collection{}
	}
	if s.Selected != nil {
		env := request.NewEnvelope(s.Selected.RequestID, s.Selected.Descriptor(), append([]byte(nil), s.Selected.Data...))
		out.Selected = &env
	}
	return out
}
