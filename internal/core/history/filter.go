package history

import (
	"github.com/sahilm/fuzzy"
)

// Filter fuzzy-matches query against "METHOD url" and returns the matching
// items, best match first. An empty query returns items unchanged.
func Filter(items []Item, query string) []Item {
	if query == "" {
		return items
	}
	matches := fuzzy.FindFrom(query, source(items))
	out := make([]Item, 0, len(matches))
	for _, m := range matches {
		out = append(out, items[m.Index])
	}
	return out
}

type source []Item

func (s source) String(i int) string { return s[i].Method + " " + s[i].URL }
func (s source) Len() int            { return len(s) }
