package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sadopc/assertify/internal/core/collection"
	"github.com/sadopc/assertify/internal/core/history"
	"github.com/sadopc/assertify/internal/ui/render"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, render.Pretty(b))
	return err
}

// printMatches writes JSONPath results, one compact JSON value per line.
func printMatches(w io.Writer, matches []any) error {
	for _, m := range matches {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encoding match: %w", err)
		}
		fmt.Fprintln(w, string(b))
	}
	return nil
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "Warning: "+format+"\n", args...)
}

// findItem resolves ref as a full history id or a unique id prefix.
func findItem(items []history.Item, ref string) (history.Item, error) {
	var found []history.Item
	for _, it := range items {
		if it.ID == ref {
			return it, nil
		}
		if strings.HasPrefix(it.ID, ref) {
			found = append(found, it)
		}
	}
	switch len(found) {
	case 0:
		return history.Item{}, fmt.Errorf("no history item %q", ref)
	case 1:
		return found[0], nil
	default:
		return history.Item{}, fmt.Errorf("history id %q is ambiguous (%d matches)", ref, len(found))
	}
}

// findCollection resolves ref as a collection id or a case-insensitive name.
func findCollection(cols []collection.Collection, ref string) (collection.Collection, error) {
	if c, ok := collection.Find(cols, ref); ok {
		return c, nil
	}
	var found []collection.Collection
	for _, c := range cols {
		if strings.EqualFold(c.Name, ref) {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return collection.Collection{}, fmt.Errorf("no collection %q", ref)
	case 1:
		return found[0], nil
	default:
		return collection.Collection{}, fmt.Errorf("collection name %q is ambiguous, use its id", ref)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
