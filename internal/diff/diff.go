// Package diff compares recorded responses.
package diff

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/tidwall/pretty"

	"github.com/sadopc/assertify/internal/core/history"
)

var canonical = &pretty.Options{Width: 80, Indent: "  ", SortKeys: true}

// Responses returns a unified diff of the response data of two recorded
// requests, or "" when they are equal. Payloads are re-indented with sorted
// keys first, so formatting and key order never show up as changes.
func Responses(a, b history.Item) (string, error) {
	return Payloads(label(a), a.ResponseData, label(b), b.ResponseData)
}

// Payloads diffs two JSON payloads. Invalid JSON is compared as text.
func Payloads(nameA string, a []byte, nameB string, b []byte) (string, error) {
	ca, cb := normalize(a), normalize(b)
	if ca == cb {
		return "", nil
	}
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(ca),
		B:        difflib.SplitLines(cb),
		FromFile: nameA,
		ToFile:   nameB,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("diffing responses: %w", err)
	}
	return out, nil
}

func normalize(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	if !json.Valid(data) {
		return string(data)
	}
	return string(pretty.PrettyOptions(data, canonical))
}

func label(it history.Item) string {
	id := it.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s %s %s", id, it.Method, it.URL)
}
