package collection

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/assertify/internal/core/history"
)

// Bundle is the YAML export of collections with their requests resolved.
type Bundle struct {
	Collections []BundleCollection `yaml:"collections"`
}

// BundleCollection is one exported collection.
type BundleCollection struct {
	Name     string          `yaml:"name"`
	Requests []BundleRequest `yaml:"requests"`
}

// BundleRequest is a resolved collection entry. Unresolved references are
// exported with Missing set so nothing is silently dropped.
type BundleRequest struct {
	ID      string            `yaml:"id"`
	Method  string            `yaml:"method,omitempty"`
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Params  map[string]string `yaml:"params,omitempty"`
	Body    string            `yaml:"body,omitempty"`
	Missing bool              `yaml:"missing,omitempty"`
}

// NewBundle resolves every collection's item ids against items.
func NewBundle(cols []Collection, items []history.Item) Bundle {
	idx := history.Index(items)
	b := Bundle{Collections: make([]BundleCollection, 0, len(cols))}
	for _, c := range cols {
		bc := BundleCollection{Name: c.Name, Requests: make([]BundleRequest, 0, len(c.Items))}
		for _, id := range c.Items {
			it, ok := idx[id]
			if !ok {
				bc.Requests = append(bc.Requests, BundleRequest{ID: id, Missing: true})
				continue
			}
			br := BundleRequest{ID: id, Method: it.Method, URL: it.URL}
			if len(it.Headers) > 0 {
				br.Headers = make(map[string]string, len(it.Headers))
				for _, kv := range it.Headers {
					br.Headers[kv.Key] = kv.Value
				}
			}
			if len(it.Params) > 0 {
				br.Params = make(map[string]string, len(it.Params))
				for _, kv := range it.Params {
					br.Params[kv.Key] = kv.Value
				}
			}
			if len(it.Body) > 0 && string(it.Body) != "null" {
				br.Body = string(it.Body)
			}
			bc.Requests = append(bc.Requests, br)
		}
		b.Collections = append(b.Collections, bc)
	}
	return b
}

// WriteBundle encodes b as YAML.
func WriteBundle(w io.Writer, b Bundle) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding collections: %w", err)
	}
	return enc.Close()
}

// SaveToFile writes b to path as YAML.
func SaveToFile(b Bundle, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := WriteBundle(f, b); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	return nil
}
