package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Pair is a single key/value entry (header or query parameter).
type Pair struct {
	Key   string
	Value string
}

// Pairs is an ordered list of key/value entries. It encodes as a JSON object
// in insertion order and decodes preserving document order. Duplicate keys
// are kept.
type Pairs []Pair

// Get returns the first value stored under key.
func (p Pairs) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Clone returns a copy that does not share the backing array.
func (p Pairs) Clone() Pairs {
	if p == nil {
		return nil
	}
	out := make(Pairs, len(p))
	copy(out, p)
	return out
}

// MarshalJSON writes the pairs as a JSON object in order.
func (p Pairs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order. Non-string values are
// stored as their JSON text, so {"page":1} yields page=1.
func (p *Pairs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding pairs: %w", err)
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decoding pairs: expected JSON object")
	}

	var out Pairs
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding pairs: %w", err)
		}
		key, _ := kt.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding pairs value for %q: %w", key, err)
		}
		out = append(out, Pair{Key: key, Value: ScalarString(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decoding pairs: %w", err)
	}

	*p = out
	return nil
}

// ScalarString renders a JSON value as plain text: strings are unquoted, null
// is empty, anything else is its compact JSON text.
func ScalarString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err == nil {
		return compact.String()
	}
	return strings.TrimSpace(string(trimmed))
}
