package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp is a creation time that decodes every encoding the backend has
// produced: RFC 3339 strings, unix seconds, or {"_seconds":..,"_nanoseconds":..}
// objects. It always encodes as RFC 3339.
type Timestamp struct {
	time.Time
}

// MarshalJSON encodes the time as RFC 3339 with nanoseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON decodes any of the accepted encodings.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parsing timestamp %q: %w", s, err)
		}
		t.Time = parsed
	case '{':
		var fs struct {
			Seconds     int64 `json:"_seconds"`
			Nanoseconds int64 `json:"_nanoseconds"`
		}
		if err := json.Unmarshal(b, &fs); err != nil {
			return fmt.Errorf("parsing timestamp object: %w", err)
		}
		t.Time = time.Unix(fs.Seconds, fs.Nanoseconds).UTC()
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("parsing timestamp %s: %w", b, err)
		}
		sec := int64(f)
		t.Time = time.Unix(sec, int64((f-float64(sec))*1e9)).UTC()
	}
	return nil
}
