package request

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

// Form is the raw text a user typed into the request composer.
type Form struct {
	URL     string
	Method  string
	Headers string // JSON object
	Params  string // JSON object
	Body    string // JSON value, POST/PUT only
}

// ValidationError reports malformed composer input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// ParseForm validates composer input and builds a Descriptor. It must run
// before anything is handed to the proxy client.
func ParseForm(f Form) (Descriptor, error) {
	errs := map[string]string{}

	d := Descriptor{
		URL:    strings.TrimSpace(f.URL),
		Method: strings.ToUpper(strings.TrimSpace(f.Method)),
	}
	if d.Method == "" {
		d.Method = MethodGet
	}

	if d.URL == "" {
		errs["url"] = "URL is required"
	} else if u, err := url.Parse(d.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs["url"] = "URL must be absolute, e.g. https://api.example.com/data"
	}
	if !ValidMethod(d.Method) {
		errs["method"] = "unsupported method " + d.Method
	}

	if s := strings.TrimSpace(f.Headers); s != "" {
		if err := json.Unmarshal([]byte(s), &d.Headers); err != nil {
			errs["headers"] = "Invalid JSON"
		}
	}
	if s := strings.TrimSpace(f.Params); s != "" {
		if err := json.Unmarshal([]byte(s), &d.Params); err != nil {
			errs["params"] = "Invalid JSON"
		}
	}

	if d.CarriesBody() {
		s := strings.TrimSpace(f.Body)
		switch {
		case s == "":
			d.Body = json.RawMessage(`{}`)
		case json.Valid([]byte(s)):
			d.Body = json.RawMessage(s)
		default:
			errs["body"] = "Invalid JSON"
		}
	}

	if len(errs) > 0 {
		return Descriptor{}, &ValidationError{Fields: errs}
	}
	return d, nil
}
