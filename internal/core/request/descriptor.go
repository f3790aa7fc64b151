// Package request holds the outbound request descriptor and the uniform
// response envelope produced for every proxied call.
package request

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Supported methods.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
)

// Methods lists the supported methods in display order.
var Methods = []string{MethodGet, MethodPost, MethodPut, MethodDelete}

// ValidMethod reports whether m is a supported method.
func ValidMethod(m string) bool {
	for _, v := range Methods {
		if v == m {
			return true
		}
	}
	return false
}

// Descriptor describes an outbound HTTP call to be forwarded by the backend.
type Descriptor struct {
	URL     string          `json:"url"`
	Method  string          `json:"method"`
	Headers Pairs           `json:"headers"`
	Params  Pairs           `json:"params"`
	Body    json.RawMessage `json:"body"`
}

// CarriesBody reports whether the method sends a body.
func (d Descriptor) CarriesBody() bool {
	return d.Method == MethodPost || d.Method == MethodPut
}

// OutboundURL returns the URL that is actually forwarded. For GET requests
// the params are appended to the query in order; an existing query is kept
// and repeated keys are appended rather than replaced.
func (d Descriptor) OutboundURL() (string, error) {
	if d.Method != MethodGet || len(d.Params) == 0 {
		return d.URL, nil
	}

	u, err := url.Parse(d.URL)
	if err != nil {
		return "", fmt.Errorf("parsing URL: %w", err)
	}

	parts := make([]string, 0, len(d.Params)+1)
	if u.RawQuery != "" {
		parts = append(parts, u.RawQuery)
	}
	for _, kv := range d.Params {
		parts = append(parts, url.QueryEscape(kv.Key)+"="+url.QueryEscape(kv.Value))
	}
	u.RawQuery = strings.Join(parts, "&")
	u.ForceQuery = false
	return u.String(), nil
}

// Clone returns a deep copy of the descriptor.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.Headers = d.Headers.Clone()
	out.Params = d.Params.Clone()
	if d.Body != nil {
		out.Body = append(json.RawMessage(nil), d.Body...)
	}
	return out
}
