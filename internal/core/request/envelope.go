package request

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"
)

// Envelope is the single shape returned for every proxied request, whatever
// happened on the way. Data holds the upstream payload or a synthesized
// {"success":false,"error":"..."} object.
type Envelope struct {
	RequestID string          `json:"requestId"`
	URL       string          `json:"url"`
	Method    string          `json:"method"`
	Headers   Pairs           `json:"headers"`
	Params    Pairs           `json:"params"`
	Body      json.RawMessage `json:"body"`
	Data      json.RawMessage `json:"data"`
}

// NewEnvelope returns an envelope echoing d with the given id and data.
func NewEnvelope(id string, d Descriptor, data json.RawMessage) Envelope {
	c := d.Clone()
	return Envelope{
		RequestID: id,
		URL:       c.URL,
		Method:    c.Method,
		Headers:   c.Headers,
		Params:    c.Params,
		Body:      c.Body,
		Data:      data,
	}
}

// Descriptor returns the request half of the envelope.
func (e Envelope) Descriptor() Descriptor {
	return Descriptor{
		URL:     e.URL,
		Method:  e.Method,
		Headers: e.Headers,
		Params:  e.Params,
		Body:    e.Body,
	}.Clone()
}

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Failure builds the synthesized error payload. An empty message is replaced
// so the error field is never blank.
func Failure(msg string) json.RawMessage {
	if msg == "" {
		msg = "request failed"
	}
	b, _ := json.Marshal(failure{Success: false, Error: msg})
	return b
}

// FailureMessage returns the error text when Data is a failure payload.
func (e Envelope) FailureMessage() (string, bool) {
	var f struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(e.Data, &f); err != nil {
		return "", false
	}
	if f.Success == nil || *f.Success || f.Error == "" {
		return "", false
	}
	return f.Error, true
}

// Extract evaluates a JSONPath expression against Data.
func (e Envelope) Extract(path string) ([]any, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("parsing JSONPath %q: %w", path, err)
	}
	var data any
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &data); err != nil {
			return nil, fmt.Errorf("decoding response data: %w", err)
		}
	}
	return expr.Get(data), nil
}
