// Package proxy forwards composed requests through the backend's /proxy
// endpoint and normalizes every outcome into a request.Envelope.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sadopc/assertify/internal/core/request"
	"github.com/sadopc/assertify/internal/logging"
)

// maxPayload caps how much of a backend reply is read.
const maxPayload = 16 << 20

// Client sends descriptors to the backend proxy endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *log.Logger
	newID      func() string
}

// New creates a proxy client for the backend at baseURL.
func New(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        logging.Component(logger, "proxy"),
		newID:      func() string { return uuid.New().String() },
	}
}

// outbound is the body POSTed to /proxy.
type outbound struct {
	URL     string          `json:"url"`
	Method  string          `json:"method"`
	Headers request.Pairs   `json:"headers"`
	Params  request.Pairs   `json:"params"`
	Body    json.RawMessage `json:"body"`
}

// Send forwards d through the backend. A non-empty credential is attached as
// a bearer token. Send never fails: transport errors, non-2xx replies and
// malformed payloads all come back as an envelope whose Data is
// {"success":false,"error":"..."}.
func (c *Client) Send(ctx context.Context, d request.Descriptor, credential string) request.Envelope {
	data, requestID := c.forward(ctx, d, credential)
	if requestID == "" {
		requestID = c.newID()
	}
	return request.NewEnvelope(requestID, d, data)
}

func (c *Client) forward(ctx context.Context, d request.Descriptor, credential string) (json.RawMessage, string) {
	target, err := d.OutboundURL()
	if err != nil {
		return request.Failure(err.Error()), ""
	}

	payload, err := json.Marshal(outbound{
		URL:     target,
		Method:  d.Method,
		Headers: d.Headers,
		Params:  d.Params,
		Body:    d.Body,
	})
	if err != nil {
		return request.Failure(fmt.Sprintf("encoding request: %v", err)), ""
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/proxy", bytes.NewReader(payload))
	if err != nil {
		return request.Failure(fmt.Sprintf("creating request: %v", err)), ""
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+credential)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn("proxy call failed", "url", target, "err", err)
		return request.Failure(fmt.Sprintf("sending request: %v", err)), ""
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return request.Failure(fmt.Sprintf("reading response: %v", err)), ""
	}
	c.log.Debug("proxy call", "url", target, "status", resp.StatusCode, "duration", time.Since(start))

	return normalize(resp.StatusCode, resp.Status, raw)
}

// normalize turns a backend reply into envelope data and the backend's
// request id, if it sent one.
func normalize(code int, status string, raw []byte) (json.RawMessage, string) {
	var payload any
	parseErr := json.Unmarshal(raw, &payload)
	obj, _ := payload.(map[string]any)
	requestID, _ := obj["requestId"].(string)

	if code < 200 || code > 299 {
		msg := errorMessage(obj)
		if msg == "" {
			msg = "backend returned " + status
		}
		return request.Failure(msg), requestID
	}
	if parseErr != nil {
		return request.Failure(fmt.Sprintf("malformed backend response: %v", parseErr)), requestID
	}

	if ok, isWrapper := obj["success"].(bool); isWrapper {
		if !ok {
			msg := errorMessage(obj)
			if msg == "" {
				msg = "no response from backend"
			}
			return request.Failure(msg), requestID
		}
		if inner, has := obj["response"]; has {
			b, err := json.Marshal(inner)
			if err != nil {
				return request.Failure(fmt.Sprintf("malformed backend response: %v", err)), requestID
			}
			return b, requestID
		}
	}
	return json.RawMessage(bytes.TrimSpace(raw)), requestID
}

// errorMessage digs the backend's own error text out of a payload.
func errorMessage(obj map[string]any) string {
	if obj == nil {
		return ""
	}
	for _, key := range []string{"error", "message"} {
		switch v := obj[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if m, ok := v["message"].(string); ok && m != "" {
				return m
			}
		}
	}
	if inner, ok := obj["response"].(map[string]any); ok {
		return errorMessage(inner)
	}
	return ""
}
