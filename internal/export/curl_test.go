package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sadopc/assertify/internal/core/request"
)

func TestAsCurl_GET(t *testing.T) {
	d := request.Descriptor{
		Method:  "GET",
		URL:     "https://api.example.com/users",
		Headers: request.Pairs{{Key: "Accept", Value: "application/json"}},
		Params:  request.Pairs{{Key: "page", Value: "2"}, {Key: "q", Value: "a b"}},
	}

	result := AsCurl(d, "")
	if !strings.HasPrefix(result, "curl") {
		t.Error("should start with 'curl'")
	}
	if strings.Contains(result, "-X") {
		t.Error("GET should not have -X flag")
	}
	if !strings.Contains(result, "'Accept: application/json'") {
		t.Error("should contain Accept header")
	}
	if !strings.HasSuffix(result, "'https://api.example.com/users?page=2&q=a+b'") {
		t.Errorf("should end with the merged URL, got: %s", result)
	}
}

func TestAsCurl_POST(t *testing.T) {
	d := request.Descriptor{
		Method: "POST",
		URL:    "https://api.example.com/users",
		Params: request.Pairs{{Key: "ignored", Value: "1"}},
		Body:   json.RawMessage(`{"name":"o'brien"}`),
	}

	result := AsCurl(d, "")
	if !strings.Contains(result, "-X POST") {
		t.Error("should have -X POST")
	}
	if !strings.Contains(result, `-d '{"name":"o'\''brien"}'`) {
		t.Errorf("should contain escaped body data, got: %s", result)
	}
	if !strings.Contains(result, "'Content-Type: application/json'") {
		t.Error("should default the content type for JSON bodies")
	}
	if strings.Contains(result, "ignored") {
		t.Error("params are only merged into GET URLs")
	}
}

func TestAsCurl_Bearer(t *testing.T) {
	d := request.Descriptor{Method: "DELETE", URL: "https://api.example.com/me"}

	result := AsCurl(d, "mytoken123")
	if !strings.Contains(result, "'Authorization: Bearer mytoken123'") {
		t.Errorf("should contain bearer header, got: %s", result)
	}

	d.Headers = request.Pairs{{Key: "authorization", Value: "Basic abc"}}
	result = AsCurl(d, "mytoken123")
	if strings.Contains(result, "mytoken123") {
		t.Error("an explicit Authorization header wins over the bearer")
	}
}
