// Package export renders recorded requests in other tools' formats.
package export

import (
	"fmt"
	"strings"

	"github.com/sadopc/assertify/internal/core/request"
)

// AsCurl converts a request to a curl command that calls the target
// directly, bypassing the backend proxy. A non-empty bearer is sent as an
// Authorization header unless the request already carries one.
func AsCurl(d request.Descriptor, bearer string) string {
	parts := []string{"curl"}

	if d.Method != "" && d.Method != request.MethodGet {
		parts = append(parts, "-X", d.Method)
	}

	for _, h := range d.Headers {
		parts = append(parts, "-H", quote(fmt.Sprintf("%s: %s", h.Key, h.Value)))
	}
	if _, ok := headerValue(d.Headers, "Authorization"); !ok && bearer != "" {
		parts = append(parts, "-H", quote("Authorization: Bearer "+bearer))
	}

	if d.CarriesBody() && len(d.Body) > 0 {
		if _, ok := headerValue(d.Headers, "Content-Type"); !ok {
			parts = append(parts, "-H", quote("Content-Type: application/json"))
		}
		parts = append(parts, "-d", quote(string(d.Body)))
	}

	url, err := d.OutboundURL()
	if err != nil {
		url = d.URL
	}
	parts = append(parts, quote(url))

	return strings.Join(parts, " ")
}

func headerValue(h request.Pairs, name string) (string, bool) {
	for _, kv := range h {
		if strings.EqualFold(kv.Key, name) {
			return kv.Value, true
		}
	}
	return "", false
}

// quote wraps s in single quotes for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
