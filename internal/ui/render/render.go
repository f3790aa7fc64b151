// Package render formats response payloads for display.
package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/tidwall/pretty"
)

// Pretty indents JSON. Anything that is not valid JSON is returned as is.
func Pretty(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	if !json.Valid(data) {
		return string(data)
	}
	return strings.TrimRight(string(pretty.Pretty(data)), "\n")
}

// Body pretty prints and highlights a payload with the given chroma style.
// An empty style disables highlighting.
func Body(data []byte, style string) string {
	src := Pretty(data)
	if src == "" || style == "" {
		return src
	}
	lexer := "text"
	if json.Valid([]byte(src)) {
		lexer = "json"
	}
	return Highlight(src, lexer, style)
}

// Highlight applies chroma syntax highlighting for a terminal. On any
// failure the source is returned unchanged.
func Highlight(source, lexerName, styleName string) string {
	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get(styleName)
	if style == nil {
		style = chromastyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return source
	}
	return buf.String()
}

// Wrap soft-wraps s to width columns.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

// Size renders a payload size such as "1.2 kB".
func Size(n int) string {
	return humanize.Bytes(uint64(max(n, 0)))
}

// Age renders t relative to now, e.g. "3 minutes ago". The zero time renders
// as "-".
func Age(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
