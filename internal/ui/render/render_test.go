package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPretty(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", Pretty([]byte(`{"a":1}`)))
	assert.Equal(t, "not json", Pretty([]byte("not json")))
	assert.Equal(t, "", Pretty([]byte("  ")))
}

func TestBodyWithoutStyleIsPlain(t *testing.T) {
	assert.Equal(t, "{\n  \"ok\": true\n}", Body([]byte(`{"ok":true}`), ""))
}

func TestBodyHighlights(t *testing.T) {
	out := Body([]byte(`{"ok":true}`), "dracula")
	assert.Contains(t, out, "\x1b[", "output carries terminal escapes")
	assert.Contains(t, out, "ok")
}

func TestHighlightUnknownLexerAndStyle(t *testing.T) {
	out := Highlight("plain words", "no-such-lexer", "no-such-style")
	assert.Contains(t, out, "plain words")
}

func TestSize(t *testing.T) {
	assert.Equal(t, "0 B", Size(0))
	assert.Equal(t, "1.5 kB", Size(1500))
	assert.Equal(t, "0 B", Size(-3))
}

func TestAge(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "-", Age(time.Time{}, now))
	assert.Equal(t, "3 minutes ago", Age(now.Add(-3*time.Minute), now))
}
