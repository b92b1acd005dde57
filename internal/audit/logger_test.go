package audit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestEmit_WritesTaggedEvent(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	l.Emit("login", map[string]string{"user_id": "u-1"})

	out := buf.String()
	assert.Contains(t, out, `"audit":true`)
	assert.Contains(t, out, `"action":"login"`)
	assert.Contains(t, out, `"user_id":"u-1"`)
}

func TestEmit_MasksEmail(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	l.Emit("register", map[string]string{"email": "alice@example.com"})

	out := buf.String()
	assert.NotContains(t, out, "alice@example.com")
	assert.Contains(t, out, "al***@example.com")
}

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.com": "al***@example.com",
		"a@b.c":             "***",
		"":                  "***",
		"no-at-sign":        "***",
	}
	for in, want := range cases {
		got := maskEmail(in)
		assert.Equal(t, want, got, "input %q", in)
		assert.False(t, strings.Contains(got, in) && in != "", "mask must not echo %q", in)
	}
}
