package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"leading question mark", "?token=abc123", "abc123"},
		{"no leading question mark", "token=abc123", "abc123"},
		{"extra params", "?foo=bar&token=abc123&baz=qux", "abc123"},
		{"missing token", "?foo=bar", ""},
		{"empty", "", ""},
		{"malformed", "?%zz", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractToken(tc.raw))
		})
	}
}
