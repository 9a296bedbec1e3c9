package hooks

import "net/url"

// extractToken pulls a `token` value out of a raw query-string-shaped
// param, as SRS forwards the original connection's query string
// verbatim in the `param` hook field (e.g. "?token=abc123").
func extractToken(raw string) string {
	if len(raw) > 0 && raw[0] == '?' {
		raw = raw[1:]
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	return q.Get("token")
}
