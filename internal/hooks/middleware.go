package hooks

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// LoopbackOnly rejects any request whose remote address isn't loopback.
// The RTMP server's hook callbacks carry no authentication of their own,
// so the dispatcher must never be reachable except from the RTMP server
// process on the same host.
func LoopbackOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// WithDeadline bounds every hook handler to Deadline, so a stalled
// downstream (e.g. the state store's writer lock) can never hang the
// RTMP server's synchronous callback indefinitely.
func WithDeadline() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), Deadline)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
