// Package httpapi wires the gin router: the client, mix,
// and dashboard GraphQL endpoints behind their respective password
// realms, plus the shared middleware stack (Recovery, request ID, CORS,
// access log, body-size limit).
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ephyr-go/restreamer/internal/argonhash"
	"github.com/ephyr-go/restreamer/internal/store"
)

// maxBodyBytes bounds every request body to 10MB, guarding against
// oversized or drip-fed bodies.
const maxBodyBytes = 10 << 20

func limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		c.Next()
	}
}

// requestID attaches a fresh request id to every request, early in the
// chain so downstream handlers and the access log can both read it.
func requestID() gin.HandlerFunc {
	const header = "X-Request-ID"
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(header, id)
		c.Next()
	}
}

// accessLog records method/route/status/latency after each request.
func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		var errs []error
		for _, ge := range c.Errors {
			if ge.Err != nil {
				errs = append(errs, ge.Err)
			}
		}
		joined := errors.Join(errs...)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		}
		if joined != nil {
			fields = append(fields, zap.Error(joined))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// requireHash is HTTP Basic auth against a state document password hash,
// selected fresh from the current snapshot on every request (§4.7: "if a
// main hash is set, every API call must present a credential validated
// against it"; an unset hash means the realm is open).
func requireHash(st *store.Store, selectHash func(*store.State) *string) gin.HandlerFunc {
	return func(c *gin.Context) {
		hash := selectHash(st.Snapshot().State)
		if hash == nil {
			c.Next()
			return
		}
		_, password, ok := c.Request.BasicAuth()
		if !ok || argonhash.Verify(password, *hash) != nil {
			c.Header("WWW-Authenticate", `Basic realm="restreamer"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
