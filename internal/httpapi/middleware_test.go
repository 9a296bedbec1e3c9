package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ephyr-go/restreamer/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequireHashAllowsWhenNoPasswordSet(t *testing.T) {
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)

	r := gin.New()
	r.Use(requireHash(st, selectMainHash))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireHashRejectsMissingCredentials(t *testing.T) {
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)
	_, err = st.SetPassword(store.PasswordMain, "", "secret123")
	require.NoError(t, err)

	r := gin.New()
	r.Use(requireHash(st, selectMainHash))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireHashAcceptsCorrectCredentials(t *testing.T) {
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)
	_, err = st.SetPassword(store.PasswordMain, "", "secret123")
	require.NoError(t, err)

	r := gin.New()
	r.Use(requireHash(st, selectMainHash))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.SetBasicAuth("", "secret123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSelectOutputHashFallsBackToMain(t *testing.T) {
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)
	_, err = st.SetPassword(store.PasswordMain, "", "mainpass")
	require.NoError(t, err)

	hash := selectOutputHash(st.Snapshot().State)
	require.NotNil(t, hash)
	assert.Equal(t, st.Snapshot().State.PasswordHash, hash)
}

func TestRequestIDIsAssignedAndEchoedBack(t *testing.T) {
	r := gin.New()
	r.Use(requestID())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDPreservesIncomingHeader(t *testing.T) {
	r := gin.New()
	r.Use(requestID())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))
}
