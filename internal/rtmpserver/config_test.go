package rtmpserver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ephyr-go/restreamer/internal/store"
)

func TestRenderConfigEmitsOneVhostPerRestream(t *testing.T) {
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)
	_, _, err = st.SetRestream(store.SetRestreamRequest{Key: "main"})
	require.NoError(t, err)

	out, err := RenderConfig(st.Snapshot().State, "http://127.0.0.1:8001", "/data/hls")
	require.NoError(t, err)
	assert.Contains(t, out, "vhost main {")
	assert.Contains(t, out, "http://127.0.0.1:8001/on_publish")
	assert.NotContains(t, out, "hls {")
}

func TestRenderConfigIncludesHLSBlockWhenRequested(t *testing.T) {
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)
	_, _, err = st.SetRestream(store.SetRestreamRequest{Key: "main", WithHLS: true})
	require.NoError(t, err)

	out, err := RenderConfig(st.Snapshot().State, "http://127.0.0.1:8001", "/data/hls")
	require.NoError(t, err)
	assert.Contains(t, out, "hls {")
	assert.Contains(t, out, "/data/hls/main")
}

func TestWriteConfigCreatesFileAndDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "srs.conf")
	require.NoError(t, WriteConfig(path, "listen 1935;"))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "listen 1935;", string(got))
}

func TestClassifyLogLineParsesLevel(t *testing.T) {
	cases := []struct {
		in      string
		level   string
		message string
	}{
		{"[2024-01-01 00:00:00.000][Error][1][2] connection refused", "error", "connection refused"},
		{"[Info] server started", "info", "server started"},
		{"segmentation fault", "warn", "segmentation fault"},
	}
	for _, c := range cases {
		level, msg := ClassifyLogLine(c.in)
		assert.Equal(t, c.level, level, c.in)
		assert.Equal(t, c.message, msg, c.in)
	}
}
