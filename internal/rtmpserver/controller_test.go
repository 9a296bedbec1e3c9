package rtmpserver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ephyr-go/restreamer/internal/store"
)

func TestReconcileStartsOnFirstCallAndSkipsWhenUnchanged(t *testing.T) {
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)

	c := NewController(zap.NewNop(), "true", filepath.Join(t.TempDir(), "srs.conf"), "http://127.0.0.1:8001", "/data/hls")

	restarted, err := c.Reconcile(st.Snapshot().State)
	require.NoError(t, err)
	assert.True(t, restarted, "first reconcile always starts the server")

	restarted, err = c.Reconcile(st.Snapshot().State)
	require.NoError(t, err)
	assert.False(t, restarted, "an unchanged config is not a restart trigger")

	c.Stop()
}

func TestReconcileRestartsWhenConfigChanges(t *testing.T) {
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)

	c := NewController(zap.NewNop(), "true", filepath.Join(t.TempDir(), "srs.conf"), "http://127.0.0.1:8001", "/data/hls")

	_, err = c.Reconcile(st.Snapshot().State)
	require.NoError(t, err)

	_, _, err = st.SetRestream(store.SetRestreamRequest{Key: "main"})
	require.NoError(t, err)

	restarted, err := c.Reconcile(st.Snapshot().State)
	require.NoError(t, err)
	assert.True(t, restarted, "adding a restream changes the rendered vhost config")

	c.Stop()
}

func TestLogsReturnsNilBeforeAnyReconcile(t *testing.T) {
	c := NewController(zap.NewNop(), "true", filepath.Join(t.TempDir(), "srs.conf"), "http://127.0.0.1:8001", "/data/hls")
	assert.Nil(t, c.Logs(0))
}

func TestStopIsSafeWithNoRunningServer(t *testing.T) {
	c := NewController(zap.NewNop(), "true", filepath.Join(t.TempDir(), "srs.conf"), "http://127.0.0.1:8001", "/data/hls")
	c.Stop()
}
