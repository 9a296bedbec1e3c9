package supervisor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ephyr-go/restreamer/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		StatePath:      filepath.Join(dir, "state.json"),
		RTMPBinary:     "true",
		RTMPConfigPath: filepath.Join(dir, "srs.conf"),
		HookAddr:       "127.0.0.1:8001",
		HLSDir:         filepath.Join(dir, "hls"),
		DVRDir:         filepath.Join(dir, "dvr"),
		DVRTTLHours:    24,
		Debug:          true,
	}
}

func TestNewWiresEveryComponent(t *testing.T) {
	sup, err := New(zap.NewNop(), testConfig(t))
	require.NoError(t, err)

	assert.NotNil(t, sup.Store)
	assert.NotNil(t, sup.RTMP)
	assert.NotNil(t, sup.Hooks)
	assert.NotNil(t, sup.Recon)
	assert.NotNil(t, sup.DVR)
	assert.NotNil(t, sup.Info)
	require.NotNil(t, sup.Schemas)
	assert.NotNil(t, sup.Schemas.Client)
	assert.NotNil(t, sup.Schemas.Mix)
	assert.NotNil(t, sup.Schemas.Dashboard)
}

func TestHTTPConfigReflectsDebugFlag(t *testing.T) {
	sup, err := New(zap.NewNop(), testConfig(t))
	require.NoError(t, err)
	assert.True(t, sup.HTTPConfig().Debug)
}
