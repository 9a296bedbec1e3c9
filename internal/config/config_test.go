package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaultsWithoutAConfigFile(t *testing.T) {
	cfg, err := Load([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)
	assert.Equal(t, defaults().APIAddr, cfg.APIAddr)
	assert.Equal(t, defaults().DVRTTLHours, cfg.DVRTTLHours)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restreamer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_address: :9000\ndvr_ttl_hours: 48\n"), 0o644))

	cfg, err := Load([]string{"-config", path})
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.APIAddr)
	assert.Equal(t, 48, cfg.DVRTTLHours)
	assert.Equal(t, defaults().HookAddr, cfg.HookAddr, "fields absent from the file keep their default")
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restreamer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_address: :9000\n"), 0o644))

	cfg, err := Load([]string{"-config", path, "-api-addr", ":9100"})
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.APIAddr)
}

func TestLoadEnvOverridesStatePath(t *testing.T) {
	t.Setenv("EPHYR_RESTREAMER_STATE_PATH", "/tmp/custom-state.json")
	cfg, err := Load([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-state.json", cfg.StatePath)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restreamer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: valid: yaml: :: ["), 0o644))

	_, err := Load([]string{"-config", path})
	assert.Error(t, err)
}
