package dvr

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ephyr-go/restreamer/internal/store"
)

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, old, old))
}

func TestSweepDeletesUnreferencedExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)

	stale := filepath.Join(dir, "stale.ts")
	touch(t, stale, time.Hour)

	s := New(zap.NewNop(), st, dir, time.Minute)
	s.Sweep()

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestSweepKeepsFilesUnderTTL(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)

	fresh := filepath.Join(dir, "fresh.ts")
	touch(t, fresh, time.Second)

	s := New(zap.NewNop(), st, dir, time.Hour)
	s.Sweep()

	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestSweepKeepsReferencedFilesEvenIfExpired(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)

	path := filepath.Join(dir, "live.ts")
	touch(t, path, time.Hour)

	_, rs, err := st.SetRestream(store.SetRestreamRequest{Key: "main"})
	require.NoError(t, err)
	_, out, err := st.SetOutput(store.SetOutputRequest{RestreamID: rs.ID, Dst: "file://" + path})
	require.NoError(t, err)
	res := st.SetOutputEnabled(rs.ID, out.ID, true)
	require.Equal(t, store.Applied, res)

	s := New(zap.NewNop(), st, dir, time.Minute)
	s.Sweep()

	_, err = os.Stat(path)
	assert.NoError(t, err, "a referenced enabled file:// output must survive the sweep")
}

func TestListReportsReferenceState(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(zap.NewNop(), "")
	require.NoError(t, err)
	touch(t, filepath.Join(dir, "orphan.ts"), time.Minute)

	s := New(zap.NewNop(), st, dir, time.Hour)
	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Referenced)
}
