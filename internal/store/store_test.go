package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(zap.NewNop(), "")
	require.NoError(t, err)
	return st
}

func TestSetRestreamCreatesAndUpdates(t *testing.T) {
	st := newTestStore(t)

	res, rs, err := st.SetRestream(SetRestreamRequest{Key: "main", Label: "Main feed"})
	require.NoError(t, err)
	require.Equal(t, Applied, res)
	require.NotNil(t, rs)
	assert.Equal(t, restream.Key("main"), rs.Key)
	assert.True(t, rs.Enabled)
	assert.Equal(t, restream.SourcePush, rs.Input.Src)

	id := rs.ID
	res, rs2, err := st.SetRestream(SetRestreamRequest{ID: &id, Key: "main", Label: "Renamed"})
	require.NoError(t, err)
	require.Equal(t, Applied, res)
	assert.Equal(t, "Renamed", string(rs2.Label))
	assert.Equal(t, id, rs2.ID, "update must preserve identity")
}

func TestSetRestreamRejectsDuplicateKey(t *testing.T) {
	st := newTestStore(t)
	_, _, err := st.SetRestream(SetRestreamRequest{Key: "main"})
	require.NoError(t, err)

	res, _, err := st.SetRestream(SetRestreamRequest{Key: "main"})
	require.NoError(t, err)
	assert.Equal(t, Conflict, res)
}

func TestSetRestreamUnknownIDIsNotFound(t *testing.T) {
	st := newTestStore(t)
	missing := restream.NewID()
	res, _, err := st.SetRestream(SetRestreamRequest{ID: &missing, Key: "main"})
	require.NoError(t, err)
	assert.Equal(t, NotFound, res)
}

func TestSetRestreamPreservesEndpointIdentityAcrossBackupChanges(t *testing.T) {
	st := newTestStore(t)
	_, rs, err := st.SetRestream(SetRestreamRequest{Key: "main"})
	require.NoError(t, err)
	originalEndpointID := rs.Input.Endpoints[0].ID
	id := rs.ID

	_, rs2, err := st.SetRestream(SetRestreamRequest{
		ID:      &id,
		Key:     "main",
		Backups: []BackupSpec{{Key: "backup", Src: "rtmp://example.com/live/backup"}},
	})
	require.NoError(t, err)
	require.Equal(t, restream.SourceFailover, rs2.Input.Src)
	require.Len(t, rs2.Input.Failover, 2)
	assert.Equal(t, originalEndpointID, rs2.Input.Failover[0].Endpoints[0].ID)
}

func TestRemoveRestream(t *testing.T) {
	st := newTestStore(t)
	_, rs, _ := st.SetRestream(SetRestreamRequest{Key: "main"})

	assert.Equal(t, Applied, st.RemoveRestream(rs.ID))
	assert.Equal(t, NotFound, st.RemoveRestream(rs.ID))
	assert.Nil(t, FindRestream(st.Snapshot().State, rs.ID))
}

func TestSetRestreamEnabledIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	_, rs, _ := st.SetRestream(SetRestreamRequest{Key: "main"})

	assert.Equal(t, NoChange, st.SetRestreamEnabled(rs.ID, true))
	assert.Equal(t, Applied, st.SetRestreamEnabled(rs.ID, false))
	assert.Equal(t, NoChange, st.SetRestreamEnabled(rs.ID, false))
}

func TestSetOutputAndTuneVolume(t *testing.T) {
	st := newTestStore(t)
	_, rs, _ := st.SetRestream(SetRestreamRequest{Key: "main"})

	res, out, err := st.SetOutput(SetOutputRequest{
		RestreamID: rs.ID,
		Dst:        "rtmp://youtube.com/live/xyz",
		Label:      "YouTube",
	})
	require.NoError(t, err)
	require.Equal(t, Applied, res)
	require.NotNil(t, out)

	res2, err := st.TuneVolume(rs.ID, out.ID, "", 150, false)
	require.NoError(t, err)
	assert.Equal(t, Applied, res2)

	snap := st.Snapshot()
	updated := FindOutput(FindRestream(snap.State, rs.ID), out.ID)
	require.NotNil(t, updated)
	assert.Equal(t, uint16(150), updated.Volume.Level)
}

func TestSetPasswordRequiresOldOnceSet(t *testing.T) {
	st := newTestStore(t)

	res, err := st.SetPassword(PasswordMain, "", "secret1")
	require.NoError(t, err)
	assert.Equal(t, Applied, res)

	_, err = st.SetPassword(PasswordMain, "", "secret2")
	assert.ErrorIs(t, err, ErrNoOldPassword)

	_, err = st.SetPassword(PasswordMain, "wrong", "secret2")
	assert.ErrorIs(t, err, ErrWrongOldPassword)

	res, err = st.SetPassword(PasswordMain, "secret1", "secret2")
	require.NoError(t, err)
	assert.Equal(t, Applied, res)
}

func TestSubscribeDeliversCurrentAndFutureSnapshots(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := st.Subscribe(ctx)
	initial := <-ch
	assert.Equal(t, uint64(0), initial.Version)

	_, _, err := st.SetRestream(SetRestreamRequest{Key: "main"})
	require.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, uint64(1), snap.Version)
		assert.Len(t, snap.State.Restreams, 1)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for committed snapshot")
	}
}

func TestSubscribeClosesOnContextCancel(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch := st.Subscribe(ctx)
	<-ch // drain the primed snapshot
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after cancel")
	}
}

func TestSetEndpointStatusCtxAbortsOnAlreadyCancelledContext(t *testing.T) {
	st := newTestStore(t)
	_, rs, _ := st.SetRestream(SetRestreamRequest{Key: "main"})
	epID := rs.Input.Endpoints[0].ID

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.SetEndpointStatusCtx(ctx, rs.ID, epID, restream.StatusOnline)
	assert.ErrorIs(t, err, context.Canceled)

	updated := FindRestream(st.Snapshot().State, rs.ID)
	assert.Equal(t, restream.StatusOffline, updated.Input.Endpoints[0].Status, "a cancelled context must not commit")
}

func TestDemoteAllInputEndpointsThenSettleFallsToOffline(t *testing.T) {
	st := newTestStore(t)
	_, rs, _ := st.SetRestream(SetRestreamRequest{Key: "main"})
	epID := rs.Input.Endpoints[0].ID
	require.Equal(t, Applied, st.SetEndpointStatus(rs.ID, epID, restream.StatusOnline))

	assert.Equal(t, Applied, st.DemoteAllInputEndpoints())
	updated := FindRestream(st.Snapshot().State, rs.ID)
	assert.Equal(t, restream.StatusInitializing, updated.Input.Endpoints[0].Status)

	assert.Equal(t, NoChange, st.DemoteAllInputEndpoints(), "an already-Initializing endpoint is left alone")

	assert.Equal(t, Applied, st.SettleUnconfirmedInputEndpoints())
	updated = FindRestream(st.Snapshot().State, rs.ID)
	assert.Equal(t, restream.StatusOffline, updated.Input.Endpoints[0].Status)
}

func TestSettleUnconfirmedInputEndpointsSparesReconfirmedEndpoint(t *testing.T) {
	st := newTestStore(t)
	_, rs, _ := st.SetRestream(SetRestreamRequest{Key: "main"})
	epID := rs.Input.Endpoints[0].ID
	require.Equal(t, Applied, st.SetEndpointStatus(rs.ID, epID, restream.StatusOnline))
	require.Equal(t, Applied, st.DemoteAllInputEndpoints())

	require.Equal(t, Applied, st.SetEndpointStatus(rs.ID, epID, restream.StatusOnline))

	assert.Equal(t, NoChange, st.SettleUnconfirmedInputEndpoints(), "a reconfirmed endpoint is no longer Initializing")
	updated := FindRestream(st.Snapshot().State, rs.ID)
	assert.Equal(t, restream.StatusOnline, updated.Input.Endpoints[0].Status)
}

func TestFindEndpointByAppStream(t *testing.T) {
	st := newTestStore(t)
	_, rs, _ := st.SetRestream(SetRestreamRequest{Key: "main"})

	ref, restreamEnabled, inputEnabled, ok := FindEndpointByAppStream(st.Snapshot().State, "main", "main")
	require.True(t, ok)
	assert.True(t, restreamEnabled)
	assert.True(t, inputEnabled)
	assert.Equal(t, rs.ID, ref.RestreamID)

	_, _, _, ok = FindEndpointByAppStream(st.Snapshot().State, "main", "nonexistent")
	assert.False(t, ok)
}
