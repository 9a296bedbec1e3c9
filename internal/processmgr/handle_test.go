package processmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSpawnCapturesStderrAndReportsExit(t *testing.T) {
	h, err := Spawn(zap.NewNop(), []string{"sh", "-c", "echo one 1>&2; echo two 1>&2"}, nil, nil)
	require.NoError(t, err)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("process did not exit in time")
	}

	assert.NoError(t, h.ExitErr())
	assert.Equal(t, []string{"two", "one"}, h.Logs(0))
}

func TestSpawnRejectsEmptyArgv(t *testing.T) {
	_, err := Spawn(zap.NewNop(), nil, nil, nil)
	assert.Error(t, err)
}

func TestSpawnInvokesOnLineForEveryStderrLine(t *testing.T) {
	var seen []string
	h, err := Spawn(zap.NewNop(), []string{"sh", "-c", "echo one 1>&2; echo two 1>&2"}, nil, func(line string) {
		seen = append(seen, line)
	})
	require.NoError(t, err)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("process did not exit in time")
	}
	assert.Equal(t, []string{"one", "two"}, seen, "onLine sees lines in arrival order, unlike Logs' newest-first")
}

func TestLogsReadsNewestFirstAndWrapsAtCapacity(t *testing.T) {
	h, err := Spawn(zap.NewNop(), []string{"sh", "-c", "i=0; while [ $i -lt 520 ]; do echo $i 1>&2; i=$((i+1)); done"}, nil, nil)
	require.NoError(t, err)

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit in time")
	}

	all := h.Logs(0)
	assert.Len(t, all, 500, "the ring buffer caps at its fixed capacity")
	assert.Equal(t, "519", all[0], "newest entry first")
	assert.Equal(t, "20", all[len(all)-1], "oldest surviving entry is the 500th-from-last append")

	assert.Len(t, h.Logs(2), 2)
}

func TestLogsReadsNilBeforeAnyOutput(t *testing.T) {
	h, err := Spawn(zap.NewNop(), []string{"sleep", "5"}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, h.Logs(10))
	h.Kill()
}

func TestStopSignalsGracefulExit(t *testing.T) {
	h, err := Spawn(zap.NewNop(), []string{"sh", "-c", "trap 'exit 0' TERM; sleep 5 & wait"}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.Stop(ctx)

	select {
	case <-h.Done():
	default:
		t.Fatal("Stop returned before the process exited")
	}
}

func TestKillTerminatesImmediately(t *testing.T) {
	h, err := Spawn(zap.NewNop(), []string{"sleep", "5"}, nil, nil)
	require.NoError(t, err)

	h.Kill()

	select {
	case <-h.Done():
	default:
		t.Fatal("Kill returned before the process exited")
	}
	assert.Error(t, h.ExitErr(), "a SIGKILL'd process reports a non-nil wait error")
}
