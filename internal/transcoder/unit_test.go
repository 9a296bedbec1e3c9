package transcoder

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

type statusRecorder struct {
	mu   sync.Mutex
	seen []restream.Status
}

func (r *statusRecorder) record(s restream.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, s)
}

func (r *statusRecorder) snapshot() []restream.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]restream.Status, len(r.seen))
	copy(out, r.seen)
	return out
}

func (r *statusRecorder) waitFor(t *testing.T, s restream.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, got := range r.snapshot() {
			if got == s {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status %v never observed, saw %v", s, r.snapshot())
}

// progressLineCmd is a shell one-liner emitting an ffmpeg-style progress
// line to stderr, so a Unit gates its Online transition on it the same
// way it would against a real ffmpeg process.
const progressLineCmd = `echo "frame=1 fps=25 q=1 size=1kB time=00:00:01.00 bitrate=1kbits/s speed=1x" 1>&2`

func TestUnitReportsOnlineThenRestartsAFastFailingProcess(t *testing.T) {
	rec := &statusRecorder{}
	u := Start(zap.NewNop(), []string{"sh", "-c", progressLineCmd}, nil, nil, rec.record, nil)
	defer u.Stop()

	rec.waitFor(t, restream.StatusOnline)
	rec.waitFor(t, restream.StatusUnstable)
}

func TestUnitDoesNotReportOnlineWithoutAProgressLine(t *testing.T) {
	rec := &statusRecorder{}
	u := Start(zap.NewNop(), []string{"sleep", "1"}, nil, nil, rec.record, nil)
	defer u.Stop()

	time.Sleep(200 * time.Millisecond)
	for _, s := range rec.snapshot() {
		assert.NotEqual(t, restream.StatusOnline, s, "a process that never emits a progress indicator must not be reported Online")
	}
}

func TestUnitStopSetsOffline(t *testing.T) {
	rec := &statusRecorder{}
	u := Start(zap.NewNop(), []string{"sh", "-c", progressLineCmd + "; sleep 5"}, nil, nil, rec.record, nil)
	rec.waitFor(t, restream.StatusOnline)

	u.Stop()
	statuses := rec.snapshot()
	require.NotEmpty(t, statuses)
	assert.Equal(t, restream.StatusOffline, statuses[len(statuses)-1])
}

func TestUnitArgvReturnsStartArgs(t *testing.T) {
	u := Start(zap.NewNop(), []string{"sleep", "5"}, nil, nil, nil, nil)
	defer u.Stop()
	assert.Equal(t, []string{"sleep", "5"}, u.Argv())
}

func TestUnitLogsNilBeforeAnyProcessSpawned(t *testing.T) {
	u := &Unit{}
	assert.Nil(t, u.Logs(0))
}

func TestUnitWaitStartReturnsTrueOnceOnline(t *testing.T) {
	u := Start(zap.NewNop(), []string{"sh", "-c", progressLineCmd + "; sleep 5"}, nil, nil, nil, nil)
	defer u.Stop()
	assert.True(t, u.WaitStart(time.Second))
}

func TestUnitWaitStartReturnsFalseWithoutAProgressLine(t *testing.T) {
	u := Start(zap.NewNop(), []string{"sleep", "5"}, nil, nil, nil, nil)
	defer u.Stop()
	assert.False(t, u.WaitStart(200*time.Millisecond), "a live process that never confirms output flow hasn't Started")
}

func TestUnitWaitStartReturnsFalseForAnUnspawnableCommand(t *testing.T) {
	u := Start(zap.NewNop(), []string{"/no/such/binary"}, nil, nil, nil, nil)
	defer u.Stop()
	assert.False(t, u.WaitStart(time.Second))
}

func TestUnitMixinFeederCreatesItsPipeBeforeFfmpegWouldNeedIt(t *testing.T) {
	dir := t.TempDir()
	pipePath := dir + "/mix1.pcm"

	u := Start(zap.NewNop(), []string{"sleep", "5"}, nil,
		[]MixinFeed{{MixinID: restream.ID("mix1"), SrcURL: "ts://127.0.0.1:1", PipePath: pipePath}},
		nil, nil)
	defer u.Stop()

	fi, err := os.Stat(pipePath)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&os.ModeNamedPipe)

	// Open both ends so the feeder's blocking write-open unblocks and
	// Stop() doesn't hang waiting on a reader that will never arrive.
	rdwr, err := os.OpenFile(pipePath, os.O_RDWR, 0)
	if err == nil {
		defer rdwr.Close()
	}
}
