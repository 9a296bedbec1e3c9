// Package transcoder runs one ffmpeg process per enabled Output: the
// TranscoderUnit owns a processmgr.Handle, restarts it on
// crash with a backing-off delay, and reports its observed health back
// through a status callback rather than owning any state-document access
// itself.
package transcoder

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"syscall"
	"time"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
	"github.com/ephyr-go/restreamer/internal/processmgr"
	"github.com/ephyr-go/restreamer/internal/teamspeak"
	"go.uber.org/zap"
)

// progressLine matches ffmpeg's periodic stats line, printed to stderr
// once it is actually producing output: "frame=... time=00:00:01.00
// bitrate=...". A freshly spawned ffmpeg prints its banner and stream
// mapping first, so this only fires once the encode is genuinely
// flowing, per the Online status's meaning.
var progressLine = regexp.MustCompile(`\btime=\d\d:\d\d:\d\d`)

// StartGrace bounds how long a caller should wait for a freshly spawned
// Unit to reach StatusOnline before deciding the spawn failed, e.g. when
// deciding whether a restart may safely retire the unit it replaces.
const StartGrace = 30 * time.Second

// MixinFeed names one voice-chat companion this Unit must keep alive
// alongside its ffmpeg process: a named pipe at PipePath fed by a
// teamspeak.Feeder reading from SrcURL, which ffmpeg is expected to read
// as a raw-audio input in place of SrcURL itself.
type MixinFeed struct {
	MixinID  restream.ID
	SrcURL   string
	PipePath string
}

// Unit supervises one transcoding process for the lifetime of an enabled
// Output, plus any Mixin voice-chat feeder companions the Output's mixin
// list names.
type Unit struct {
	log      *zap.Logger
	argv     []string
	env      []string
	mixins   []MixinFeed
	onStatus func(restream.Status)
	onMixin  func(restream.ID, restream.Status)

	cancel context.CancelFunc
	done   chan struct{}

	started     chan struct{}
	startedOnce sync.Once

	handleMu sync.Mutex
	handle   *processmgr.Handle

	statusMu sync.Mutex
	status   restream.Status

	feeders map[restream.ID]*teamspeak.Feeder
}

// Start spawns the supervision goroutine and returns immediately. argv is
// re-used verbatim on every restart; a shape change (new mixin, new
// volume) requires stopping this Unit and starting a new one, per the
// reconciler's effective-command comparison.
//
// mixins names every voice-chat companion this Unit must keep alive for
// its own lifetime, independent of the ffmpeg process's own restarts:
// each names a pipe path that is created before ffmpeg is first spawned
// and torn down only when the Unit itself stops. onMixinStatus, if
// non-nil, reports each companion's connect/reconnect transitions.
func Start(log *zap.Logger, argv, env []string, mixins []MixinFeed, onStatus func(restream.Status), onMixinStatus func(restream.ID, restream.Status)) *Unit {
	ctx, cancel := context.WithCancel(context.Background())
	u := &Unit{
		log:      log,
		argv:     argv,
		env:      env,
		mixins:   mixins,
		onStatus: onStatus,
		onMixin:  onMixinStatus,
		cancel:   cancel,
		done:     make(chan struct{}),
		started:  make(chan struct{}),
		feeders:  make(map[restream.ID]*teamspeak.Feeder),
	}
	u.setupMixinPipes()
	u.startFeeders()
	go u.supervise(ctx)
	return u
}

// setupMixinPipes creates the named pipe for every companion feeder
// before ffmpeg is first spawned, so ffmpeg's own -i open doesn't race a
// missing file. An existing pipe (left over from a prior Unit that used
// the same path) is left in place.
func (u *Unit) setupMixinPipes() {
	for _, m := range u.mixins {
		if m.PipePath == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(m.PipePath), 0o755); err != nil {
			u.log.Error("mixin pipe directory create failed", zap.String("path", m.PipePath), zap.Error(err))
			continue
		}
		if err := syscall.Mkfifo(m.PipePath, 0o600); err != nil && !os.IsExist(err) {
			u.log.Error("mixin pipe create failed", zap.String("path", m.PipePath), zap.Error(err))
		}
	}
}

// startFeeders starts one teamspeak.Feeder per companion. A feeder that
// fails to start (invalid URL) is logged and skipped rather than failing
// the whole Unit; its pipe then never gets a writer, so ffmpeg blocks
// opening it as an input and the Unit does not reach Online.
func (u *Unit) startFeeders() {
	for _, m := range u.mixins {
		if m.PipePath == "" {
			continue
		}
		mixinID := m.MixinID
		f, err := teamspeak.Start(u.log, m.SrcURL, m.PipePath, func(connected bool) {
			if u.onMixin == nil {
				return
			}
			s := restream.StatusUnstable
			if connected {
				s = restream.StatusOnline
			}
			u.onMixin(mixinID, s)
		})
		if err != nil {
			u.log.Error("mixin feeder start failed", zap.String("mixin", string(mixinID)), zap.Error(err))
			continue
		}
		u.feeders[mixinID] = f
	}
}

func (u *Unit) stopFeeders() {
	for _, f := range u.feeders {
		f.Stop()
	}
}

func (u *Unit) teardownMixinPipes() {
	for _, m := range u.mixins {
		if m.PipePath == "" {
			continue
		}
		if err := os.Remove(m.PipePath); err != nil && !os.IsNotExist(err) {
			u.log.Warn("mixin pipe remove failed", zap.String("path", m.PipePath), zap.Error(err))
		}
	}
}

func (u *Unit) supervise(ctx context.Context) {
	defer close(u.done)
	b := newBackoff()
	u.setStatus(restream.StatusInitializing)

	for {
		select {
		case <-ctx.Done():
			u.setStatus(restream.StatusOffline)
			return
		default:
		}

		var onlineOnce sync.Once
		onLine := func(line string) {
			if progressLine.MatchString(line) {
				onlineOnce.Do(func() { u.setStatus(restream.StatusOnline) })
			}
		}

		h, err := processmgr.Spawn(u.log, u.argv, u.env, onLine)
		if err != nil {
			u.log.Error("spawn failed", zap.Error(err))
			u.setStatus(restream.StatusUnstable)
			if !u.sleep(ctx, b.next()) {
				return
			}
			continue
		}

		u.handleMu.Lock()
		u.handle = h
		u.handleMu.Unlock()

		start := time.Now()

		select {
		case <-ctx.Done():
			h.Stop(ctx)
			u.setStatus(restream.StatusOffline)
			return
		case <-h.Done():
			uptime := time.Since(start)
			b.recordUptime(uptime)
			if uptime < b.StableAfter {
				u.setStatus(restream.StatusUnstable)
				if !u.sleep(ctx, b.next()) {
					return
				}
			} else {
				u.setStatus(restream.StatusInitializing)
			}
		}
	}
}

func (u *Unit) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (u *Unit) setStatus(s restream.Status) {
	u.statusMu.Lock()
	u.status = s
	u.statusMu.Unlock()

	if u.onStatus != nil {
		u.onStatus(s)
	}

	if s == restream.StatusOnline || s == restream.StatusUnstable {
		u.startedOnce.Do(func() { close(u.started) })
	}
}

// Status returns the most recently observed status.
func (u *Unit) Status() restream.Status {
	u.statusMu.Lock()
	defer u.statusMu.Unlock()
	return u.status
}

// WaitStart blocks until the Unit's underlying process has reached its
// first Online or Unstable status, or timeout elapses, and reports
// whether it reached Online. A caller replacing an old unit with this one
// can use this to decide whether the swap is safe.
func (u *Unit) WaitStart(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-u.started:
		return u.Status() == restream.StatusOnline
	case <-t.C:
		return false
	}
}

// Stop signals the supervision goroutine to shut down the current
// process (if any), blocks until it has exited, then stops every
// companion feeder and removes their pipes.
func (u *Unit) Stop() {
	u.cancel()
	<-u.done
	u.stopFeeders()
	u.teardownMixinPipes()
}

// Logs returns up to lines recent stderr lines from the currently (or
// most recently) running process, newest first.
func (u *Unit) Logs(lines int) []string {
	u.handleMu.Lock()
	h := u.handle
	u.handleMu.Unlock()
	if h == nil {
		return nil
	}
	return h.Logs(lines)
}

// Argv returns the argv this Unit was started with, so the reconciler can
// compare it against a freshly computed desired command.
func (u *Unit) Argv() []string { return u.argv }
