package transcoder

import (
	"math/rand"
	"time"
)

// backoff implements the restart policy of a TranscoderUnit (the teamspeak
// feeder does not use it; it has its own reconnect delay without jitter or
// a stable-run window): start at MinDelay, double on every consecutive
// failure up to MaxDelay, add up to 20% jitter, and reset to MinDelay
// once a run has stayed up for StableAfter.
type backoff struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	StableAfter time.Duration

	cur time.Duration
}

func newBackoff() *backoff {
	return &backoff{
		MinDelay:    50 * time.Millisecond,
		MaxDelay:    60 * time.Second,
		StableAfter: 15 * time.Second,
	}
}

// next returns the delay to wait before the next spawn attempt, and
// advances the internal state for the following call.
func (b *backoff) next() time.Duration {
	if b.cur == 0 {
		b.cur = b.MinDelay
	}
	d := b.cur
	b.cur *= 2
	if b.cur > b.MaxDelay {
		b.cur = b.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 5)) //nolint:gosec // restart jitter, not security-sensitive
	return d + jitter
}

// recordUptime resets the backoff if the process stayed up for at least
// StableAfter, so a transient crash right after a long stable run doesn't
// inherit a maxed-out delay.
func (b *backoff) recordUptime(uptime time.Duration) {
	if uptime >= b.StableAfter {
		b.cur = 0
	}
}
