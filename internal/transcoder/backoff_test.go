package transcoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesUpToMax(t *testing.T) {
	b := newBackoff()
	b.MinDelay = 10 * time.Millisecond
	b.MaxDelay = 100 * time.Millisecond
	b.StableAfter = time.Second

	var prev time.Duration
	for i := 0; i < 10; i++ {
		d := b.next()
		require.GreaterOrEqual(t, d, prev)
		require.LessOrEqual(t, d, b.MaxDelay+b.MaxDelay/5)
		prev = b.cur
	}
	assert.Equal(t, b.MaxDelay, b.cur)
}

func TestBackoffResetsAfterStableUptime(t *testing.T) {
	b := newBackoff()
	b.MinDelay = 10 * time.Millisecond
	b.MaxDelay = time.Second
	b.StableAfter = 5 * time.Second

	b.next()
	b.next()
	b.next()
	require.Greater(t, b.cur, b.MinDelay)

	b.recordUptime(6 * time.Second)
	assert.Equal(t, time.Duration(0), b.cur)
}

func TestBackoffDoesNotResetOnShortUptime(t *testing.T) {
	b := newBackoff()
	b.MinDelay = 10 * time.Millisecond
	b.StableAfter = 5 * time.Second

	b.next()
	before := b.cur
	b.recordUptime(time.Second)
	assert.Equal(t, before, b.cur)
}
