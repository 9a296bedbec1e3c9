package hooks

import (
	"sync"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

// ClientCounter tracks concurrent playback sessions per endpoint. It is
// runtime-only scratch state, the same as Dispatcher.publishers: a lightweight
// supplement to the dashboard's read-only view, never persisted and never
// consulted by any mutation.
type ClientCounter struct {
	mu      sync.Mutex
	byToken map[string]restream.ID
	counts  map[restream.ID]int
}

// NewClientCounter constructs an empty ClientCounter.
func NewClientCounter() *ClientCounter {
	return &ClientCounter{
		byToken: make(map[string]restream.ID),
		counts:  make(map[restream.ID]int),
	}
}

// Inc records a new playback session, keyed by client_id, against
// endpointID.
func (c *ClientCounter) Inc(clientID string, endpointID restream.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byToken[clientID] = endpointID
	c.counts[endpointID]++
}

// Dec ends the playback session recorded for clientID, if any.
func (c *ClientCounter) Dec(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byToken[clientID]
	if !ok {
		return
	}
	delete(c.byToken, clientID)
	c.counts[id]--
	if c.counts[id] <= 0 {
		delete(c.counts, id)
	}
}

// Snapshot returns a copy of the current per-endpoint counts.
func (c *ClientCounter) Snapshot() map[restream.ID]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[restream.ID]int, len(c.counts))
	for id, n := range c.counts {
		out[id] = n
	}
	return out
}
