package reconciler

import (
	"sync"
	"time"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

// DefaultPreemptionDelay is how long a higher-priority Failover child must
// stay reachable before it preempts the currently active one back, per
// §3's failover priority ordering: switching away from a working backup
// the instant the primary flickers back online would thrash the output.
const DefaultPreemptionDelay = 10 * time.Second

// FailoverElector tracks, per Restream, which Failover child currently
// supplies the local ingest slot the Forward unit reads from. The first
// reachable child (by declared priority order) is used; on failure the
// next reachable one is attempted; an earlier, higher-priority child only
// preempts back once it has stayed reachable for the configured delay.
type FailoverElector struct {
	preemptionDelay time.Duration

	mu    sync.Mutex
	state map[restream.ID]*election
}

type election struct {
	activeIdx      int
	recoveredSince map[int]time.Time
}

// NewFailoverElector constructs an elector using the given preemption
// delay.
func NewFailoverElector(preemptionDelay time.Duration) *FailoverElector {
	return &FailoverElector{
		preemptionDelay: preemptionDelay,
		state:           make(map[restream.ID]*election),
	}
}

// Elect returns the currently active Failover child of in for restreamID,
// given now, applying the priority-with-hysteresis rule above. in.Src
// must be restream.SourceFailover and in.Failover non-empty; callers must
// check that before calling.
func (e *FailoverElector) Elect(restreamID restream.ID, in *restream.Input, now time.Time) *restream.Input {
	e.mu.Lock()
	defer e.mu.Unlock()

	leaves := in.Failover
	reachable := make([]bool, len(leaves))
	for i := range leaves {
		reachable[i] = leafReachable(&leaves[i])
	}

	es, ok := e.state[restreamID]
	if !ok {
		es = &election{activeIdx: -1, recoveredSince: make(map[int]time.Time)}
		e.state[restreamID] = es
	}

	if es.activeIdx < 0 || es.activeIdx >= len(leaves) || !reachable[es.activeIdx] {
		es.activeIdx = firstReachable(reachable)
		es.recoveredSince = make(map[int]time.Time)
		return &leaves[es.activeIdx]
	}

	for i := 0; i < es.activeIdx; i++ {
		if !reachable[i] {
			delete(es.recoveredSince, i)
			continue
		}
		since, tracked := es.recoveredSince[i]
		if !tracked {
			es.recoveredSince[i] = now
			continue
		}
		if now.Sub(since) >= e.preemptionDelay {
			es.activeIdx = i
			es.recoveredSince = make(map[int]time.Time)
			break
		}
	}

	return &leaves[es.activeIdx]
}

// Prune drops election state for any restream not present in liveIDs, so
// a deleted or disabled Restream's history doesn't linger forever.
func (e *FailoverElector) Prune(liveIDs map[restream.ID]struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.state {
		if _, ok := liveIDs[id]; !ok {
			delete(e.state, id)
		}
	}
}

func leafReachable(leaf *restream.Input) bool {
	if !leaf.Enabled {
		return false
	}
	ep := leaf.RTMPEndpoint()
	return ep != nil && ep.Status == restream.StatusOnline
}

// firstReachable returns the lowest index with reachable[i] true, or 0 if
// none are, so the nominal primary is always a valid fallback even while
// every child is down.
func firstReachable(reachable []bool) int {
	for i, ok := range reachable {
		if ok {
			return i
		}
	}
	return 0
}
