// Package reconciler subscribes to the state
// store and keeps a set of supervised TranscoderUnits in sync with the
// desired set computed from each new snapshot.
package reconciler

import (
	"context"
	"reflect"
	"sort"
	"time"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
	"github.com/ephyr-go/restreamer/internal/store"
	"github.com/ephyr-go/restreamer/internal/transcoder"
	"go.uber.org/zap"
)

type liveUnit struct {
	unit *transcoder.Unit
	key  UnitKey
}

// Reconciler owns every live TranscoderUnit. It is not safe for
// concurrent Run calls; Run is meant to be the sole owner of the live
// set for its lifetime.
type Reconciler struct {
	log          *zap.Logger
	store        *store.Store
	mixinPipeDir string
	elector      *FailoverElector
	startGrace   time.Duration

	live map[UnitKey]*liveUnit
}

// New constructs a Reconciler bound to st. mixinPipeDir roots the named
// pipes created for ts:// voice-chat mixins.
func New(log *zap.Logger, st *store.Store, mixinPipeDir string) *Reconciler {
	return &Reconciler{
		log:          log.Named("reconciler"),
		store:        st,
		mixinPipeDir: mixinPipeDir,
		elector:      NewFailoverElector(DefaultPreemptionDelay),
		startGrace:   transcoder.StartGrace,
		live:         make(map[UnitKey]*liveUnit),
	}
}

// Run subscribes to st and reconciles on every snapshot until ctx is
// cancelled, at which point every live unit is stopped before Run
// returns.
func (r *Reconciler) Run(ctx context.Context) {
	sub := r.store.Subscribe(ctx)
	for {
		select {
		case snap, ok := <-sub:
			if !ok {
				r.stopAll()
				return
			}
			r.reconcile(snap.State)
		case <-ctx.Done():
			r.stopAll()
			return
		}
	}
}

func (r *Reconciler) stopAll() {
	keys := r.sortedLiveKeys()
	for _, k := range keys {
		r.live[k].unit.Stop()
		delete(r.live, k)
	}
}

func (r *Reconciler) sortedLiveKeys() []UnitKey {
	keys := make([]UnitKey, 0, len(r.live))
	for k := range r.live {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// reconcile runs the diff-and-apply algorithm of §4.2: removals before
// additions before restarts, each ordered by composite identity.
func (r *Reconciler) reconcile(st *store.State) {
	r.elector.Prune(restreamIDSet(st))
	desired := ComputeDesired(st, r.elector, r.mixinPipeDir) // already sorted by key
	desiredByKey := make(map[UnitKey]DesiredUnit, len(desired))
	for _, d := range desired {
		desiredByKey[d.Key] = d
	}

	var removals, restarts []UnitKey
	for _, k := range r.sortedLiveKeys() {
		d, ok := desiredByKey[k]
		if !ok {
			removals = append(removals, k)
			continue
		}
		if !reflect.DeepEqual(d.Argv, r.live[k].unit.Argv()) {
			restarts = append(restarts, k)
		}
	}

	var additions []UnitKey
	for _, d := range desired {
		if _, ok := r.live[d.Key]; !ok {
			additions = append(additions, d.Key)
		}
	}

	for _, k := range removals {
		r.live[k].unit.Stop()
		delete(r.live, k)
	}
	for _, k := range additions {
		r.spawn(desiredByKey[k])
	}
	for _, k := range restarts {
		r.applyRestart(k, desiredByKey[k])
	}
}

func restreamIDSet(st *store.State) map[restream.ID]struct{} {
	out := make(map[restream.ID]struct{}, len(st.Restreams))
	for _, r := range st.Restreams {
		out[r.ID] = struct{}{}
	}
	return out
}

func (r *Reconciler) newUnit(d DesiredUnit) *transcoder.Unit {
	key := d.Key
	onStatus := func(s restream.Status) { r.reportStatus(key, s) }
	onMixinStatus := func(mixinID restream.ID, s restream.Status) {
		r.store.SetMixinStatus(key.RestreamID, key.UnitID, mixinID, s)
	}
	return transcoder.Start(r.log, d.Argv, nil, d.Mixins, onStatus, onMixinStatus)
}

func (r *Reconciler) reportStatus(key UnitKey, s restream.Status) {
	if key.Kind == UnitForward {
		r.store.SetOutputStatus(key.RestreamID, key.UnitID, s)
	} else {
		r.store.SetEndpointStatus(key.RestreamID, key.UnitID, s)
	}
}

func (r *Reconciler) spawn(d DesiredUnit) {
	u := r.newUnit(d)
	r.live[d.Key] = &liveUnit{unit: u, key: d.Key}
}

// applyRestart replaces the live unit at k with one built from d, per
// §4.2: a shape change (new argv) means the old process must go, but only
// once its replacement has proven it can actually start. If the new unit
// fails to reach Online within startGrace, the old one is left running,
// a transient Unstable is reported, and then the old unit's own status is
// reported again, rather than tearing down a working child for a broken
// replacement.
func (r *Reconciler) applyRestart(k UnitKey, d DesiredUnit) {
	old := r.live[k]
	replacement := r.newUnit(d)

	if replacement.WaitStart(r.startGrace) {
		r.live[k] = &liveUnit{unit: replacement, key: k}
		old.unit.Stop()
		return
	}

	r.log.Warn("restart did not come online within grace period, keeping previous unit",
		zap.String("unit", k.String()))
	replacement.Stop()
	r.reportStatus(k, restream.StatusUnstable)
	r.reportStatus(k, old.unit.Status())
}
