package store

import (
	"context"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

// SetEndpointStatus implements the status-write side of §4.1: written
// only by the hook dispatcher and reconciler, never by the API. It does
// not bump the version if the value is unchanged.
func (s *Store) SetEndpointStatus(restreamID, endpointID restream.ID, status restream.Status) Result {
	res, _ := s.SetEndpointStatusCtx(context.Background(), restreamID, endpointID, status)
	return res
}

// SetEndpointStatusCtx is SetEndpointStatus's context-aware form. The hook
// dispatcher binds this to the request's deadline (hooks.WithDeadline),
// so a write stalled behind another writer never holds the RTMP server's
// synchronous callback past that deadline: the call returns ctx.Err()
// instead of blocking further.
func (s *Store) SetEndpointStatusCtx(ctx context.Context, restreamID, endpointID restream.ID, status restream.Status) (Result, error) {
	return s.commitCtx(ctx, func(draft *State) (Result, error) {
		r := FindRestream(draft, restreamID)
		if r == nil {
			return NotFound, nil
		}
		ep, _ := FindEndpoint(r, endpointID)
		if ep == nil {
			return NotFound, nil
		}
		if ep.Status == status {
			return NoChange, nil
		}
		ep.Status = status
		return Applied, nil
	})
}

// SetOutputStatus is written by the reconciler as a TranscoderUnit's
// observable status transitions.
func (s *Store) SetOutputStatus(restreamID, outputID restream.ID, status restream.Status) Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		r := FindRestream(draft, restreamID)
		if r == nil {
			return NotFound, nil
		}
		o := FindOutput(r, outputID)
		if o == nil {
			return NotFound, nil
		}
		if o.Status == status {
			return NoChange, nil
		}
		o.Status = status
		return Applied, nil
	})
	return res
}

// SetMixinStatus is written by the reconciler as a Mixin's companion
// voice-chat feeder transitions.
func (s *Store) SetMixinStatus(restreamID, outputID, mixinID restream.ID, status restream.Status) Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		r := FindRestream(draft, restreamID)
		if r == nil {
			return NotFound, nil
		}
		o := FindOutput(r, outputID)
		if o == nil {
			return NotFound, nil
		}
		m := FindMixin(o, mixinID)
		if m == nil {
			return NotFound, nil
		}
		if m.Status == status {
			return NoChange, nil
		}
		m.Status = status
		return Applied, nil
	})
	return res
}

// DemoteAllInputEndpoints drops every RTMP/HLS endpoint that is currently
// Online to Initializing. Called by the supervisor around a non-reload
// RTMP server restart, where a hook re-delivery is expected shortly
// (§C.6): a client whose publisher survives the restart is expected to
// reconnect and re-fire on_publish before SettleUnconfirmedInputEndpoints
// runs.
func (s *Store) DemoteAllInputEndpoints() Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		changed := false
		for ri := range draft.Restreams {
			if demoteInput(&draft.Restreams[ri].Input, restream.StatusOnline, restream.StatusInitializing) {
				changed = true
			}
		}
		if !changed {
			return NoChange, nil
		}
		return Applied, nil
	})
	return res
}

// SettleUnconfirmedInputEndpoints drops every endpoint still Initializing
// to Offline. Called after the restart-debounce grace window elapses, so
// an endpoint whose on_publish never re-arrived doesn't stay
// Initializing forever.
func (s *Store) SettleUnconfirmedInputEndpoints() Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		changed := false
		for ri := range draft.Restreams {
			if demoteInput(&draft.Restreams[ri].Input, restream.StatusInitializing, restream.StatusOffline) {
				changed = true
			}
		}
		if !changed {
			return NoChange, nil
		}
		return Applied, nil
	})
	return res
}

// demoteInput walks in and every failover leaf beneath it, moving any
// endpoint at from to to. Reports whether anything changed.
func demoteInput(in *restream.Input, from, to restream.Status) bool {
	changed := false
	for i := range in.Endpoints {
		if in.Endpoints[i].Status == from {
			in.Endpoints[i].Status = to
			changed = true
		}
	}
	for i := range in.Failover {
		if demoteInput(&in.Failover[i], from, to) {
			changed = true
		}
	}
	return changed
}
