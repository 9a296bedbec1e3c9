package graphql

import (
	"context"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
	"github.com/ephyr-go/restreamer/internal/store"
)

// MixResolver backs the mix schema (§4.7): a single Output and its
// tuning mutations, gated by the output password rather than the main
// one. It shares the same Store as the client resolver — the restriction
// is at the schema/auth boundary, not a separate data path.
type MixResolver struct {
	store *store.Store
}

// NewMixResolver constructs a MixResolver over st.
func NewMixResolver(st *store.Store) *MixResolver {
	return &MixResolver{store: st}
}

func (r *MixResolver) Output(args struct{ RestreamID, OutputID graphql.ID }) *outputView {
	snap := r.store.Snapshot()
	rs := store.FindRestream(snap.State, restream.ID(args.RestreamID))
	if rs == nil {
		return nil
	}
	o := store.FindOutput(rs, restream.ID(args.OutputID))
	if o == nil {
		return nil
	}
	return &outputView{*o}
}

func (r *MixResolver) TuneVolume(args struct {
	RestreamID, OutputID graphql.ID
	MixinID              *graphql.ID
	Level                int32
	Muted                bool
}) (MutationResult, error) {
	mixinID := restream.ID("")
	if args.MixinID != nil {
		mixinID = restream.ID(*args.MixinID)
	}
	res, err := r.store.TuneVolume(restream.ID(args.RestreamID), restream.ID(args.OutputID), mixinID, int(args.Level), args.Muted)
	if err != nil {
		return "", err
	}
	return mustResult(res), nil
}

func (r *MixResolver) TuneDelay(args struct {
	RestreamID, OutputID, MixinID graphql.ID
	DelayMs                       int32
}) (MutationResult, error) {
	res, err := r.store.TuneDelay(restream.ID(args.RestreamID), restream.ID(args.OutputID), restream.ID(args.MixinID), time.Duration(args.DelayMs)*time.Millisecond)
	if err != nil {
		return "", err
	}
	return mustResult(res), nil
}

func (r *MixResolver) TuneSidechain(args struct {
	RestreamID, OutputID, MixinID graphql.ID
	Sidechain                     bool
}) (MutationResult, error) {
	res, err := r.store.TuneSidechain(restream.ID(args.RestreamID), restream.ID(args.OutputID), restream.ID(args.MixinID), args.Sidechain)
	if err != nil {
		return "", err
	}
	return mustResult(res), nil
}

// Subscription.outputUpdates streams the named Output on every state
// version in which it still exists; the stream ends (not errors) once
// the Output or its Restream is removed.
func (r *MixResolver) OutputUpdates(ctx context.Context, args struct{ RestreamID, OutputID graphql.ID }) <-chan *outputView {
	upstream := r.store.Subscribe(ctx)
	out := make(chan *outputView)
	go func() {
		defer close(out)
		for snap := range upstream {
			rs := store.FindRestream(snap.State, restream.ID(args.RestreamID))
			if rs == nil {
				return
			}
			o := store.FindOutput(rs, restream.ID(args.OutputID))
			if o == nil {
				return
			}
			select {
			case out <- &outputView{*o}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
