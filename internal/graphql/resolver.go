package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
	"github.com/ephyr-go/restreamer/internal/store"
)

// ClientResolver backs the client schema (§4.7): full CRUD, tuning, and
// the state subscription, gated by the main password.
type ClientResolver struct {
	store *store.Store
}

// NewClientResolver constructs a ClientResolver over st.
func NewClientResolver(st *store.Store) *ClientResolver {
	return &ClientResolver{store: st}
}

func idPtr(id *graphql.ID) *restream.ID {
	if id == nil {
		return nil
	}
	rid := restream.ID(*id)
	return &rid
}

func mustResult(res store.Result) MutationResult {
	return MutationResult(res.String())
}

// Query.restreams
func (r *ClientResolver) Restreams() []restreamView {
	snap := r.store.Snapshot()
	out := make([]restreamView, len(snap.State.Restreams))
	for i, rs := range snap.State.Restreams {
		out[i] = restreamView{rs}
	}
	return out
}

// Query.restream(id)
func (r *ClientResolver) Restream(args struct{ ID graphql.ID }) *restreamView {
	snap := r.store.Snapshot()
	rs := store.FindRestream(snap.State, restream.ID(args.ID))
	if rs == nil {
		return nil
	}
	return &restreamView{*rs}
}

// Query.export(restreamId)
func (r *ClientResolver) Export(args struct{ RestreamID *graphql.ID }) (string, error) {
	specs := r.store.Export(idPtr(args.RestreamID))
	raw, err := json.Marshal(specs)
	if err != nil {
		return "", fmt.Errorf("marshal export: %w", err)
	}
	return string(raw), nil
}

type backupInput struct {
	Key string
	Src *string
}

// Mutation.setRestream
func (r *ClientResolver) SetRestream(args struct {
	ID      *graphql.ID
	Key     string
	Label   *string
	Src     *string
	Backups *[]backupInput
	WithHLS bool
}) (MutationResult, error) {
	req := store.SetRestreamRequest{
		ID:      idPtr(args.ID),
		Key:     args.Key,
		WithHLS: args.WithHLS,
	}
	if args.Label != nil {
		req.Label = *args.Label
	}
	if args.Src != nil {
		req.Src = *args.Src
	}
	if args.Backups != nil {
		for _, b := range *args.Backups {
			spec := store.BackupSpec{Key: restream.Key(b.Key)}
			if b.Src != nil {
				spec.Src = *b.Src
			}
			req.Backups = append(req.Backups, spec)
		}
	}
	res, _, err := r.store.SetRestream(req)
	if err != nil {
		return "", err
	}
	return mustResult(res), nil
}

func (r *ClientResolver) RemoveRestream(args struct{ ID graphql.ID }) MutationResult {
	return mustResult(r.store.RemoveRestream(restream.ID(args.ID)))
}

func (r *ClientResolver) EnableRestream(args struct{ ID graphql.ID }) MutationResult {
	return mustResult(r.store.SetRestreamEnabled(restream.ID(args.ID), true))
}

func (r *ClientResolver) DisableRestream(args struct{ ID graphql.ID }) MutationResult {
	return mustResult(r.store.SetRestreamEnabled(restream.ID(args.ID), false))
}

func (r *ClientResolver) EnableInput(args struct{ RestreamID, InputID graphql.ID }) MutationResult {
	return mustResult(r.store.SetInputEnabled(restream.ID(args.RestreamID), restream.ID(args.InputID), true))
}

func (r *ClientResolver) DisableInput(args struct{ RestreamID, InputID graphql.ID }) MutationResult {
	return mustResult(r.store.SetInputEnabled(restream.ID(args.RestreamID), restream.ID(args.InputID), false))
}

func (r *ClientResolver) ChangeEndpointLabel(args struct {
	RestreamID, InputID, EndpointID graphql.ID
	Label                           string
}) (MutationResult, error) {
	res, err := r.store.ChangeEndpointLabel(restream.ID(args.RestreamID), restream.ID(args.InputID), restream.ID(args.EndpointID), args.Label)
	if err != nil {
		return "", err
	}
	return mustResult(res), nil
}

func (r *ClientResolver) SetOutput(args struct {
	RestreamID graphql.ID
	ID         *graphql.ID
	Dst        string
	Label      *string
	PreviewURL *string
	MixinSrcs  *[]string
}) (MutationResult, error) {
	req := store.SetOutputRequest{
		RestreamID: restream.ID(args.RestreamID),
		ID:         idPtr(args.ID),
		Dst:        args.Dst,
	}
	if args.Label != nil {
		req.Label = *args.Label
	}
	if args.PreviewURL != nil {
		req.PreviewURL = *args.PreviewURL
	}
	if args.MixinSrcs != nil {
		req.MixinSrcs = *args.MixinSrcs
	}
	res, _, err := r.store.SetOutput(req)
	if err != nil {
		return "", err
	}
	return mustResult(res), nil
}

func (r *ClientResolver) RemoveOutput(args struct{ RestreamID, ID graphql.ID }) MutationResult {
	return mustResult(r.store.RemoveOutput(restream.ID(args.RestreamID), restream.ID(args.ID)))
}

func (r *ClientResolver) EnableOutput(args struct{ RestreamID, ID graphql.ID }) MutationResult {
	return mustResult(r.store.SetOutputEnabled(restream.ID(args.RestreamID), restream.ID(args.ID), true))
}

func (r *ClientResolver) DisableOutput(args struct{ RestreamID, ID graphql.ID }) MutationResult {
	return mustResult(r.store.SetOutputEnabled(restream.ID(args.RestreamID), restream.ID(args.ID), false))
}

func (r *ClientResolver) EnableAllOutputs(args struct{ RestreamID graphql.ID }) MutationResult {
	return mustResult(r.store.SetAllOutputsEnabled(restream.ID(args.RestreamID), true))
}

func (r *ClientResolver) DisableAllOutputs(args struct{ RestreamID graphql.ID }) MutationResult {
	return mustResult(r.store.SetAllOutputsEnabled(restream.ID(args.RestreamID), false))
}

func (r *ClientResolver) EnableAllOutputsOfRestreams() MutationResult {
	return mustResult(r.store.SetAllOutputsEnabledGlobal(true))
}

func (r *ClientResolver) DisableAllOutputsOfRestreams() MutationResult {
	return mustResult(r.store.SetAllOutputsEnabledGlobal(false))
}

func (r *ClientResolver) TuneVolume(args struct {
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

func (r *ClientResolver) TuneDelay(args struct {
	RestreamID, OutputID, MixinID graphql.ID
	DelayMs                       int32
}) (MutationResult, error) {
	res, err := r.store.TuneDelay(restream.ID(args.RestreamID), restream.ID(args.OutputID), restream.ID(args.MixinID), time.Duration(args.DelayMs)*time.Millisecond)
	if err != nil {
		return "", err
	}
	return mustResult(res), nil
}

func (r *ClientResolver) TuneSidechain(args struct {
	RestreamID, OutputID, MixinID graphql.ID
	Sidechain                     bool
}) (MutationResult, error) {
	res, err := r.store.TuneSidechain(restream.ID(args.RestreamID), restream.ID(args.OutputID), restream.ID(args.MixinID), args.Sidechain)
	if err != nil {
		return "", err
	}
	return mustResult(res), nil
}

func (r *ClientResolver) SetPassword(args struct {
	Kind string
	Old  *string
	New  *string
}) (MutationResult, error) {
	kind := store.PasswordMain
	if args.Kind == "OUTPUT" {
		kind = store.PasswordOutput
	}
	var old, newPass string
	if args.Old != nil {
		old = *args.Old
	}
	if args.New != nil {
		newPass = *args.New
	}
	res, err := r.store.SetPassword(kind, old, newPass)
	if err != nil {
		return "", err
	}
	return mustResult(res), nil
}

func (r *ClientResolver) SetSettings(args struct {
	Title              *string
	DeleteConfirmation *bool
	EnableConfirmation *bool
}) MutationResult {
	return mustResult(r.store.SetSettings(args.Title, args.DeleteConfirmation, args.EnableConfirmation))
}

func (r *ClientResolver) ImportRestreams(args struct {
	Replace bool
	Spec    string
}) (MutationResult, error) {
	var specs []store.RestreamSpec
	if err := json.Unmarshal([]byte(args.Spec), &specs); err != nil {
		return "", fmt.Errorf("unmarshal import spec: %w", err)
	}
	res, err := r.store.Import(specs, args.Replace)
	if err != nil {
		return "", err
	}
	return mustResult(res), nil
}

// Subscription.state streams a stateView on every committed version,
// closing when ctx (the request's context) is cancelled — graphql-go
// drives the channel until the client disconnects or the resolver
// context is done.
func (r *ClientResolver) State(ctx context.Context) <-chan *stateView {
	upstream := r.store.Subscribe(ctx)
	out := make(chan *stateView)
	go func() {
		defer close(out)
		for snap := range upstream {
			v := &stateView{snap.State}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

type stateView struct{ st *store.State }

func (v *stateView) Restreams() []restreamView {
	out := make([]restreamView, len(v.st.Restreams))
	for i, rs := range v.st.Restreams {
		out[i] = restreamView{rs}
	}
	return out
}

func (v *stateView) Title() *string {
	return v.st.Settings.Title
}

func (v *stateView) DeleteConfirmation() *bool {
	return v.st.Settings.DeleteConfirmation
}

func (v *stateView) EnableConfirmation() *bool {
	return v.st.Settings.EnableConfirmation
}
