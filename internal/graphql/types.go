package graphql

import (
	graphql "github.com/graph-gophers/graphql-go"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

// MutationResult mirrors the schema's MutationResult enum: every
// mutation reports what it did (APPLIED/NO_CHANGE/NOT_FOUND/CONFLICT)
// rather than the mutated entity, since callers observe the resulting
// state through the state subscription, not the mutation's own return.
type MutationResult string

// View types wrap a domain value and expose graphql-go resolver methods
// (PascalCase of the schema field) over it. They're thin projections,
// not copies with independent state.

type restreamView struct{ r restream.Restream }

func (v restreamView) ID() graphql.ID { return graphql.ID(v.r.ID) }
func (v restreamView) Key() string   { return string(v.r.Key) }
func (v restreamView) Label() *string {
	if v.r.Label == "" {
		return nil
	}
	s := string(v.r.Label)
	return &s
}
func (v restreamView) Enabled() bool     { return v.r.Enabled }
func (v restreamView) Input() inputView  { return inputView{v.r.Input} }
func (v restreamView) Outputs() []outputView {
	out := make([]outputView, len(v.r.Outputs))
	for i, o := range v.r.Outputs {
		out[i] = outputView{o}
	}
	return out
}

type inputView struct{ i restream.Input }

func (v inputView) ID() graphql.ID { return graphql.ID(v.i.ID) }
func (v inputView) Key() string { return string(v.i.Key) }
func (v inputView) Enabled() bool { return v.i.Enabled }
func (v inputView) Src() string   { return sourceKindName(v.i.Src) }
func (v inputView) PullURL() *string {
	if v.i.PullURL == "" {
		return nil
	}
	return &v.i.PullURL
}
func (v inputView) Failover() []inputView {
	out := make([]inputView, len(v.i.Failover))
	for i, c := range v.i.Failover {
		out[i] = inputView{c}
	}
	return out
}
func (v inputView) Endpoints() []endpointView {
	out := make([]endpointView, len(v.i.Endpoints))
	for i, e := range v.i.Endpoints {
		out[i] = endpointView{e}
	}
	return out
}

func sourceKindName(k restream.SourceKind) string {
	switch k {
	case restream.SourcePush:
		return "PUSH"
	case restream.SourcePull:
		return "PULL"
	default:
		return "FAILOVER"
	}
}

func endpointKindName(k restream.EndpointKind) string {
	if k == restream.EndpointHLS {
		return "HLS"
	}
	return "RTMP"
}

func statusName(s restream.Status) string {
	switch s {
	case restream.StatusInitializing:
		return "INITIALIZING"
	case restream.StatusOnline:
		return "ONLINE"
	case restream.StatusUnstable:
		return "UNSTABLE"
	default:
		return "OFFLINE"
	}
}

type endpointView struct{ e restream.InputEndpoint }

func (v endpointView) ID() graphql.ID { return graphql.ID(v.e.ID) }
func (v endpointView) Kind() string { return endpointKindName(v.e.Kind) }
func (v endpointView) Label() *string {
	if v.e.Label == "" {
		return nil
	}
	s := string(v.e.Label)
	return &s
}
func (v endpointView) Status() string { return statusName(v.e.Status) }

type outputView struct{ o restream.Output }

func (v outputView) ID() graphql.ID { return graphql.ID(v.o.ID) }
func (v outputView) Dst() string { return v.o.Dst }
func (v outputView) Label() *string {
	if v.o.Label == "" {
		return nil
	}
	s := string(v.o.Label)
	return &s
}
func (v outputView) PreviewURL() *string {
	if v.o.PreviewURL == "" {
		return nil
	}
	return &v.o.PreviewURL
}
func (v outputView) Enabled() bool     { return v.o.Enabled }
func (v outputView) Volume() volumeView { return volumeView{v.o.Volume} }
func (v outputView) Mixins() []mixinView {
	out := make([]mixinView, len(v.o.Mixins))
	for i, m := range v.o.Mixins {
		out[i] = mixinView{m}
	}
	return out
}
func (v outputView) Status() string { return statusName(v.o.Status) }

type mixinView struct{ m restream.Mixin }

func (v mixinView) ID() graphql.ID   { return graphql.ID(v.m.ID) }
func (v mixinView) Src() string      { return v.m.Src }
func (v mixinView) Volume() volumeView { return volumeView{v.m.Volume} }
func (v mixinView) DelayMs() int32   { return int32(v.m.Delay.Milliseconds()) }
func (v mixinView) Sidechain() bool  { return v.m.Sidechain }
func (v mixinView) Status() string   { return statusName(v.m.Status) }

type volumeView struct{ v restream.Volume }

func (v volumeView) Level() int32 { return int32(v.v.Level) }
func (v volumeView) Muted() bool  { return v.v.Muted }
