package store

import (
	"fmt"
	"time"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

// RestreamSpec is the wire shape produced by export and consumed by
// import: everything needed to recreate a Restream, without the volatile
// Status fields.
type RestreamSpec struct {
	ID      *restream.ID `json:"id,omitempty"`
	Key     string       `json:"key"`
	Label   string       `json:"label,omitempty"`
	Enabled bool         `json:"enabled"`
	Input   InputSpec    `json:"input"`
	Outputs []OutputSpec `json:"outputs"`
}

type InputSpec struct {
	Key      string      `json:"key"`
	Enabled  bool        `json:"enabled"`
	PullURL  string      `json:"pull_url,omitempty"`
	Failover []InputSpec `json:"failover,omitempty"`
	WithHLS  bool        `json:"with_hls"`
}

type OutputSpec struct {
	Dst        string      `json:"dst"`
	Label      string      `json:"label,omitempty"`
	PreviewURL string      `json:"preview_url,omitempty"`
	Enabled    bool        `json:"enabled"`
	Volume     VolumeSpec  `json:"volume"`
	Mixins     []MixinSpec `json:"mixins,omitempty"`
}

type VolumeSpec struct {
	Level uint16 `json:"level"`
	Muted bool   `json:"muted"`
}

type MixinSpec struct {
	Src         string `json:"src"`
	VolumeLevel uint16 `json:"volume_level"`
	VolumeMuted bool   `json:"volume_muted"`
	DelayMillis int64  `json:"delay_millis"`
	Sidechain   bool   `json:"sidechain"`
}

// Export implements export(restream_id?): with a nil id, every Restream in
// the store; otherwise just the one named, or nil if it doesn't exist.
func (s *Store) Export(id *restream.ID) []RestreamSpec {
	snap := s.Snapshot()
	if id != nil {
		r := FindRestream(snap.State, *id)
		if r == nil {
			return nil
		}
		return []RestreamSpec{toSpec(*r)}
	}
	out := make([]RestreamSpec, len(snap.State.Restreams))
	for i, r := range snap.State.Restreams {
		out[i] = toSpec(r)
	}
	return out
}

func toSpec(r restream.Restream) RestreamSpec {
	rid := r.ID
	return RestreamSpec{
		ID:      &rid,
		Key:     string(r.Key),
		Label:   string(r.Label),
		Enabled: r.Enabled,
		Input:   inputToSpec(r.Input),
		Outputs: outputsToSpec(r.Outputs),
	}
}

func inputToSpec(in restream.Input) InputSpec {
	spec := InputSpec{
		Key:     string(in.Key),
		Enabled: in.Enabled,
		PullURL: in.PullURL,
		WithHLS: in.HLSEndpoint() != nil,
	}
	if len(in.Failover) > 0 {
		spec.Failover = make([]InputSpec, len(in.Failover))
		for i, c := range in.Failover {
			spec.Failover[i] = inputToSpec(c)
		}
	}
	return spec
}

func outputsToSpec(outs []restream.Output) []OutputSpec {
	out := make([]OutputSpec, len(outs))
	for i, o := range outs {
		mixins := make([]MixinSpec, len(o.Mixins))
		for j, m := range o.Mixins {
			mixins[j] = MixinSpec{
				Src:         m.Src,
				VolumeLevel: m.Volume.Level,
				VolumeMuted: m.Volume.Muted,
				DelayMillis: m.Delay.Milliseconds(),
				Sidechain:   m.Sidechain,
			}
		}
		out[i] = OutputSpec{
			Dst:        o.Dst,
			Label:      string(o.Label),
			PreviewURL: o.PreviewURL,
			Enabled:    o.Enabled,
			Volume:     VolumeSpec{Level: o.Volume.Level, Muted: o.Volume.Muted},
			Mixins:     mixins,
		}
	}
	return out
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Import implements import(restream_id?, replace, spec): replace=true
// clears every existing Restream first; replace=false upserts by id (or
// creates fresh ones for entries without an id, or whose id is unknown).
func (s *Store) Import(specs []RestreamSpec, replace bool) (Result, error) {
	res, err := s.commit(func(draft *State) (Result, error) {
		if replace {
			draft.Restreams = nil
		}
		changed := replace && len(draft.Restreams) == 0 && len(specs) == 0
		for _, spec := range specs {
			r, err := fromSpec(spec)
			if err != nil {
				return NoChange, err
			}
			if spec.ID != nil {
				if existing := FindRestream(draft, *spec.ID); existing != nil {
					if other := FindRestreamByKey(draft, r.Key, *spec.ID); other != nil {
						return Conflict, nil
					}
					r.ID = *spec.ID
					*existing = r
					changed = true
					continue
				}
			}
			if other := FindRestreamByKey(draft, r.Key, ""); other != nil {
				return Conflict, nil
			}
			if spec.ID != nil {
				r.ID = *spec.ID
			} else {
				r.ID = restream.NewID()
			}
			draft.Restreams = append(draft.Restreams, r)
			changed = true
		}
		if !changed {
			return NoChange, nil
		}
		return Applied, nil
	})
	return res, err
}

func fromSpec(spec RestreamSpec) (restream.Restream, error) {
	key, err := restream.NewKey(spec.Key)
	if err != nil {
		return restream.Restream{}, fmt.Errorf("key: %w", err)
	}
	label, err := restream.NewLabel(spec.Label)
	if err != nil {
		return restream.Restream{}, fmt.Errorf("label: %w", err)
	}
	in, err := inputFromSpec(spec.Input, key)
	if err != nil {
		return restream.Restream{}, err
	}
	outs, err := outputsFromSpec(spec.Outputs)
	if err != nil {
		return restream.Restream{}, err
	}
	return restream.Restream{
		Key:     key,
		Label:   label,
		Enabled: spec.Enabled,
		Input:   in,
		Outputs: outs,
	}, nil
}

func inputFromSpec(spec InputSpec, key restream.Key) (restream.Input, error) {
	if len(spec.Failover) > 0 {
		children := make([]restream.Input, len(spec.Failover))
		for i, c := range spec.Failover {
			ck, err := restream.NewKey(c.Key)
			if err != nil {
				return restream.Input{}, fmt.Errorf("failover[%d].key: %w", i, err)
			}
			child, err := inputFromSpec(c, ck)
			if err != nil {
				return restream.Input{}, err
			}
			children[i] = child
		}
		return restream.Input{
			ID:       restream.NewID(),
			Key:      key,
			Enabled:  spec.Enabled,
			Src:      restream.SourceFailover,
			Failover: children,
		}, nil
	}
	kind := restream.SourcePush
	if spec.PullURL != "" {
		kind = restream.SourcePull
		if err := restream.ValidatePullURL(spec.PullURL); err != nil {
			return restream.Input{}, fmt.Errorf("pull_url: %w", err)
		}
	}
	endpoints := []restream.InputEndpoint{{ID: restream.NewID(), Kind: restream.EndpointRTMP}}
	if spec.WithHLS {
		endpoints = append(endpoints, restream.InputEndpoint{ID: restream.NewID(), Kind: restream.EndpointHLS})
	}
	return restream.Input{
		ID:        restream.NewID(),
		Key:       key,
		Enabled:   spec.Enabled,
		Src:       kind,
		PullURL:   spec.PullURL,
		Endpoints: endpoints,
	}, nil
}

func outputsFromSpec(specs []OutputSpec) ([]restream.Output, error) {
	out := make([]restream.Output, len(specs))
	for i, spec := range specs {
		if err := restream.ValidateOutputURL(spec.Dst); err != nil {
			return nil, fmt.Errorf("outputs[%d].dst: %w", i, err)
		}
		label, err := restream.NewLabel(spec.Label)
		if err != nil {
			return nil, fmt.Errorf("outputs[%d].label: %w", i, err)
		}
		mixins := make([]restream.Mixin, len(spec.Mixins))
		for j, m := range spec.Mixins {
			if err := restream.ValidateMixinURL(m.Src); err != nil {
				return nil, fmt.Errorf("outputs[%d].mixins[%d].src: %w", i, j, err)
			}
			mixins[j] = restream.Mixin{
				ID:        restream.NewID(),
				Src:       m.Src,
				Volume:    restream.Volume{Level: m.VolumeLevel, Muted: m.VolumeMuted},
				Delay:     msToDuration(m.DelayMillis),
				Sidechain: m.Sidechain,
			}
		}
		out[i] = restream.Output{
			ID:         restream.NewID(),
			Dst:        spec.Dst,
			Label:      label,
			PreviewURL: spec.PreviewURL,
			Enabled:    spec.Enabled,
			Volume:     restream.Volume{Level: spec.Volume.Level, Muted: spec.Volume.Muted},
			Mixins:     mixins,
		}
	}
	return out, nil
}
