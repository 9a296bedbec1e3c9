package store

import (
	"fmt"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

// SetOutputRequest is the upsert request for set_output (§4.1).
type SetOutputRequest struct {
	RestreamID restream.ID
	ID         *restream.ID
	Dst        string
	Label      string
	PreviewURL string
	MixinSrcs  []string
}

// SetOutput implements §4.1 set_output: dst uniqueness within the
// Restream, mixins rebuilt preserving ids (and tuning) by src match.
func (s *Store) SetOutput(req SetOutputRequest) (Result, *restream.Output, error) {
	if err := restream.ValidateOutputURL(req.Dst); err != nil {
		return NoChange, nil, fmt.Errorf("dst: %w", err)
	}
	label, err := restream.NewLabel(req.Label)
	if err != nil {
		return NoChange, nil, fmt.Errorf("label: %w", err)
	}
	seen := map[string]bool{}
	for _, src := range req.MixinSrcs {
		if err := restream.ValidateMixinURL(src); err != nil {
			return NoChange, nil, fmt.Errorf("mixins: %w", err)
		}
		if seen[src] {
			return NoChange, nil, fmt.Errorf("mixins: duplicate src %q", src)
		}
		seen[src] = true
	}

	var result *restream.Output
	res, err := s.commit(func(draft *State) (Result, error) {
		r := FindRestream(draft, req.RestreamID)
		if r == nil {
			return NotFound, nil
		}

		for i := range r.Outputs {
			if r.Outputs[i].Dst == req.Dst && (req.ID == nil || r.Outputs[i].ID != *req.ID) {
				return Conflict, nil
			}
		}

		if req.ID == nil {
			o := restream.Output{
				ID:         restream.NewID(),
				Dst:        req.Dst,
				Label:      label,
				PreviewURL: req.PreviewURL,
				Enabled:    false,
				Mixins:     rebuildMixins(nil, req.MixinSrcs),
			}
			r.Outputs = append(r.Outputs, o)
			result = FindOutput(r, o.ID)
			return Applied, nil
		}

		o := FindOutput(r, *req.ID)
		if o == nil {
			return NotFound, nil
		}
		old := o.Mixins
		o.Dst = req.Dst
		o.Label = label
		o.PreviewURL = req.PreviewURL
		o.Mixins = rebuildMixins(old, req.MixinSrcs)
		result = o
		return Applied, nil
	})
	if err != nil || res != Applied {
		return res, nil, err
	}
	return res, result, nil
}

// RemoveOutput implements §4.1 remove_output.
func (s *Store) RemoveOutput(restreamID, outputID restream.ID) Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		r := FindRestream(draft, restreamID)
		if r == nil {
			return NotFound, nil
		}
		for i := range r.Outputs {
			if r.Outputs[i].ID == outputID {
				r.Outputs = append(r.Outputs[:i], r.Outputs[i+1:]...)
				return Applied, nil
			}
		}
		return NotFound, nil
	})
	return res
}

// SetOutputEnabled implements enable_output/disable_output.
func (s *Store) SetOutputEnabled(restreamID, outputID restream.ID, enabled bool) Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		r := FindRestream(draft, restreamID)
		if r == nil {
			return NotFound, nil
		}
		o := FindOutput(r, outputID)
		if o == nil {
			return NotFound, nil
		}
		if o.Enabled == enabled {
			return NoChange, nil
		}
		o.Enabled = enabled
		if !enabled {
			o.Status = restream.StatusOffline
		}
		return Applied, nil
	})
	return res
}

// SetAllOutputsEnabled implements enable_all_outputs/disable_all_outputs
// for a single Restream.
func (s *Store) SetAllOutputsEnabled(restreamID restream.ID, enabled bool) Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		r := FindRestream(draft, restreamID)
		if r == nil {
			return NotFound, nil
		}
		changed := false
		for i := range r.Outputs {
			if r.Outputs[i].Enabled != enabled {
				r.Outputs[i].Enabled = enabled
				if !enabled {
					r.Outputs[i].Status = restream.StatusOffline
				}
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

// SetAllOutputsEnabledGlobal implements
// enable_all_outputs_of_restreams/disable_all_outputs_of_restreams across
// every Restream in the store.
func (s *Store) SetAllOutputsEnabledGlobal(enabled bool) Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		changed := false
		for ri := range draft.Restreams {
			for oi := range draft.Restreams[ri].Outputs {
				o := &draft.Restreams[ri].Outputs[oi]
				if o.Enabled != enabled {
					o.Enabled = enabled
					if !enabled {
						o.Status = restream.StatusOffline
					}
					changed = true
				}
			}
		}
		if !changed {
			return NoChange, nil
		}
		return Applied, nil
	})
	return res
}

// rebuildMixins rebuilds an Output's mixin list from a list of desired
// src URLs, preserving id and tuning for slots matched by src.
func rebuildMixins(old []restream.Mixin, srcs []string) []restream.Mixin {
	byOld := make(map[string]*restream.Mixin, len(old))
	for i := range old {
		byOld[old[i].Src] = &old[i]
	}
	out := make([]restream.Mixin, 0, len(srcs))
	for _, src := range srcs {
		if m, ok := byOld[src]; ok {
			out = append(out, *m)
			continue
		}
		out = append(out, restream.Mixin{
			ID:  restream.NewID(),
			Src: src,
			Volume: restream.Volume{
				Level: restream.MaxVolumeLevel,
			},
		})
	}
	return out
}
