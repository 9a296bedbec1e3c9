package store

import (
	"fmt"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

// BackupSpec describes one Failover child in a set_restream request: a
// Push child if Src is empty, otherwise a Pull child.
type BackupSpec struct {
	Key restream.Key
	Src string
}

// SetRestreamRequest is the upsert request for set_restream (§4.1). A nil
// ID creates a new Restream; a non-nil ID updates the existing one.
type SetRestreamRequest struct {
	ID      *restream.ID
	Key     string
	Label   string
	Src     string // pull URL for the primary child; empty means Push
	Backups []BackupSpec
	WithHLS bool
}

// SetRestream implements §4.1 set_restream: upsert semantics with Conflict
// on key collision and endpoint-identity-preserving Input rebuilds.
func (s *Store) SetRestream(req SetRestreamRequest) (Result, *restream.Restream, error) {
	key, err := restream.NewKey(req.Key)
	if err != nil {
		return NoChange, nil, fmt.Errorf("key: %w", err)
	}
	label, err := restream.NewLabel(req.Label)
	if err != nil {
		return NoChange, nil, fmt.Errorf("label: %w", err)
	}
	if req.Src != "" {
		if err := restream.ValidatePullURL(req.Src); err != nil {
			return NoChange, nil, fmt.Errorf("src: %w", err)
		}
	}
	seen := map[restream.Key]bool{key: true}
	for _, b := range req.Backups {
		if _, err := restream.NewKey(string(b.Key)); err != nil {
			return NoChange, nil, fmt.Errorf("backups[%s]: %w", b.Key, err)
		}
		if seen[b.Key] {
			return NoChange, nil, fmt.Errorf("backups: duplicate key %q", b.Key)
		}
		seen[b.Key] = true
		if b.Src != "" {
			if err := restream.ValidatePullURL(b.Src); err != nil {
				return NoChange, nil, fmt.Errorf("backups[%s].src: %w", b.Key, err)
			}
		}
	}

	var result *restream.Restream
	res, err := s.commit(func(draft *State) (Result, error) {
		if req.ID == nil {
			if existing := FindRestreamByKey(draft, key, ""); existing != nil {
				return Conflict, nil
			}
			r := restream.Restream{
				ID:      restream.NewID(),
				Key:     key,
				Label:   label,
				Enabled: true,
				Input:   rebuildInput(nil, key, req.Src, req.Backups, req.WithHLS),
				Outputs: []restream.Output{},
			}
			draft.Restreams = append(draft.Restreams, r)
			result = FindRestream(draft, r.ID)
			return Applied, nil
		}

		existing := FindRestream(draft, *req.ID)
		if existing == nil {
			return NotFound, nil
		}
		if other := FindRestreamByKey(draft, key, *req.ID); other != nil {
			return Conflict, nil
		}

		old := existing.Input
		existing.Key = key
		existing.Label = label
		existing.Input = rebuildInput(&old, key, req.Src, req.Backups, req.WithHLS)
		result = existing
		return Applied, nil
	})
	if err != nil || res != Applied {
		return res, nil, err
	}
	return res, result, nil
}

// RemoveRestream implements §4.1 remove_restream.
func (s *Store) RemoveRestream(id restream.ID) Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		for i := range draft.Restreams {
			if draft.Restreams[i].ID == id {
				draft.Restreams = append(draft.Restreams[:i], draft.Restreams[i+1:]...)
				return Applied, nil
			}
		}
		return NotFound, nil
	})
	return res
}

// SetRestreamEnabled implements enable_restream/disable_restream.
func (s *Store) SetRestreamEnabled(id restream.ID, enabled bool) Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		r := FindRestream(draft, id)
		if r == nil {
			return NotFound, nil
		}
		if r.Enabled == enabled {
			return NoChange, nil
		}
		r.Enabled = enabled
		return Applied, nil
	})
	return res
}

// SetInputEnabled implements enable_input/disable_input. inputID may
// address the top-level Input or any Failover child.
func (s *Store) SetInputEnabled(restreamID, inputID restream.ID, enabled bool) Result {
	res, _ := s.commit(func(draft *State) (Result, error) {
		r := FindRestream(draft, restreamID)
		if r == nil {
			return NotFound, nil
		}
		in := FindInput(r, inputID)
		if in == nil {
			return NotFound, nil
		}
		if in.Enabled == enabled {
			return NoChange, nil
		}
		in.Enabled = enabled
		return Applied, nil
	})
	return res
}

// ChangeEndpointLabel implements change_endpoint_label.
func (s *Store) ChangeEndpointLabel(restreamID, inputID, endpointID restream.ID, rawLabel string) (Result, error) {
	label, err := restream.NewLabel(rawLabel)
	if err != nil {
		return NoChange, fmt.Errorf("label: %w", err)
	}
	res, _ := s.commit(func(draft *State) (Result, error) {
		r := FindRestream(draft, restreamID)
		if r == nil {
			return NotFound, nil
		}
		in := FindInput(r, inputID)
		if in == nil {
			return NotFound, nil
		}
		for i := range in.Endpoints {
			if in.Endpoints[i].ID == endpointID {
				if in.Endpoints[i].Label == label {
					return NoChange, nil
				}
				in.Endpoints[i].Label = label
				return Applied, nil
			}
		}
		return NotFound, nil
	})
	return res, nil
}

// rebuildInput materializes a new Input tree for the primary key +
// optional backups, preserving Input and InputEndpoint identities for
// slots that still exist in the new shape (§4.1).
func rebuildInput(old *restream.Input, primaryKey restream.Key, primarySrc string, backups []BackupSpec, withHLS bool) restream.Input {
	oldLeaves := collectLeaves(old)

	type leafSpec struct {
		key restream.Key
		src string
	}
	specs := make([]leafSpec, 0, 1+len(backups))
	specs = append(specs, leafSpec{key: primaryKey, src: primarySrc})
	for _, b := range backups {
		specs = append(specs, leafSpec{key: b.Key, src: b.Src})
	}

	buildLeaf := func(sp leafSpec) restream.Input {
		matched := oldLeaves[sp.key]
		id := restream.NewID()
		var oldEndpoints []restream.InputEndpoint
		enabled := true
		if matched != nil {
			id = matched.ID
			oldEndpoints = matched.Endpoints
			enabled = matched.Enabled
		}
		kind := restream.SourcePush
		if sp.src != "" {
			kind = restream.SourcePull
		}
		return restream.Input{
			ID:        id,
			Key:       sp.key,
			Enabled:   enabled,
			Src:       kind,
			PullURL:   sp.src,
			Endpoints: rebuildEndpoints(oldEndpoints, withHLS),
		}
	}

	if len(specs) == 1 {
		leaf := buildLeaf(specs[0])
		return leaf
	}

	containerID := restream.NewID()
	if old != nil && old.Src == restream.SourceFailover {
		containerID = old.ID
	}
	children := make([]restream.Input, len(specs))
	for i, sp := range specs {
		children[i] = buildLeaf(sp)
	}
	return restream.Input{
		ID:       containerID,
		Key:      primaryKey,
		Enabled:  true,
		Src:      restream.SourceFailover,
		Failover: children,
	}
}

// collectLeaves indexes every leaf (Push/Pull) Input under old by Key, so
// rebuildInput can reuse identities regardless of whether old was itself a
// leaf or a Failover container.
func collectLeaves(old *restream.Input) map[restream.Key]*restream.Input {
	out := make(map[restream.Key]*restream.Input)
	if old == nil {
		return out
	}
	if old.Src != restream.SourceFailover {
		out[old.Key] = old
		return out
	}
	for i := range old.Failover {
		out[old.Failover[i].Key] = &old.Failover[i]
	}
	return out
}

// rebuildEndpoints reuses the RTMP endpoint id and, if present and still
// wanted, the HLS endpoint id; slots that don't survive get fresh ids.
func rebuildEndpoints(old []restream.InputEndpoint, withHLS bool) []restream.InputEndpoint {
	var oldRTMP, oldHLS *restream.InputEndpoint
	for i := range old {
		switch old[i].Kind {
		case restream.EndpointRTMP:
			oldRTMP = &old[i]
		case restream.EndpointHLS:
			oldHLS = &old[i]
		}
	}

	rtmp := restream.InputEndpoint{ID: restream.NewID(), Kind: restream.EndpointRTMP}
	if oldRTMP != nil {
		rtmp.ID = oldRTMP.ID
		rtmp.Label = oldRTMP.Label
	}
	out := []restream.InputEndpoint{rtmp}

	if withHLS {
		hls := restream.InputEndpoint{ID: restream.NewID(), Kind: restream.EndpointHLS}
		if oldHLS != nil {
			hls.ID = oldHLS.ID
			hls.Label = oldHLS.Label
		}
		out = append(out, hls)
	}
	return out
}
