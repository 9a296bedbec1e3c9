package store

import "github.com/ephyr-go/restreamer/internal/domain/restream"

// EndpointRef locates a leaf InputEndpoint within the state tree. Only
// leaf Inputs (Push or Pull) carry endpoints; a Failover Input's own
// Endpoints slice is always empty (§9: cross-tree references are derived
// indices rebuilt from the tree, never held across versions).
type EndpointRef struct {
	RestreamID restream.ID
	InputID    restream.ID
	EndpointID restream.ID
}

// FindEndpointByAppStream locates the RTMP endpoint whose (Restream.Key,
// leaf-Input.Key) matches (app, stream) — the hook dispatcher's contract
// in §4.6. Returns ok=false if no such endpoint exists in st.
func FindEndpointByAppStream(st *State, app, stream string) (ref EndpointRef, restreamEnabled, inputEnabled bool, ok bool) {
	for ri := range st.Restreams {
		r := &st.Restreams[ri]
		if string(r.Key) != app {
			continue
		}
		if leaf := findLeafByKey(&r.Input, stream); leaf != nil {
			if ep := leaf.RTMPEndpoint(); ep != nil {
				return EndpointRef{RestreamID: r.ID, InputID: leaf.ID, EndpointID: ep.ID}, r.Enabled, leaf.Enabled, true
			}
		}
	}
	return EndpointRef{}, false, false, false
}

func findLeafByKey(in *restream.Input, key string) *restream.Input {
	if in.Src != restream.SourceFailover {
		if string(in.Key) == key {
			return in
		}
		return nil
	}
	for i := range in.Failover {
		if found := findLeafByKey(&in.Failover[i], key); found != nil {
			return found
		}
	}
	return nil
}

// FindRestream returns a pointer into st.Restreams for id, or nil.
func FindRestream(st *State, id restream.ID) *restream.Restream {
	for i := range st.Restreams {
		if st.Restreams[i].ID == id {
			return &st.Restreams[i]
		}
	}
	return nil
}

// FindRestreamByKey returns a pointer into st.Restreams whose Key matches,
// excluding excludeID (used for uniqueness checks on update).
func FindRestreamByKey(st *State, key restream.Key, excludeID restream.ID) *restream.Restream {
	for i := range st.Restreams {
		if st.Restreams[i].Key == key && st.Restreams[i].ID != excludeID {
			return &st.Restreams[i]
		}
	}
	return nil
}

// FindOutput returns a pointer into r.Outputs for id, or nil.
func FindOutput(r *restream.Restream, id restream.ID) *restream.Output {
	for i := range r.Outputs {
		if r.Outputs[i].ID == id {
			return &r.Outputs[i]
		}
	}
	return nil
}

// FindMixin returns a pointer into o.Mixins for id, or nil.
func FindMixin(o *restream.Output, id restream.ID) *restream.Mixin {
	for i := range o.Mixins {
		if o.Mixins[i].ID == id {
			return &o.Mixins[i]
		}
	}
	return nil
}

// FindInput locates any Input node (leaf or Failover container) by id
// within r's Input tree.
func FindInput(r *restream.Restream, id restream.ID) *restream.Input {
	return findInputByID(&r.Input, id)
}

func findInputByID(in *restream.Input, id restream.ID) *restream.Input {
	if in.ID == id {
		return in
	}
	for i := range in.Failover {
		if found := findInputByID(&in.Failover[i], id); found != nil {
			return found
		}
	}
	return nil
}

// FindEndpoint locates an InputEndpoint anywhere under r's Input tree.
func FindEndpoint(r *restream.Restream, id restream.ID) (*restream.InputEndpoint, *restream.Input) {
	return findEndpoint(&r.Input, id)
}

func findEndpoint(in *restream.Input, id restream.ID) (*restream.InputEndpoint, *restream.Input) {
	for i := range in.Endpoints {
		if in.Endpoints[i].ID == id {
			return &in.Endpoints[i], in
		}
	}
	for i := range in.Failover {
		if ep, owner := findEndpoint(&in.Failover[i], id); ep != nil {
			return ep, owner
		}
	}
	return nil, nil
}
