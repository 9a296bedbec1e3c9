package store

import "github.com/ephyr-go/restreamer/internal/domain/restream"

// State is the single, serializable state document. Every mutation
// produces the next well-formed version atomically; there is no partial
// state visible to readers.
type State struct {
	Restreams []restream.Restream `json:"restreams"`
	Settings  Settings            `json:"settings"`

	// PasswordHash protects the main client GraphQL API; PasswordOutputHash
	// additionally protects the restricted mix view. Both are argon2 hashes,
	// nil when unset.
	PasswordHash       *string `json:"password_hash,omitempty"`
	PasswordOutputHash *string `json:"password_output_hash,omitempty"`
}

// Settings holds server-wide preferences unrelated to any single Restream.
// Google Drive / playlist fields from the original are dropped: the file
// ingester they support is out of scope.
type Settings struct {
	Title              *string `json:"title,omitempty"`
	DeleteConfirmation *bool   `json:"delete_confirmation,omitempty"`
	EnableConfirmation *bool   `json:"enable_confirmation,omitempty"`
}

// clone returns a deep copy of s, so mutations never alias a snapshot handed
// out to a reader or subscriber.
func (s *State) clone() *State {
	out := &State{
		Settings: Settings{
			Title:              clonePtr(s.Settings.Title),
			DeleteConfirmation: clonePtr(s.Settings.DeleteConfirmation),
			EnableConfirmation: clonePtr(s.Settings.EnableConfirmation),
		},
		PasswordHash:       clonePtr(s.PasswordHash),
		PasswordOutputHash: clonePtr(s.PasswordOutputHash),
	}
	out.Restreams = make([]restream.Restream, len(s.Restreams))
	for i, r := range s.Restreams {
		out.Restreams[i] = cloneRestream(r)
	}
	return out
}

func cloneRestream(r restream.Restream) restream.Restream {
	out := r
	out.Input = cloneInput(r.Input)
	out.Outputs = make([]restream.Output, len(r.Outputs))
	for i, o := range r.Outputs {
		out.Outputs[i] = cloneOutput(o)
	}
	return out
}

func cloneInput(i restream.Input) restream.Input {
	out := i
	out.Endpoints = append([]restream.InputEndpoint(nil), i.Endpoints...)
	if len(i.Failover) > 0 {
		out.Failover = make([]restream.Input, len(i.Failover))
		for idx, c := range i.Failover {
			out.Failover[idx] = cloneInput(c)
		}
	}
	return out
}

func cloneOutput(o restream.Output) restream.Output {
	out := o
	out.Mixins = append([]restream.Mixin(nil), o.Mixins...)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
