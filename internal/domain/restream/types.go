package restream

import "time"

// Restream is a top-level re-streaming pipeline: one Input, many Outputs.
type Restream struct {
	ID      ID       `json:"id"`
	Key     Key      `json:"key"`
	Label   Label    `json:"label,omitempty"`
	Enabled bool     `json:"enabled"`
	Input   Input    `json:"input"`
	Outputs []Output `json:"outputs"`
}

// Input is the upstream source of a Restream, or of a Failover child.
type Input struct {
	ID       ID              `json:"id"`
	Key      Key             `json:"key"`
	Enabled  bool            `json:"enabled"`
	Src      SourceKind      `json:"src"`
	PullURL  string          `json:"pull_url,omitempty"`  // set iff Src == SourcePull
	Failover []Input         `json:"failover,omitempty"`  // set iff Src == SourceFailover; children are Push or Pull only
	Endpoints []InputEndpoint `json:"endpoints"`
}

// InputEndpoint is a serving endpoint (RTMP or HLS) for an Input's stream.
type InputEndpoint struct {
	ID     ID           `json:"id"`
	Kind   EndpointKind `json:"kind"`
	Label  Label        `json:"label,omitempty"`
	Status Status       `json:"status"`
}

// Output is a downstream destination for a Restream.
type Output struct {
	ID         ID      `json:"id"`
	Dst        string  `json:"dst"` // rtmp:// rtmps:// icecast:// file://
	Label      Label   `json:"label,omitempty"`
	PreviewURL string  `json:"preview_url,omitempty"`
	Enabled    bool    `json:"enabled"`
	Volume     Volume  `json:"volume"`
	Mixins     []Mixin `json:"mixins"`
	Status     Status  `json:"status"`
}

// Mixin is auxiliary audio layered onto an Output.
type Mixin struct {
	ID        ID            `json:"id"`
	Src       string        `json:"src"` // ts:// or http(s)://
	Volume    Volume        `json:"volume"`
	Delay     time.Duration `json:"delay"`
	Sidechain bool          `json:"sidechain"`
	Status    Status        `json:"status"`
}

// Volume is a tunable audio level shared by Output and Mixin.
type Volume struct {
	Level uint16 `json:"level"` // 0-1000
	Muted bool   `json:"muted"`
}

const (
	MaxVolumeLevel = 1000
	MaxMixinDelay  = 30 * time.Second
)

// IsPushOrPull reports whether i is a leaf source variant, i.e. valid as a
// Failover child (nesting Failover inside Failover is disallowed).
func (i *Input) IsPushOrPull() bool {
	return i.Src == SourcePush || i.Src == SourcePull
}

// RTMPEndpoint returns the Input's mandatory RTMP endpoint, or nil if the
// endpoint list is malformed (should not happen for state produced by the
// store).
func (i *Input) RTMPEndpoint() *InputEndpoint {
	for idx := range i.Endpoints {
		if i.Endpoints[idx].Kind == EndpointRTMP {
			return &i.Endpoints[idx]
		}
	}
	return nil
}

// HLSEndpoint returns the Input's HLS endpoint, or nil if HLS was not
// enabled for this Input.
func (i *Input) HLSEndpoint() *InputEndpoint {
	for idx := range i.Endpoints {
		if i.Endpoints[idx].Kind == EndpointHLS {
			return &i.Endpoints[idx]
		}
	}
	return nil
}
