package reconciler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
	"github.com/ephyr-go/restreamer/internal/store"
	"github.com/ephyr-go/restreamer/internal/transcoder"
	"github.com/ephyr-go/restreamer/pkg/ffmpegcmd"
)

// UnitKind distinguishes a "pull" unit (republishes a remote source onto
// the local RTMP server) from a "forward" unit (reads the local RTMP
// server and pushes to one Output).
type UnitKind int

const (
	UnitPull UnitKind = iota
	UnitForward
)

// UnitKey is a TranscoderUnit's composite identity, independent of its
// current command line, per §4.2.
type UnitKey struct {
	Kind       UnitKind
	RestreamID restream.ID
	UnitID     restream.ID // leaf Input id for Pull, Output id for Forward
}

// String renders a stable, sortable identity used to order diff
// operations deterministically.
func (k UnitKey) String() string {
	kind := "pull"
	if k.Kind == UnitForward {
		kind = "forward"
	}
	return fmt.Sprintf("%s/%s/%s", kind, k.RestreamID, k.UnitID)
}

// DesiredUnit is one entry of the reconciler's desired set: the command
// to run, and any voice-chat companion feeders it needs alongside it.
type DesiredUnit struct {
	Key    UnitKey
	Argv   []string
	Mixins []transcoder.MixinFeed
}

// localIngestURL is where the RTMP server accepts and re-serves a leaf
// Input's stream, keyed by (Restream.Key, leaf.Key), per §4.6's hook
// lookup contract.
func localIngestURL(restreamKey, leafKey restream.Key) string {
	return fmt.Sprintf("rtmp://127.0.0.1:1935/%s/%s", restreamKey, leafKey)
}

// ComputeDesired walks st and returns the full desired unit set, per
// §4.2: a pull unit for every Pull leaf (whether primary or Failover
// child) of an enabled Restream+Input, and a forward unit for every
// enabled Output of an enabled Restream with an enabled Input.
//
// elector resolves which Failover child a Forward unit's source slot
// currently points at (§3); a nil elector falls back to the nominal
// primary child, which is only ever exercised by callers (tests) that
// don't care about failover behavior. mixinPipeDir roots the named pipes
// created for any ts:// voice-chat mixin.
func ComputeDesired(st *store.State, elector *FailoverElector, mixinPipeDir string) []DesiredUnit {
	var out []DesiredUnit
	now := time.Now()
	for _, r := range st.Restreams {
		if !r.Enabled {
			continue
		}
		out = append(out, pullUnitsForInput(r.ID, r.Key, &r.Input)...)
		if !r.Input.Enabled {
			continue
		}
		leafKey := selectLeafKey(r.ID, &r.Input, elector, now)
		for _, o := range r.Outputs {
			if !o.Enabled {
				continue
			}
			out = append(out, forwardUnit(r, o, leafKey, mixinPipeDir))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

func pullUnitsForInput(restreamID restream.ID, restreamKey restream.Key, in *restream.Input) []DesiredUnit {
	var out []DesiredUnit
	switch in.Src {
	case restream.SourcePull:
		if in.Enabled {
			if ep := in.RTMPEndpoint(); ep != nil {
				out = append(out, DesiredUnit{
					Key:  UnitKey{Kind: UnitPull, RestreamID: restreamID, UnitID: ep.ID},
					Argv: pullArgv(in.PullURL, localIngestURL(restreamKey, in.Key)),
				})
			}
		}
	case restream.SourceFailover:
		for i := range in.Failover {
			out = append(out, pullUnitsForInput(restreamID, restreamKey, &in.Failover[i])...)
		}
	}
	return out
}

func pullArgv(src, dst string) []string {
	return []string{"ffmpeg", "-hide_banner", "-nostdin", "-loglevel", "warning",
		"-re", "-i", src, "-c", "copy", "-f", "flv", dst}
}

func forwardUnit(r restream.Restream, o restream.Output, leafKey restream.Key, mixinPipeDir string) DesiredUnit {
	src := localIngestURL(r.Key, leafKey)

	var mixinPipes map[restream.ID]string
	var feeds []transcoder.MixinFeed
	for _, m := range o.Mixins {
		if !strings.HasPrefix(m.Src, "ts://") {
			continue
		}
		if mixinPipes == nil {
			mixinPipes = make(map[restream.ID]string)
		}
		pipe := ffmpegcmd.MixinPipePath(mixinPipeDir, m.ID)
		mixinPipes[m.ID] = pipe
		feeds = append(feeds, transcoder.MixinFeed{MixinID: m.ID, SrcURL: m.Src, PipePath: pipe})
	}

	return DesiredUnit{
		Key:    UnitKey{Kind: UnitForward, RestreamID: r.ID, UnitID: o.ID},
		Argv:   ffmpegcmd.FromOutput(src, o, mixinPipes),
		Mixins: feeds,
	}
}

// selectLeafKey returns the Key the local RTMP server serves this
// Restream's stream under: in's own Key if it's a leaf, or the elector's
// currently active Failover child's Key otherwise.
func selectLeafKey(restreamID restream.ID, in *restream.Input, elector *FailoverElector, now time.Time) restream.Key {
	if in.Src != restream.SourceFailover || len(in.Failover) == 0 {
		return in.Key
	}
	if elector == nil {
		return primaryLeafKey(in)
	}
	return elector.Elect(restreamID, in, now).Key
}

// primaryLeafKey returns the nominal primary (first) Failover child's
// key, ignoring reachability. Used only as the elector-less fallback.
func primaryLeafKey(in *restream.Input) restream.Key {
	if in.Src != restream.SourceFailover || len(in.Failover) == 0 {
		return in.Key
	}
	return primaryLeafKey(&in.Failover[0])
}
