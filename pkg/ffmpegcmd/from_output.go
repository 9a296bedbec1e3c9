package ffmpegcmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

// dstScheme reports the scheme prefix of a validated output dst.
func dstScheme(dst string) string {
	if i := strings.Index(dst, "://"); i >= 0 {
		return dst[:i]
	}
	return ""
}

// muxerFor maps an Output's dst scheme to the ffmpeg output format/muxer.
// icecast:// targets an Icecast/Shoutcast server via ffmpeg's native
// icecast muxer; file:// writes an MPEG-TS segment ffmpeg can append to.
func muxerFor(scheme string) string {
	switch scheme {
	case "icecast":
		return "mp3"
	case "file":
		return "mpegts"
	default:
		return "flv"
	}
}

// MixinPipePath returns the named-pipe path a mixin's voice-chat feeder
// writes to and the ffmpeg process reading Output out consumes from,
// rooted at dir.
func MixinPipePath(dir string, mixinID restream.ID) string {
	return filepath.Join(dir, string(mixinID)+".pcm")
}

// FromOutput builds the argv for the ffmpeg process that renders one
// Output of one Restream: srcURL is the local RTMP endpoint the
// TranscoderUnit reads from (the primary Input's own re-serve loopback),
// out carries the destination, per-output volume and mixin list.
// mixinPipes maps the ID of any mixin whose src is a ts:// voice-chat room
// to the local named pipe its feeder writes PCM into; such a mixin is
// read from that pipe as raw audio instead of being handed to ffmpeg as
// an input URL, which it cannot open.
//
// Video is always passed through untouched; audio is remuxed through a
// filter_complex graph mixing the primary track with every enabled mixin,
// honoring each mixin's own volume/delay/sidechain settings and the
// output's master volume.
func FromOutput(srcURL string, out restream.Output, mixinPipes map[restream.ID]string) []string {
	b := NewBuilder()
	b.WithInput(srcURL)

	mixins := out.Mixins
	for _, m := range mixins {
		if pipe, ok := mixinPipes[m.ID]; ok {
			b.WithRawAudioInput(pipe)
			continue
		}
		b.WithInput(m.Src)
	}

	filter, audioLabel := buildAudioGraph(out.Volume, mixins)

	b.WithStringFlag("-filter_complex", filter)
	b.args = append(b.args, "-map", "0:v")
	b.args = append(b.args, "-map", audioLabel)
	b.args = append(b.args, "-c:v", "copy")
	b.args = append(b.args, "-c:a", "aac")

	scheme := dstScheme(out.Dst)
	b.args = append(b.args, "-f", muxerFor(scheme))
	b.WithString(out.Dst)

	return b.BuildArgv()
}

// buildAudioGraph renders the filter_complex expression that produces the
// final mixed audio track for an Output, and the -map label to select it.
// With no mixins, the primary track is only ever touched if the output
// itself is muted or attenuated. A sidechain mixin (e.g. a push-to-talk
// voice feeder) ducks the rest of the mix while it's active, rather than
// being blended in at a fixed level like an ordinary mixin.
func buildAudioGraph(masterVolume restream.Volume, mixins []restream.Mixin) (string, string) {
	var chains []string

	base := "[0:a]"
	if needsVolumeFilter(masterVolume) {
		chains = append(chains, fmt.Sprintf("[0:a]%s[amain]", volumeFilter(masterVolume)))
		base = "[amain]"
	}

	var plain, sidechain []int
	for i, m := range mixins {
		if m.Sidechain {
			sidechain = append(sidechain, i)
		} else {
			plain = append(plain, i)
		}
	}

	mixinLabel := func(i int) string {
		m := mixins[i]
		in := fmt.Sprintf("[%d:a]", i+1)
		out := fmt.Sprintf("[mix%d]", i)
		steps := []string{}
		if m.Delay > 0 {
			steps = append(steps, fmt.Sprintf("adelay=%d:all=1", m.Delay.Milliseconds()))
		}
		steps = append(steps, volumeFilter(m.Volume))
		chains = append(chains, fmt.Sprintf("%s%s%s", in, strings.Join(steps, ","), out))
		return out
	}

	if len(plain) > 0 {
		labels := []string{base}
		for _, i := range plain {
			labels = append(labels, mixinLabel(i))
		}
		next := fmt.Sprintf("[abase%d]", len(chains))
		chains = append(chains, fmt.Sprintf("%samix=inputs=%d:duration=first:dropout_transition=0%s", strings.Join(labels, ""), len(labels), next))
		base = next
	}

	sideLabels := make([]string, 0, len(sidechain))
	for _, i := range sidechain {
		lbl := mixinLabel(i)
		// A filter-graph label can be consumed only once, so the mixin is
		// split: one copy keys the compressor, the other joins the final mix.
		key := fmt.Sprintf("[side%dkey]", i)
		mixed := fmt.Sprintf("[side%dmix]", i)
		chains = append(chains, fmt.Sprintf("%sasplit=2%s%s", lbl, key, mixed))
		sideLabels = append(sideLabels, mixed)
		ducked := fmt.Sprintf("[abase%d]", len(chains))
		chains = append(chains, fmt.Sprintf("%s%ssidechaincompress=threshold=0.05:ratio=8:attack=5:release=200%s", base, key, ducked))
		base = ducked
	}

	if len(sideLabels) == 0 {
		if base == "[0:a]" {
			return "", "0:a"
		}
		return strings.Join(chains, ";"), base
	}

	labels := append([]string{base}, sideLabels...)
	chains = append(chains, fmt.Sprintf("%samix=inputs=%d:duration=first:dropout_transition=0[aout]", strings.Join(labels, ""), len(labels)))
	return strings.Join(chains, ";"), "[aout]"
}

func needsVolumeFilter(v restream.Volume) bool {
	return v.Muted || v.Level != restream.MaxVolumeLevel
}

// volumeFilter renders ffmpeg's volume filter for a Volume: muted forces
// gain to 0 regardless of Level.
func volumeFilter(v restream.Volume) string {
	if v.Muted {
		return "volume=0"
	}
	gain := float64(v.Level) / float64(restream.MaxVolumeLevel)
	return fmt.Sprintf("volume=%.3f", gain)
}
