package ffmpegcmd

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

func TestFromOutputNoMixinsPassesAudioThrough(t *testing.T) {
	out := restream.Output{
		Dst:    "rtmp://youtube.com/live/xyz",
		Volume: restream.Volume{Level: restream.MaxVolumeLevel},
	}
	argv := FromOutput("rtmp://127.0.0.1:1935/main/main", out, nil)

	require.Contains(t, argv, "-i")
	assert.Contains(t, argv, "rtmp://127.0.0.1:1935/main/main")
	assert.Contains(t, argv, "0:a", "unattenuated single-track output maps the source audio directly")
	assert.NotContains(t, argv, "-filter_complex")
	assert.Contains(t, argv, "flv")
}

func TestFromOutputMutedMasterAppliesVolumeFilter(t *testing.T) {
	out := restream.Output{
		Dst:    "rtmp://youtube.com/live/xyz",
		Volume: restream.Volume{Muted: true},
	}
	argv := FromOutput("rtmp://127.0.0.1:1935/main/main", out, nil)

	idx := indexOf(argv, "-filter_complex")
	require.GreaterOrEqual(t, idx, 0)
	assert.Contains(t, argv[idx+1], "volume=0")
}

func TestFromOutputMixesMultipleMixins(t *testing.T) {
	out := restream.Output{
		Dst:    "rtmp://youtube.com/live/xyz",
		Volume: restream.Volume{Level: restream.MaxVolumeLevel},
		Mixins: []restream.Mixin{
			{Src: "https://example.com/music.mp3", Volume: restream.Volume{Level: restream.MaxVolumeLevel}},
			{Src: "ts://voice.example.com/room", Volume: restream.Volume{Level: restream.MaxVolumeLevel}, Delay: 200 * time.Millisecond},
		},
	}
	argv := FromOutput("rtmp://127.0.0.1:1935/main/main", out, nil)

	assert.Equal(t, 3, countFlag(argv, "-i"), "primary source plus two mixin inputs")
	idx := indexOf(argv, "-filter_complex")
	require.GreaterOrEqual(t, idx, 0)
	graph := argv[idx+1]
	assert.Contains(t, graph, "amix=inputs=3")
	assert.Contains(t, graph, "adelay=200:all=1")
}

func TestFromOutputSidechainMixinDucksTheMix(t *testing.T) {
	out := restream.Output{
		Dst:    "rtmp://youtube.com/live/xyz",
		Volume: restream.Volume{Level: restream.MaxVolumeLevel},
		Mixins: []restream.Mixin{
			{Src: "ts://voice.example.com/room", Volume: restream.Volume{Level: restream.MaxVolumeLevel}, Sidechain: true},
		},
	}
	argv := FromOutput("rtmp://127.0.0.1:1935/main/main", out, nil)
	idx := indexOf(argv, "-filter_complex")
	require.GreaterOrEqual(t, idx, 0)
	assert.Contains(t, argv[idx+1], "sidechaincompress")
}

func TestFromOutputSubstitutesPipeForVoiceChatMixin(t *testing.T) {
	mixinID := restream.ID("mix1")
	out := restream.Output{
		Dst:    "rtmp://youtube.com/live/xyz",
		Volume: restream.Volume{Level: restream.MaxVolumeLevel},
		Mixins: []restream.Mixin{
			{ID: mixinID, Src: "ts://voice.example.com/room?channel=main", Volume: restream.Volume{Level: restream.MaxVolumeLevel}},
		},
	}
	argv := FromOutput("rtmp://127.0.0.1:1935/main/main", out, map[restream.ID]string{mixinID: "/tmp/mixins/mix1.pcm"})

	assert.NotContains(t, argv, "ts://voice.example.com/room?channel=main", "ffmpeg cannot open a voice-chat room URL directly")
	assert.Contains(t, argv, "/tmp/mixins/mix1.pcm")
	assert.Contains(t, argv, "s16le")
	idx := indexOf(argv, "-filter_complex")
	require.GreaterOrEqual(t, idx, 0)
	assert.Contains(t, argv[idx+1], "amix=inputs=2")
}

func TestFromOutputFileDstUsesMpegtsMuxer(t *testing.T) {
	out := restream.Output{Dst: "file:///var/dvr/main.ts", Volume: restream.Volume{Level: restream.MaxVolumeLevel}}
	argv := FromOutput("rtmp://127.0.0.1:1935/main/main", out, nil)
	idx := indexOf(argv, "-f")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "mpegts", argv[idx+1])
}

func TestFromOutputIcecastDstUsesMp3Muxer(t *testing.T) {
	out := restream.Output{Dst: "icecast://source@example.com/stream", Volume: restream.Volume{Level: restream.MaxVolumeLevel}}
	argv := FromOutput("rtmp://127.0.0.1:1935/main/main", out, nil)
	idx := indexOf(argv, "-f")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "mp3", argv[idx+1])
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func countFlag(s []string, flag string) int {
	n := 0
	for _, x := range s {
		if x == flag {
			n++
		}
	}
	return n
}

func TestBuilderBuildStringQuotesArgs(t *testing.T) {
	b := NewBuilder().WithInput("rtmp://example.com/it's/live")
	s := b.BuildString()
	assert.True(t, strings.Contains(s, `it'\''s`))
}
