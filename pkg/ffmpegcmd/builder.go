// Package ffmpegcmd builds canonical ffmpeg CLI invocations for a
// TranscoderUnit. It is a pure command-construction layer:
// no execution, no I/O, just a deterministic argv projection of a domain
// intent.
package ffmpegcmd

import (
	"strconv"
	"strings"

	"github.com/ephyr-go/restreamer/pkg/pcmformat"
)

// Builder constructs argv for `ffmpeg`. It is a fluent, single-use,
// non-concurrency-safe value.
type Builder struct {
	args []string
}

// NewBuilder returns a Builder pre-seeded with the binary name and the
// flags that belong on every invocation regardless of shape: hide the
// banner, fail loudly rather than prompting, and log at a level useful
// for the ring-buffered stderr capture.
func NewBuilder() *Builder {
	return &Builder{args: []string{"ffmpeg", "-hide_banner", "-nostdin", "-loglevel", "warning"}}
}

// WithInput appends -i <url>.
func (b *Builder) WithInput(url string) *Builder {
	b.args = append(b.args, "-i", url)
	return b
}

// WithRawAudioInput appends the flags needed to read a headerless PCM
// stream off path (a named pipe fed by a voice-chat Feeder) as an ffmpeg
// input: explicit format/rate/channel-layout flags stand in for the
// container header a pipe doesn't carry.
func (b *Builder) WithRawAudioInput(path string) *Builder {
	b.args = append(b.args,
		"-f", pcmformat.Codec,
		"-ar", strconv.Itoa(pcmformat.SampleRateHz),
		"-ac", strconv.Itoa(pcmformat.Channels),
		"-i", path)
	return b
}

// WithStringFlag appends a flag with a string value if non-empty.
func (b *Builder) WithStringFlag(flag, val string) *Builder {
	if val != "" {
		b.args = append(b.args, flag, val)
	}
	return b
}

// WithIntFlag appends a flag with a base-10 int value, always emitted.
func (b *Builder) WithIntFlag(flag string, val int) *Builder {
	b.args = append(b.args, flag, strconv.Itoa(val))
	return b
}

// WithString appends a positional argument if non-empty.
func (b *Builder) WithString(arg string) *Builder {
	if arg != "" {
		b.args = append(b.args, arg)
	}
	return b
}

// BuildArgv returns a defensive copy of the constructed argument vector.
func (b *Builder) BuildArgv() []string {
	out := make([]string, len(b.args))
	copy(out, b.args)
	return out
}

// BuildString returns a single shell-quoted command string, for logging.
func (b *Builder) BuildString() string {
	quoted := make([]string, len(b.args))
	for i, a := range b.args {
		quoted[i] = shQuote(a)
	}
	return strings.Join(quoted, " ")
}

func shQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
