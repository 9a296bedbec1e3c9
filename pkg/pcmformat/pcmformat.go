// Package pcmformat holds the single fixed raw-audio format shared by the
// voice-chat feeder and the ffmpeg command builder: whatever a Feeder
// writes into a mixin pipe, ffmpeg must be told to read with the exact
// same rate/depth/channel layout, so both sides import this package
// rather than each carrying their own copy of the numbers.
package pcmformat

const (
	SampleRateHz = 48000
	BitDepth     = 16
	Channels     = 2

	// FrameBytes is one 20ms frame at the format above.
	FrameBytes = SampleRateHz / 50 * (BitDepth / 8) * Channels

	// Codec is the ffmpeg -f demuxer name for signed 16-bit little-endian
	// raw PCM, the format written to every mixin pipe.
	Codec = "s16le"
)
