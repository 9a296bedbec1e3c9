package teamspeak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseTargetExtractsHostChannelAndName(t *testing.T) {
	tgt, err := parseTarget("ts://voice.example.com:9987?channel=main&name=restreamer")
	require.NoError(t, err)
	assert.Equal(t, "voice.example.com:9987", tgt.addr)
	assert.Equal(t, "main", tgt.channel)
	assert.Equal(t, "restreamer", tgt.name)
}

func TestParseTargetRejectsWrongScheme(t *testing.T) {
	_, err := parseTarget("rtmp://voice.example.com:9987")
	assert.Error(t, err)
}

func TestParseTargetRejectsMissingHost(t *testing.T) {
	_, err := parseTarget("ts://")
	assert.Error(t, err)
}

func TestStartRejectsInvalidURLBeforeSpawningTheLoop(t *testing.T) {
	f, err := Start(zap.NewNop(), "rtmp://not-teamspeak", "/tmp/does-not-matter", nil)
	assert.Error(t, err)
	assert.Nil(t, f)
}

func TestNextDelayDoublesUpToMax(t *testing.T) {
	d := 50 * time.Millisecond
	d = nextDelay(d, time.Second)
	assert.Equal(t, 100*time.Millisecond, d)
	d = nextDelay(d, time.Second)
	assert.Equal(t, 200*time.Millisecond, d)
}

func TestNextDelayCapsAtMax(t *testing.T) {
	assert.Equal(t, time.Second, nextDelay(800*time.Millisecond, time.Second))
}
