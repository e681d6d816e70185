package transcoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressParserCapturesDurationOnce(t *testing.T) {
	p := newProgressParser()
	start := time.Now().Add(-1 * time.Second)

	_, ok := p.feed("Duration: 00:02:00.00, start: 0.000000, bitrate: 128 kb/s", start)
	assert.False(t, ok)
	assert.True(t, p.haveDuration)
	assert.Equal(t, 120.0, p.durationSeconds)

	_, ok = p.feed("Duration: 00:05:00.00", start)
	assert.False(t, ok)
	assert.Equal(t, 120.0, p.durationSeconds, "duration should only be captured once")
}

func TestProgressParserTimeBasedPercent(t *testing.T) {
	p := newProgressParser()
	start := time.Now().Add(-1 * time.Second)

	_, _ = p.feed("Duration: 00:01:00.00", start)
	prog, ok := p.feed("frame=100 fps=25 q=-1.0 size=1024kB time=00:00:30.00 bitrate=256.0kbits/s speed=1.0x", start)
	require.True(t, ok)
	assert.InDelta(t, 50.0, prog.PercentIfKnown, 0.01)
	assert.True(t, prog.PercentKnown)
	assert.Equal(t, int64(1024*1024), prog.BytesWritten)
	assert.InDelta(t, 256.0, prog.BitrateKbps, 0.01)
}

func TestProgressParserSizeOnlyEstimatesTotal(t *testing.T) {
	p := newProgressParser()
	start := time.Now().Add(-2 * time.Second)

	_, _ = p.feed("Duration: 00:00:10.00", start)
	prog, ok := p.feed("size=2048kB", start)
	require.True(t, ok)
	assert.True(t, prog.PercentKnown)
	assert.Greater(t, prog.EstimatedTotalB, int64(0))
}

func TestProgressParserIgnoresUnrelatedLines(t *testing.T) {
	p := newProgressParser()
	_, ok := p.feed("Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'input.ts':", time.Now())
	assert.False(t, ok)
}
