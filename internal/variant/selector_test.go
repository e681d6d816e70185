package variant

import (
	"testing"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var variants = []domain.VideoVariant{
	{Bandwidth: 2000000, Height: 720, URL: "720"},
	{Bandwidth: 5000000, Height: 1080, URL: "1080"},
	{Bandwidth: 800000, Height: 480, URL: "480"},
}

func TestSelectVideoByQualityHint(t *testing.T) {
	v, ok := SelectVideo(variants, "720p")
	require.True(t, ok)
	assert.Equal(t, "720", v.URL)

	v, ok = SelectVideo(variants, "1080")
	require.True(t, ok)
	assert.Equal(t, "1080", v.URL)
}

func TestSelectVideoByMaxBandwidth(t *testing.T) {
	v, ok := SelectVideo(variants, "best")
	require.True(t, ok)
	assert.Equal(t, "1080", v.URL)
}

func TestSelectVideoTieBreaksByFirstOccurrence(t *testing.T) {
	tied := []domain.VideoVariant{
		{Bandwidth: 1000, URL: "first"},
		{Bandwidth: 1000, URL: "second"},
	}
	v, ok := SelectVideo(tied, "best")
	require.True(t, ok)
	assert.Equal(t, "first", v.URL)
}

func TestSelectVideoUnmatchedHintFallsBackToBandwidth(t *testing.T) {
	v, ok := SelectVideo(variants, "4320p")
	require.True(t, ok)
	assert.Equal(t, "1080", v.URL)
}

func TestSelectAudioExactMatch(t *testing.T) {
	tracks := []domain.AudioTrack{{Language: "en", Name: "English"}, {Language: "it", Name: "Italiano"}}
	tr, ok := SelectAudio(tracks, "EN")
	require.True(t, ok)
	assert.Equal(t, "English", tr.Name)
}

func TestSelectAudioPrefixMatch(t *testing.T) {
	tracks := []domain.AudioTrack{{Language: "eng", Name: "English"}}
	tr, ok := SelectAudio(tracks, "en")
	require.True(t, ok)
	assert.Equal(t, "English", tr.Name)

	tracks2 := []domain.AudioTrack{{Language: "en", Name: "English"}}
	tr, ok = SelectAudio(tracks2, "eng")
	require.True(t, ok)
	assert.Equal(t, "English", tr.Name)
}

func TestSelectAudioNoMatch(t *testing.T) {
	tracks := []domain.AudioTrack{{Language: "fr", Name: "French"}}
	_, ok := SelectAudio(tracks, "de")
	assert.False(t, ok)
}

func TestSelectSubtitleExactAndAbsent(t *testing.T) {
	tracks := []domain.SubtitleTrack{{Language: "en", Name: "English"}}
	_, ok := SelectSubtitle(tracks, "en")
	assert.True(t, ok)
	_, ok = SelectSubtitle(tracks, "it")
	assert.False(t, ok)
}
