package ytdlp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseProgressLine(t *testing.T) {
	p, ok := parseProgressLine("dl:downloading|1048576|4194304|NA")
	require.True(t, ok)
	require.Equal(t, "downloading", p.Status)
	require.Equal(t, int64(1048576), p.Downloaded)
	require.Equal(t, int64(4194304), p.Total)
	require.Equal(t, 25, p.Percent())
}

func TestParseProgressLineEstimateFallback(t *testing.T) {
	p, ok := parseProgressLine("dl:downloading|512|NA|2048.7")
	require.True(t, ok)
	require.Equal(t, int64(512), p.Downloaded)
	require.Equal(t, int64(2048), p.Total)
}

func TestParseProgressLineUnknownTotal(t *testing.T) {
	p, ok := parseProgressLine("dl:downloading|512|NA|NA")
	require.True(t, ok)
	require.Equal(t, int64(0), p.Total)
	require.Equal(t, -1, p.Percent())
}

func TestParseProgressLineFinished(t *testing.T) {
	p, ok := parseProgressLine("dl:finished|4194304|4194304|4194304")
	require.True(t, ok)
	require.Equal(t, "finished", p.Status)
	require.Equal(t, 100, p.Percent())
}

func TestParseProgressLineRejectsOtherOutput(t *testing.T) {
	_, ok := parseProgressLine(`{"id":"abc","title":"t"}`)
	require.False(t, ok)

	_, ok = parseProgressLine("dl:downloading|only|two")
	require.False(t, ok)

	_, ok = parseProgressLine("[download] Destination: x.mp4")
	require.False(t, ok)
}
