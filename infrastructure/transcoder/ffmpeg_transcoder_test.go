package transcoder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-video-service/domain/ports"
)

func argValue(args []string, flag string) (string, bool) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1], true
		}
	}
	return "", false
}

func TestBuildRenditionArgs_H264(t *testing.T) {
	profile, ok := ports.LookupQualityProfile("720p")
	require.True(t, ok)

	args := buildRenditionArgs(&ports.RenditionOptions{
		InputPath:   "/tmp/in/original.mp4",
		OutputDir:   "/tmp/out/720p",
		Profile:     profile,
		SegmentTime: 6,
		Source:      &ports.VideoInfo{FrameRate: 29.97, HasAudio: true},
	}, ports.H264Config)

	assertArg := func(flag, want string) {
		t.Helper()
		got, ok := argValue(args, flag)
		require.True(t, ok, "missing %s", flag)
		assert.Equal(t, want, got, flag)
	}

	assertArg("-i", "/tmp/in/original.mp4")
	assertArg("-vf", "scale=-2:720")
	assertArg("-c:v", "libx264")
	assertArg("-crf", "23")
	assertArg("-g", "180")
	assertArg("-sc_threshold", "0")
	assertArg("-c:a", "aac")
	assertArg("-b:a", "128000")
	assertArg("-hls_time", "6")
	assertArg("-hls_playlist_type", "vod")
	assertArg("-hls_segment_filename", filepath.Join("/tmp/out/720p", "segment_%03d.ts"))
	assert.Equal(t, filepath.Join("/tmp/out/720p", "playlist.m3u8"), args[len(args)-1])

	_, hasProgress := argValue(args, "-progress")
	assert.False(t, hasProgress)
}

func TestBuildRenditionArgs_NoAudioAndNVENC(t *testing.T) {
	profile, _ := ports.LookupQualityProfile("360p")

	args := buildRenditionArgs(&ports.RenditionOptions{
		InputPath:  "in.mp4",
		OutputDir:  "out",
		Profile:    profile,
		Source:     &ports.VideoInfo{FrameRate: 25},
		OnProgress: func(int) {},
	}, ports.H264NVENCConfig)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-an")
	assert.NotContains(t, joined, "-c:a")
	assert.NotContains(t, joined, "-crf")
	assert.NotContains(t, joined, "-sc_threshold")
	assert.Contains(t, joined, "-b:v 600000")
	assert.Contains(t, joined, "-rc vbr")
	assert.Contains(t, joined, "-progress pipe:1")

	// segment time default 6 วินาที
	gop, _ := argValue(args, "-g")
	assert.Equal(t, "150", gop)
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97002997002997},
		{"25", 25},
		{"0/0", 0},
		{"abc", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, parseFrameRate(tt.in), 1e-9, tt.in)
	}
}

func TestParseProbeOutput(t *testing.T) {
	output := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "r_frame_rate": "30/1"},
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "mjpeg", "width": 300, "height": 300, "r_frame_rate": "90000/1"}
		],
		"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "600.250", "bit_rate": "6000000"}
	}`)

	info, err := parseProbeOutput(output)
	require.NoError(t, err)
	assert.InDelta(t, 600.25, info.Duration, 1e-9)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.Equal(t, "h264", info.Codec)
	assert.Equal(t, "mov", info.Format)
	assert.InDelta(t, 30.0, info.FrameRate, 1e-9)
	assert.True(t, info.HasAudio)
	assert.Equal(t, int64(6000000), info.Bitrate)

	_, err = parseProbeOutput([]byte(`{"streams":[{"codec_type":"audio"}],"format":{}}`))
	assert.ErrorIs(t, err, ErrNoVideoStream)

	_, err = parseProbeOutput([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseProgress(t *testing.T) {
	input := strings.Join([]string{
		"frame=10",
		"out_time_us=0",
		"out_time_us=5000000",
		"out_time_us=5000000",
		"out_time_us=20000000",
		"progress=end",
	}, "\n")

	var got []int
	parseProgress(strings.NewReader(input), 10, func(p int) { got = append(got, p) })
	assert.Equal(t, []int{0, 50, 100}, got)
}

func TestCollectRenditionFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"segment_001.ts", "playlist.m3u8", "segment_000.ts", "ffmpeg.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	result, err := collectRenditionFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Segments)
	assert.Equal(t, []string{
		filepath.Join(dir, "playlist.m3u8"),
		filepath.Join(dir, "segment_000.ts"),
		filepath.Join(dir, "segment_001.ts"),
	}, result.Files)

	empty := t.TempDir()
	_, err = collectRenditionFiles(empty)
	assert.Error(t, err)
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{limit: 5}
	b.Write([]byte("hello "))
	b.Write([]byte("world"))
	assert.Equal(t, "world", b.String())
}
