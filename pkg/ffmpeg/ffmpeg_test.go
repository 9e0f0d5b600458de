package ffmpeg

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		rate string
		want float64
	}{
		{rate: "30/1", want: 30},
		{rate: "25", want: 25},
		{rate: "30000/1001", want: 30000.0 / 1001.0},
		{rate: "0/0", want: 0},
		{rate: "", want: 0},
		{rate: "abc", want: 0},
		{rate: "30/0", want: 0},
		{rate: "-5/1", want: 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, parseFrameRate(tt.rate), 1e-9, "rate %q", tt.rate)
	}
}

func TestParseProbeOutput(t *testing.T) {
	t.Run("uses average frame rate", func(t *testing.T) {
		meta, err := parseProbeOutput([]byte(`{"streams":[{"width":1920,"height":1080,"r_frame_rate":"60/1","avg_frame_rate":"30/1"}]}`))
		require.NoError(t, err)

		assert.Equal(t, 1920, meta.Width)
		assert.Equal(t, 1080, meta.Height)
		assert.Equal(t, 30.0, meta.FPS)
	})

	t.Run("falls back to default fps", func(t *testing.T) {
		meta, err := parseProbeOutput([]byte(`{"streams":[{"width":640,"height":360,"r_frame_rate":"0/0","avg_frame_rate":"0/0"}]}`))
		require.NoError(t, err)

		assert.Equal(t, DefaultFPS, meta.FPS)
	})

	t.Run("no video stream", func(t *testing.T) {
		_, err := parseProbeOutput([]byte(`{"streams":[]}`))
		assert.ErrorIs(t, err, ErrNoVideoStream)
	})

	t.Run("zero dimensions", func(t *testing.T) {
		_, err := parseProbeOutput([]byte(`{"streams":[{"width":0,"height":0}]}`))
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})

	t.Run("malformed output", func(t *testing.T) {
		_, err := parseProbeOutput([]byte(`not json`))
		assert.Error(t, err)
	})
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping ffmpeg test in short mode")
	}
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH", bin)
		}
	}
}

func generateVideo(t *testing.T, dir string) string {
	t.Helper()

	out := filepath.Join(dir, "testsrc.mp4")
	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-f", "lavfi",
		"-i", "testsrc=size=64x36:rate=5",
		"-t", "1",
		"-c:v", "mpeg4",
		"-pix_fmt", "yuv420p",
		"-y", out,
	)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))

	return out
}

func newTestSource() IFrameSource {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New("", "", logger)
}

func TestFrameSource_ReadsAllFrames(t *testing.T) {
	requireFFmpeg(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	videoPath := generateVideo(t, t.TempDir())

	stream, err := newTestSource().Open(ctx, videoPath)
	require.NoError(t, err)
	defer stream.Close()

	meta := stream.Meta()
	assert.Equal(t, 64, meta.Width)
	assert.Equal(t, 36, meta.Height)
	assert.InDelta(t, 5.0, meta.FPS, 0.01)

	frames := 0
	for {
		frame, err := stream.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 64, frame.Bounds().Dx())
		assert.Equal(t, 36, frame.Bounds().Dy())
		frames++
	}

	assert.Greater(t, frames, 0)

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, stream.Close())
}

func TestFrameSource_CloseBeforeEnd(t *testing.T) {
	requireFFmpeg(t)

	videoPath := generateVideo(t, t.TempDir())

	stream, err := newTestSource().Open(context.Background(), videoPath)
	require.NoError(t, err)

	_, err = stream.Next()
	require.NoError(t, err)

	assert.NoError(t, stream.Close())
	assert.NoError(t, stream.Close())
}

func TestFrameSource_RejectsNonVideo(t *testing.T) {
	requireFFmpeg(t)

	path := filepath.Join(t.TempDir(), "not-a-video.mp4")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a video container"), 0o600))

	_, err := newTestSource().Open(context.Background(), path)
	assert.Error(t, err)
}
