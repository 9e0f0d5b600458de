package ffmpeg

import (
	"CrackDetection/internal/entity"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const DefaultFPS = 30.0

var (
	ErrNoVideoStream     = errors.New("no video stream found")
	ErrInvalidDimensions = errors.New("video stream has no frame size")
)

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

func (s *frameSource) probe(ctx context.Context, videoPath string) (entity.VideoMeta, error) {
	cmd := exec.CommandContext(ctx, s.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate",
		"-of", "json",
		videoPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return entity.VideoMeta{}, fmt.Errorf("ffprobe: %w, output: %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseProbeOutput(output)
}

func parseProbeOutput(output []byte) (entity.VideoMeta, error) {
	var probe probeOutput
	if err := jsoniter.Unmarshal(output, &probe); err != nil {
		return entity.VideoMeta{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return entity.VideoMeta{}, ErrNoVideoStream
	}

	stream := probe.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return entity.VideoMeta{}, ErrInvalidDimensions
	}

	fps := parseFrameRate(stream.AvgFrameRate)
	if fps == 0 {
		fps = parseFrameRate(stream.RFrameRate)
	}
	if fps == 0 {
		fps = DefaultFPS
	}

	return entity.VideoMeta{
		Width:  stream.Width,
		Height: stream.Height,
		FPS:    fps,
	}, nil
}

// parseFrameRate reads ffprobe rates such as "30000/1001" or "25". Unknown rates
// ("0/0", empty, garbage) yield 0.
func parseFrameRate(rate string) float64 {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return 0
	}

	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n <= 0 {
		return 0
	}
	if !found {
		return n
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d <= 0 {
		return 0
	}
	return n / d
}
