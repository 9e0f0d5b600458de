package ffmpeg

import (
	"CrackDetection/internal/entity"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

var ErrTruncatedFrame = errors.New("truncated frame at end of stream")

type IFrameSource interface {
	Open(ctx context.Context, videoPath string) (FrameStream, error)
}

// FrameStream yields the decoded frames of one video in order. Next returns io.EOF once
// the video is exhausted. The image returned by Next is only valid until the following
// call. Close must always be called and is safe to call more than once.
type FrameStream interface {
	Meta() entity.VideoMeta
	Next() (image.Image, error)
	Close() error
}

type frameSource struct {
	ffmpegPath  string
	ffprobePath string
	log         *logrus.Logger
}

func New(ffmpegPath, ffprobePath string, log *logrus.Logger) IFrameSource {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	return &frameSource{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		log:         log,
	}
}

func (s *frameSource) Open(ctx context.Context, videoPath string) (FrameStream, error) {
	meta, err := s.probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-v", "error",
		"-nostdin",
		"-noautorotate",
		"-i", videoPath,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"path":   videoPath,
		"width":  meta.Width,
		"height": meta.Height,
		"fps":    meta.FPS,
	}).Debug("ffmpeg frame stream opened")

	return &frameStream{
		ctx:    ctx,
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		meta:   meta,
		frame:  image.NewRGBA(image.Rect(0, 0, meta.Width, meta.Height)),
	}, nil
}

type frameStream struct {
	ctx    context.Context
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	meta   entity.VideoMeta
	frame  *image.RGBA
	done   bool
	err    error
}

func (f *frameStream) Meta() entity.VideoMeta {
	return f.meta
}

func (f *frameStream) Next() (image.Image, error) {
	if f.done {
		if f.err != nil {
			return nil, f.err
		}
		return nil, io.EOF
	}

	_, err := io.ReadFull(f.stdout, f.frame.Pix)
	switch {
	case err == nil:
		return f.frame, nil
	case errors.Is(err, io.EOF):
		f.err = f.wait()
	case errors.Is(err, io.ErrUnexpectedEOF):
		f.err = f.wait()
		if f.err == nil {
			f.err = ErrTruncatedFrame
		}
	default:
		f.err = fmt.Errorf("read frame: %w", err)
		f.kill()
	}

	if f.err != nil {
		return nil, f.err
	}
	return nil, io.EOF
}

func (f *frameStream) Close() error {
	if f.done {
		return nil
	}
	f.kill()
	return nil
}

func (f *frameStream) wait() error {
	f.done = true
	if err := f.cmd.Wait(); err != nil {
		if ctxErr := f.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("ffmpeg: %w, output: %s", err, strings.TrimSpace(f.stderr.String()))
	}
	return nil
}

func (f *frameStream) kill() {
	f.done = true
	if f.cmd.Process != nil {
		_ = f.cmd.Process.Kill()
	}
	_ = f.cmd.Wait()
}
