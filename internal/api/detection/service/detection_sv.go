package detectionService

import (
	"CrackDetection/internal/api/detection"
	"CrackDetection/pkg/log"
	"CrackDetection/pkg/metrics"
	"CrackDetection/pkg/stats"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/net/context"
)

// AnalyzeVideo stores the upload in a temp file, scores every frame and returns the
// aggregated crack statistics. The temp file is removed on every path.
func (s *detectionService) AnalyzeVideo(ctx context.Context, video io.Reader, fileName string) (*detection.AnalysisResult, error) {
	start := time.Now()

	metrics.ActiveAnalyses.Inc()
	defer metrics.ActiveAnalyses.Dec()

	videoPath, err := s.utils.SaveToTempFile(s.cfg.TempDir, filepath.Ext(fileName), video)
	if err != nil {
		metrics.VideosProcessedTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: save upload: %v", detection.ErrInternalServerError, err)
	}
	defer func() {
		if err := os.Remove(videoPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithRequestID(s.log, ctx).WithFields(log.Fields{
				"path":  videoPath,
				"error": err.Error(),
			}).Warn("Failed to remove temporary video")
		}
	}()

	metrics.VideoProcessingDuration.WithLabelValues("upload").Observe(time.Since(start).Seconds())

	result, err := s.analyze(ctx, videoPath)
	if err != nil {
		metrics.VideosProcessedTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.VideosProcessedTotal.WithLabelValues("success").Inc()
	metrics.VideoProcessingDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())

	log.WithRequestID(s.log, ctx).WithFields(log.Fields{
		"frames":      result.Stats.TotalFramesProcessed,
		"detections":  result.Stats.TotalDetections,
		"coverage":    result.Stats.CoveragePercentage,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Video analysis finished")

	return result, nil
}

func (s *detectionService) analyze(ctx context.Context, videoPath string) (*detection.AnalysisResult, error) {
	stream, err := s.frameSource.Open(ctx, videoPath)
	if err != nil {
		return nil, s.classify(ctx, detection.ErrDecodeFailed, err)
	}
	defer stream.Close()

	meta := stream.Meta()
	aggregator := stats.New(meta.Width, meta.Height, s.cfg.WorkingWidth, s.cfg.WorkingHeight)

	log.WithRequestID(s.log, ctx).WithFields(log.Fields{
		"width":  meta.Width,
		"height": meta.Height,
		"fps":    meta.FPS,
	}).Debug("Scoring video frames")

	s.logDetectorState(ctx)

	scoreStart := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return nil, s.classify(ctx, detection.ErrProcessingTimeout, err)
		}

		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, s.classify(ctx, detection.ErrDecodeFailed,
				fmt.Errorf("frame %d: %w", aggregator.FramesProcessed(), err))
		}

		small := s.utils.ResizeFrame(frame, s.cfg.WorkingWidth, s.cfg.WorkingHeight)

		encoded, err := s.utils.EncodeJPEG(small, s.cfg.JPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("%w: encode frame %d: %v", detection.ErrDetectionFailed, aggregator.FramesProcessed(), err)
		}

		boxes, err := s.websocketPkg.DetectCracks(ctx, encoded)
		if err != nil {
			return nil, s.classify(ctx, detection.ErrDetectionFailed,
				fmt.Errorf("frame %d: %w", aggregator.FramesProcessed(), err))
		}

		aggregator.AddFrame(boxes)
		metrics.FramesProcessedTotal.Inc()
		metrics.DetectionsTotal.Add(float64(len(boxes)))
	}
	metrics.VideoProcessingDuration.WithLabelValues("score").Observe(time.Since(scoreStart).Seconds())

	summary := aggregator.Summary()

	return &detection.AnalysisResult{
		Stats: detection.CrackStats{
			CoveragePercentage:    summary.CoveragePercentage,
			AvgDetectionsPerFrame: summary.AvgDetectionsPerFrame,
			PerFrameDensity:       summary.PerFrameDensity,
			TotalFramesProcessed:  summary.FramesProcessed,
			TotalDetections:       summary.TotalDetections,
		},
		Video: detection.VideoInfo{
			Width:  meta.Width,
			Height: meta.Height,
			FPS:    meta.FPS,
		},
	}, nil
}

// logDetectorState notes a cold detector connection; the first DetectCracks call dials it.
func (s *detectionService) logDetectorState(ctx context.Context) {
	if !s.websocketPkg.IsConnected() {
		log.WithRequestID(s.log, ctx).Debug("Crack detection service not connected, dialing on first frame")
	}
}

// classify wraps cause with kind, unless the request deadline is what stopped us.
func (s *detectionService) classify(ctx context.Context, kind error, cause error) error {
	if ctx.Err() != nil || errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		return fmt.Errorf("%w: %v", detection.ErrProcessingTimeout, cause)
	}
	return fmt.Errorf("%w: %v", kind, cause)
}
