package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	VideosProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crack_videos_processed_total",
		Help: "Total number of uploaded videos analysed, by outcome",
	}, []string{"status"})

	VideoProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crack_video_processing_duration_seconds",
		Help:    "Duration of the video analysis pipeline",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	FramesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crack_frames_processed_total",
		Help: "Total number of frames scored across all videos",
	})

	DetectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crack_detections_total",
		Help: "Total number of crack boxes returned by the model",
	})

	ModelInferenceSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crack_model_inference_seconds_total",
		Help: "Inference time reported by the model service, summed over frames",
	})

	ActiveAnalyses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crack_active_analyses",
		Help: "Number of uploads currently being analysed",
	})
)

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
