package stats

import (
	"CrackDetection/internal/entity"
	"math"
)

// Aggregator folds per-frame detections into running totals for a single video.
// It is not safe for concurrent use; every request owns its own instance.
type Aggregator struct {
	nativeWidth   int
	nativeHeight  int
	workingWidth  int
	workingHeight int

	framesProcessed     int
	totalDetectionArea  float64
	totalDetectionCount int
	perFrameDensity     []float64
}

type Summary struct {
	CoveragePercentage    float64   `json:"coverage_percentage"`
	AvgDetectionsPerFrame float64   `json:"avg_detections_per_frame"`
	PerFrameDensity       []float64 `json:"per_frame_density"`
	FramesProcessed       int       `json:"total_frames_processed"`
	TotalDetections       int       `json:"total_detections_detected"`
}

// New returns an aggregator for a video of native size nativeWidth x nativeHeight whose
// frames are scored at workingWidth x workingHeight.
func New(nativeWidth, nativeHeight, workingWidth, workingHeight int) *Aggregator {
	return &Aggregator{
		nativeWidth:     nativeWidth,
		nativeHeight:    nativeHeight,
		workingWidth:    workingWidth,
		workingHeight:   workingHeight,
		perFrameDensity: make([]float64, 0),
	}
}

func (a *Aggregator) FrameArea() float64 {
	return float64(a.nativeWidth) * float64(a.nativeHeight)
}

// AddFrame folds one frame's detections, given in working resolution coordinates, and
// returns the frame's own density. A nil slice counts as a frame without detections.
func (a *Aggregator) AddFrame(boxes []entity.Box) float64 {
	scaleX, scaleY := a.scale()

	frameArea := 0.0
	for _, box := range boxes {
		w := math.Max(box.Width()*scaleX, 0)
		h := math.Max(box.Height()*scaleY, 0)
		frameArea += w * h
	}

	density := 0.0
	if nativeArea := a.FrameArea(); nativeArea > 0 {
		density = frameArea / nativeArea * 100
	}

	a.perFrameDensity = append(a.perFrameDensity, density)
	a.totalDetectionArea += frameArea
	a.totalDetectionCount += len(boxes)
	a.framesProcessed++

	return density
}

func (a *Aggregator) FramesProcessed() int {
	return a.framesProcessed
}

func (a *Aggregator) TotalDetectionArea() float64 {
	return a.totalDetectionArea
}

func (a *Aggregator) TotalDetectionCount() int {
	return a.totalDetectionCount
}

// Summary computes the final statistics. It may be called at any point and does not
// change the aggregator.
func (a *Aggregator) Summary() Summary {
	avg := 0.0
	if a.framesProcessed > 0 {
		avg = float64(a.totalDetectionCount) / float64(a.framesProcessed)
	}

	coverage := 0.0
	if nativeArea := a.FrameArea(); a.framesProcessed > 0 && nativeArea > 0 {
		coverage = a.totalDetectionArea / (nativeArea * float64(a.framesProcessed))
	}

	density := make([]float64, len(a.perFrameDensity))
	for i, d := range a.perFrameDensity {
		density[i] = Round2(d)
	}

	return Summary{
		CoveragePercentage:    Round2(coverage * 100),
		AvgDetectionsPerFrame: Round2(avg),
		PerFrameDensity:       density,
		FramesProcessed:       a.framesProcessed,
		TotalDetections:       a.totalDetectionCount,
	}
}

// scale maps working resolution coordinates back to native resolution. A zero working
// dimension means boxes already arrive in native coordinates.
func (a *Aggregator) scale() (float64, float64) {
	scaleX, scaleY := 1.0, 1.0
	if a.workingWidth > 0 {
		scaleX = float64(a.nativeWidth) / float64(a.workingWidth)
	}
	if a.workingHeight > 0 {
		scaleY = float64(a.nativeHeight) / float64(a.workingHeight)
	}
	return scaleX, scaleY
}

// Round2 rounds to two decimals, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
