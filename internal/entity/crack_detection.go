package entity

// Box is an axis aligned bounding box, corners in pixels of the frame it was detected on.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (b Box) Width() float64 {
	return b.X2 - b.X1
}

func (b Box) Height() float64 {
	return b.Y2 - b.Y1
}

// CrackDetectionResult is the reply of the model service for one frame. The model
// service sends boxes as [x1, y1, x2, y2] arrays and may send null instead of an
// empty list.
type CrackDetectionResult struct {
	Boxes           [][]float64 `json:"boxes"`
	InferenceTimeMs float64     `json:"inference_time_ms,omitempty"`
	Error           string      `json:"error,omitempty"`
}

type VideoMeta struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}
