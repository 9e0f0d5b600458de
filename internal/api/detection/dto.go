package detection

type VideoUploadRequest struct {
	FileName    string `validate:"required"`
	Size        int64  `validate:"gt=0"`
	ContentType string
}

type CrackStats struct {
	CoveragePercentage    float64   `json:"coverage_percentage"`
	AvgDetectionsPerFrame float64   `json:"avg_detections_per_frame"`
	PerFrameDensity       []float64 `json:"per_frame_density"`
	TotalFramesProcessed  int       `json:"total_frames_processed"`
	TotalDetections       int       `json:"total_detections_detected"`
}

type VideoInfo struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}

type AnalysisResult struct {
	Stats CrackStats
	Video VideoInfo
}

type AnalysisResponse struct {
	Status string     `json:"status"`
	Stats  CrackStats `json:"stats"`
	Video  VideoInfo  `json:"video"`
}

type StatusResponse struct {
	Message string `json:"message,omitempty"`
	Status  string `json:"status"`
}

const StatusSuccess = "success"
