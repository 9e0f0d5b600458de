package detection

import (
	"CrackDetection/pkg/response"
	"net/http"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrVideoRequired       = response.NewError(http.StatusBadRequest, "video file is required")
	ErrInvalidVideoFile    = response.NewError(http.StatusBadRequest, "uploaded file is not a supported video")
	ErrVideoTooLarge       = response.NewError(http.StatusRequestEntityTooLarge, "video file is too large")
	ErrDecodeFailed        = response.NewError(http.StatusUnprocessableEntity, "failed to decode video")
	ErrDetectionFailed     = response.NewError(http.StatusBadGateway, "crack detection failed")
	ErrProcessingTimeout   = response.NewError(http.StatusRequestTimeout, "video processing timed out")
)
