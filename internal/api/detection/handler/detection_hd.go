package detectionHandler

import (
	"CrackDetection/internal/api/detection"
	contextPkg "CrackDetection/pkg/context"
	"CrackDetection/pkg/handlerUtil"
	"CrackDetection/pkg/log"
	"CrackDetection/pkg/utils"
	"errors"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *DetectionHandler) UploadVideo(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.processingTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file, err := ctx.FormFile(VideoFormField)
	if err != nil {
		return errHandler.Handle(ctx, requestID, detection.ErrVideoRequired, ctx.Path(), "read_form_file")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_name":  file.Filename,
		"file_size":  file.Size,
	}).Debug("Processing video upload")

	req := detection.VideoUploadRequest{
		FileName:    file.Filename,
		Size:        file.Size,
		ContentType: file.Header.Get(fiber.HeaderContentType),
	}
	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.utils.ValidateVideoFile(file); err != nil {
		if errors.Is(err, utils.ErrFileTooLarge) {
			return errHandler.Handle(ctx, requestID, detection.ErrVideoTooLarge, ctx.Path(), "validate_video_file")
		}
		return errHandler.Handle(ctx, requestID, detection.ErrInvalidVideoFile, ctx.Path(), "validate_video_file")
	}

	fileContent, err := file.Open()
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "open_file")
	}
	defer fileContent.Close()

	result, err := h.detectionService.AnalyzeVideo(c, fileContent, file.Filename)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze_video")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"frames":     result.Stats.TotalFramesProcessed,
		"detections": result.Stats.TotalDetections,
		"coverage":   result.Stats.CoveragePercentage,
	}).Info("Video analysis successful")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.AnalysisResponse{
		Status: detection.StatusSuccess,
		Stats:  result.Stats,
		Video:  result.Video,
	})
}
