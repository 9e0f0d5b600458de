package handlerUtil

import (
	"CrackDetection/internal/api/detection"
	"CrackDetection/pkg/log"
	"CrackDetection/pkg/response"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const processingFailedPrefix = "Processing failed: "

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// Handle turns err into the failure body. Known response errors keep their status and
// message; anything else is reported as a 500 with a trace id.
func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	if errors.Is(err, detection.ErrProcessingTimeout) {
		h.logger.WithFields(fields).Warn("Video processing timed out")
		return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
			Error: processingFailedPrefix + err.Error(),
			Code:  "PROCESSING_TIMEOUT",
		})
	}

	if errors.Is(err, detection.ErrDecodeFailed) {
		h.logger.WithFields(fields).Warn("Video could not be decoded")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error: processingFailedPrefix + err.Error(),
			Code:  "DECODE_FAILED",
		})
	}

	if errors.Is(err, detection.ErrDetectionFailed) {
		traceID := log.ErrorWithTraceID(fields, "Crack detection failed")
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:   processingFailedPrefix + err.Error(),
			Code:    "DETECTION_FAILED",
			TraceID: traceID,
		})
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		if respErr.Code >= fiber.StatusInternalServerError {
			traceID := log.ErrorWithTraceID(fields, "Operation failed with error response")
			return c.Status(respErr.Code).JSON(ErrorResponse{
				Error:   processingFailedPrefix + err.Error(),
				TraceID: traceID,
			})
		}

		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(ErrorResponse{
			Error: processingFailedPrefix + err.Error(),
		})
	}

	traceID := log.ErrorWithTraceID(fields, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   processingFailedPrefix + "an unexpected error occurred",
		TraceID: traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

// HandleFiberError is the app level fiber.ErrorHandler. It catches what never reaches a
// route handler, such as bodies over the fiber limit or unknown routes, and writes the
// same failure body the routes use.
func (h *ErrorHandler) HandleFiberError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "an unexpected error occurred"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code == fiber.StatusRequestEntityTooLarge {
		message = detection.ErrVideoTooLarge.Error()
	}

	fields := log.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
	}
	if code >= fiber.StatusInternalServerError {
		traceID := log.ErrorWithTraceID(fields, "Unhandled request error")
		return c.Status(code).JSON(ErrorResponse{
			Error:   processingFailedPrefix + message,
			TraceID: traceID,
		})
	}

	h.logger.WithFields(fields).Warn("Request rejected before routing")
	return c.Status(code).JSON(ErrorResponse{
		Error: processingFailedPrefix + message,
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
