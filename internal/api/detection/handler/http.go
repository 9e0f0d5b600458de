package detectionHandler

import (
	detectionService "CrackDetection/internal/api/detection/service"
	"CrackDetection/internal/middleware"
	"CrackDetection/pkg/utils"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const VideoFormField = "video"

type DetectionHandler struct {
	log               *logrus.Logger
	validator         *validator.Validate
	middleware        middleware.Middleware
	detectionService  detectionService.IDetectionService
	utils             utils.IUtils
	processingTimeout time.Duration
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
	processingTimeout time.Duration,
) *DetectionHandler {
	if processingTimeout <= 0 {
		processingTimeout = 5 * time.Minute
	}

	return &DetectionHandler{
		detectionService:  ds,
		log:               log,
		validator:         validator,
		middleware:        middleware,
		utils:             utils,
		processingTimeout: processingTimeout,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	inspection := srv.Group("/inspection")
	inspection.Post("/upload", h.middleware.NewRateLimiter, h.UploadVideo)
}

// StartLegacy mounts the upload route at the path the mobile client was built against.
func (h *DetectionHandler) StartLegacy(srv fiber.Router) {
	srv.Post("/upload", h.middleware.NewRateLimiter, h.UploadVideo)
}
