package config

import (
	"CrackDetection/internal/api/detection"
	detectionHandler "CrackDetection/internal/api/detection/handler"
	detectionService "CrackDetection/internal/api/detection/service"
	"CrackDetection/internal/middleware"
	"CrackDetection/pkg/ffmpeg"
	"CrackDetection/pkg/metrics"
	"CrackDetection/pkg/utils"
	websocketPkg "CrackDetection/pkg/websocket"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type ServerOption func(*Server) error

type Server struct {
	engine         *fiber.App
	env            *Env
	log            *logrus.Logger
	middleware     middleware.Middleware
	validator      *validator.Validate
	utils          utils.IUtils
	handlers       []handler
	frameSource    ffmpeg.IFrameSource
	crackWebsocket websocketPkg.IWebsocket
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.env == nil {
		return nil, fmt.Errorf("environment is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithEnv(env *Env) ServerOption {
	return func(s *Server) error {
		s.env = env
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		if s.env == nil {
			return fmt.Errorf("environment must be set before utils")
		}
		s.utils = utils.New(s.env.MaxVideoSizeBytes())
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		if s.utils == nil {
			return fmt.Errorf("utils must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, s.utils, middleware.Config{
			RateLimit: rate.Limit(s.env.RateLimitRPS),
			Burst:     s.env.RateLimitBurst,
		})
		return nil
	}
}

func WithFrameSource(frameSource ffmpeg.IFrameSource) ServerOption {
	return func(s *Server) error {
		s.frameSource = frameSource
		return nil
	}
}

// WithCrackWebSocket sets the process wide model client. It is created once at startup
// and shared by every request.
func WithCrackWebSocket(webSocket websocketPkg.IWebsocket) ServerOption {
	return func(s *Server) error {
		s.crackWebsocket = webSocket
		return nil
	}
}

func (s *Server) RegisterHandler() {
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "*",
	}))
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	// Detection
	detectionServices := detectionService.NewDetectionService(s.log, s.frameSource, s.crackWebsocket, s.utils, detectionService.Config{
		WorkingWidth:  s.env.WorkingWidth,
		WorkingHeight: s.env.WorkingHeight,
		JPEGQuality:   s.env.JPEGQuality,
		TempDir:       s.env.TempDir,
	})
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, detectionServices, s.utils, s.env.ProcessingTimeout)

	s.setupHealthCheck()
	s.engine.Get("/metrics", metrics.Handler())
	detectionHandlers.StartLegacy(s.engine)

	s.handlers = append(s.handlers, detectionHandlers)

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}
}

func (s *Server) Run() error {
	return s.engine.Listen(fmt.Sprintf(":%s", s.env.AppPort))
}

func (s *Server) Shutdown(timeout time.Duration) error {
	if s.crackWebsocket != nil {
		defer s.crackWebsocket.CloseConnections()
	}
	return s.engine.ShutdownWithTimeout(timeout)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(detection.StatusResponse{
			Message: "Crack Detection API",
			Status:  "running",
		})
	})

	s.engine.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(detection.StatusResponse{
			Status: "healthy",
		})
	})
}
