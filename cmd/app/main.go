package main

import (
	"CrackDetection/internal/config"
	"CrackDetection/pkg/ffmpeg"
	"CrackDetection/pkg/log"
	websocketPkg "CrackDetection/pkg/websocket"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded, using process environment: %v", err)
	}

	validator := config.NewValidator()
	env, err := config.LoadEnv(validator)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	fiberApp := config.NewFiber(logger, env)
	frameSource := ffmpeg.New(env.FFmpegPath, env.FFprobePath, logger)
	crackWebsocket := websocketPkg.NewAIWebSocketClient(websocketPkg.Config{
		URL:          env.CrackDetectionURL,
		PingInterval: env.DetectorPingInterval,
		ReadTimeout:  env.DetectorReadTimeout,
		WriteTimeout: env.DetectorWriteTimeout,
	}, logger)

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithEnv(env),
		config.WithValidator(validator),
		config.WithUtils(),
		config.WithMiddleware(),
		config.WithFrameSource(frameSource),
		config.WithCrackWebSocket(crackWebsocket),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(shutdownTimeout); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}
