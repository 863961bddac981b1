package main

import (
	"os"
	"os/signal"
	"syscall"

	"SurveillanceGolang/internal/config"
	"SurveillanceGolang/pkg/camera"
	"SurveillanceGolang/pkg/detector"
	"SurveillanceGolang/pkg/groq"
	"SurveillanceGolang/pkg/hub"
	"SurveillanceGolang/pkg/log"
	"SurveillanceGolang/pkg/utils"

	"github.com/joho/godotenv"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()
	frameSource := camera.New(utils.Env("CAMERA_URL", "http://localhost:8080/stream.mjpg"))
	objectDetector := detector.New()
	groqClient := groq.New()
	broadcastHub := hub.New(logger)

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithMiddleware(),
		config.WithCamera(frameSource),
		config.WithDetector(objectDetector),
		config.WithGroqClient(groqClient),
		config.WithBroadcastHub(broadcastHub),
		config.WithUtils(),
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
	broadcastHub.Stop()
	objectDetector.Close()
	frameSource.Close()
}
