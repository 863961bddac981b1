package config

import (
	"fmt"
	"os"

	streamHandler "SurveillanceGolang/internal/api/stream/handler"
	streamService "SurveillanceGolang/internal/api/stream/service"
	"SurveillanceGolang/internal/middleware"
	"SurveillanceGolang/pkg/camera"
	"SurveillanceGolang/pkg/detector"
	"SurveillanceGolang/pkg/groq"
	"SurveillanceGolang/pkg/hub"
	"SurveillanceGolang/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	log        *logrus.Logger
	middleware middleware.Middleware
	validator  *validator.Validate
	utils      utils.IUtils
	handlers   []handler
	camera     camera.IFrameSource
	detector   detector.IDetector
	groqClient groq.IGroq
	hub        hub.IBroadcastHub
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

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithCamera(frameSource camera.IFrameSource) ServerOption {
	return func(s *Server) error {
		s.camera = frameSource
		return nil
	}
}

func WithDetector(objectDetector detector.IDetector) ServerOption {
	return func(s *Server) error {
		s.detector = objectDetector
		return nil
	}
}

func WithGroqClient(groqClient groq.IGroq) ServerOption {
	return func(s *Server) error {
		s.groqClient = groqClient
		return nil
	}
}

func WithBroadcastHub(broadcastHub hub.IBroadcastHub) ServerOption {
	return func(s *Server) error {
		s.hub = broadcastHub
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Stream domain
	threatAnalyzer := streamService.NewThreatAnalyzer(s.log, s.groqClient)
	streamServices := streamService.New(s.log, s.camera, s.detector, s.hub, threatAnalyzer)
	streamHandlers := streamHandler.New(s.log, s.validator, s.middleware, streamServices, s.hub)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, streamHandlers)
}

func (s *Server) Run() error {
	router := s.engine.Group("/api/v1")
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	for _, h := range s.handlers {
		h.Start(router)
	}

	s.hub.Start()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8000"
	}

	if err := s.engine.Listen(fmt.Sprintf(":%s", port)); err != nil {
		s.hub.Stop()
		if s.detector != nil {
			s.detector.Close()
		}
		return err
	}

	return nil
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
