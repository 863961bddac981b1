package streamHandler

import (
	streamService "SurveillanceGolang/internal/api/stream/service"
	"SurveillanceGolang/internal/middleware"
	"SurveillanceGolang/pkg/hub"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type StreamHandler struct {
	log           *logrus.Logger
	validator     *validator.Validate
	middleware    middleware.Middleware
	streamService streamService.IStreamService
	hub           hub.IBroadcastHub
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ss streamService.IStreamService,
	broadcastHub hub.IBroadcastHub,
) *StreamHandler {
	return &StreamHandler{
		log:           log,
		validator:     validator,
		middleware:    middleware,
		streamService: ss,
		hub:           broadcastHub,
	}
}

func (h *StreamHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	str := srv.Group("/stream")
	str.Post("/start", h.middleware.NewRateLimiter, h.StartStream)
	str.Post("/stop", h.middleware.NewRateLimiter, h.StopStream)
	str.Use("/ws", wsMiddleware)
	str.Get("/ws", websocket.New(h.handleWebSocket))
}
