package streamHandler

import (
	"time"

	"SurveillanceGolang/internal/api/stream"
	contextPkg "SurveillanceGolang/pkg/context"
	"SurveillanceGolang/pkg/handlerUtil"
	"SurveillanceGolang/pkg/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

func (h *StreamHandler) StartStream(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing start stream request")

	if err := h.streamService.StartStream(c); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "start_stream")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Info("Streaming started")
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, stream.StartStreamResponse{
		Status: "ok",
	})
}

func (h *StreamHandler) StopStream(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 30*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing stop stream request")

	var req stream.StopStreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	report, err := h.streamService.StopStream(c, req.Objects())
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "stop_stream")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id":        requestID,
			"path":              ctx.Path(),
			"threat_level":      report.ThreatLevel,
			"threat_percentage": report.ThreatPercentage,
		}).Info("Threat analysis complete")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, stream.StopStreamResponse{
			Status:   "ok",
			Analysis: *report,
		})
	}
}

func (h *StreamHandler) handleWebSocket(c *websocket.Conn) {
	h.log.Info("Detection stream WebSocket client connected")
	defer h.log.Info("Detection stream WebSocket client disconnected")

	h.hub.Subscribe(c)
	defer h.hub.Unsubscribe(c)

	c.SetPingHandler(func(data string) error {
		h.log.Debug("Received ping, sending pong")
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	maxReadTimeout := 60 * time.Second

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		// Clients only send keep-alive no-ops; the hub pushes batches on
		// its own goroutine.
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Detection stream WebSocket error: %v", err)
			} else {
				h.log.Info("Detection stream WebSocket connection closed")
			}
			break
		}
	}
}
