package handlerUtil

import (
	"errors"

	"SurveillanceGolang/internal/api/stream"
	"SurveillanceGolang/pkg/log"
	"SurveillanceGolang/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	// Stream domain errors
	if errors.Is(err, stream.ErrCameraUnavailable) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Camera unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "error",
			"reason": "camera unavailable",
		})
	}

	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}).Error("Unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status": "error",
		"reason": "internal server error",
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]fiber.Map, 0, len(validationErrors))
		for _, fieldErr := range validationErrors {
			details = append(details, fiber.Map{
				"field": fieldErr.Field(),
				"tag":   fieldErr.Tag(),
			})
		}

		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"path":       path,
			"errors":     details,
		}).Warn("Request validation failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error",
			"reason": "invalid request payload",
			"fields": details,
		})
	}

	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       path,
		"error":      err.Error(),
	}).Warn("Request validation failed")
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status": "error",
		"reason": "invalid request payload",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
		"status": "error",
		"reason": "request timed out",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, status int, payload interface{}) error {
	return c.Status(status).JSON(payload)
}
