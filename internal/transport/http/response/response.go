package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/sony/gobreaker"
)

func Success(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

// Error writes the failure envelope for err. Storage details stay in the logs.
func Error(c *fiber.Ctx, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "service temporarily unavailable",
			"code":  "UNAVAILABLE",
		})
	}

	kind := domain.Kind(err)
	body := fiber.Map{
		"error": err.Error(),
		"code":  kind,
	}

	var partial *domain.PartialFailureError
	switch {
	case errors.As(err, &partial):
		body["error"] = "order items were removed but the order could not be deleted"
		body["order_id"] = partial.OrderID
	case kind == "STORAGE" || kind == "INTERNAL":
		body["error"] = "internal error"
	}

	return c.Status(Status(err)).JSON(body)
}

func Status(err error) int {
	switch domain.Kind(err) {
	case "UNAUTHENTICATED":
		return fiber.StatusUnauthorized
	case "FORBIDDEN":
		return fiber.StatusForbidden
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "VALIDATION":
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// Validation writes a 400 with per-field messages.
func Validation(c *fiber.Ctx, fields map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "invalid request",
		"code":   "VALIDATION",
		"fields": fields,
	})
}
