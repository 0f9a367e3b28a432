package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db   Pinger
	deps Deps
}

func NewHealthHandler(db Pinger, deps Deps) *HealthHandler {
	return &HealthHandler{db: db, deps: deps}
}

func (h *HealthHandler) Healthz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.deps.Timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		mylogger.Error(ctx, h.deps.Logger, "health check failed", zap.Error(err))

		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}
