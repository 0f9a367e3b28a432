package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/service"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/http/response"
	"github.com/sony/gobreaker"
)

type NotificationHandler struct {
	svc  service.NotificationService
	deps Deps
	cb   *gobreaker.CircuitBreaker
}

func NewNotificationHandler(svc service.NotificationService, deps Deps) *NotificationHandler {
	return &NotificationHandler{
		svc:  svc,
		deps: deps,
		cb:   newBreaker("NotificationService", deps),
	}
}

func (h *NotificationHandler) ListUsers(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return response.Error(c, err)
	}

	var role *domain.Role
	if raw := c.Query("role"); raw != "" {
		r := domain.Role(raw)
		role = &r
	}

	users, err := call(c, h.cb, h.deps.Timeout, func(ctx context.Context) ([]domain.Recipient, error) {
		return h.svc.ListRecipients(ctx, caller, role)
	})
	if err != nil {
		return fail(c, h.deps.Logger, "list recipients failed", err)
	}

	return response.Success(c, fiber.StatusOK, fiber.Map{
		"users": users,
		"count": len(users),
	})
}
