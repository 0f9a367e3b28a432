package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/service"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/http/response"
	"github.com/sony/gobreaker"
)

type GeneralOrderHandler struct {
	svc  service.GeneralOrderService
	deps Deps
	cb   *gobreaker.CircuitBreaker
	now  func() time.Time
}

func NewGeneralOrderHandler(svc service.GeneralOrderService, deps Deps, now func() time.Time) *GeneralOrderHandler {
	if now == nil {
		now = time.Now
	}

	return &GeneralOrderHandler{
		svc:  svc,
		deps: deps,
		cb:   newBreaker("GeneralOrderService", deps),
		now:  now,
	}
}

// List serves ?scope=all (default) or ?scope=open.
func (h *GeneralOrderHandler) List(c *fiber.Ctx) error {
	scope := c.Query("scope", "all")

	var fn func(ctx context.Context) ([]domain.GeneralOrder, error)
	switch scope {
	case "all":
		fn = h.svc.ListAll
	case "open":
		now := h.now()
		fn = func(ctx context.Context) ([]domain.GeneralOrder, error) {
			return h.svc.ListOpen(ctx, now)
		}
	default:
		return response.Error(c, fmt.Errorf("%w: scope must be one of [all open]", domain.ErrValidation))
	}

	result, err := call(c, h.cb, h.deps.Timeout, fn)
	if err != nil {
		return fail(c, h.deps.Logger, "list general orders failed", err)
	}

	return response.Success(c, fiber.StatusOK, result)
}

func (h *GeneralOrderHandler) CloseExpired(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return response.Error(c, err)
	}

	now := h.now()
	closed, err := call(c, h.cb, h.deps.Timeout, func(ctx context.Context) (int, error) {
		return h.svc.CloseExpired(ctx, caller, now)
	})
	if err != nil {
		return fail(c, h.deps.Logger, "close expired general orders failed", err)
	}

	return response.Success(c, fiber.StatusOK, fiber.Map{"closed": closed})
}
