package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/service"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/http/response"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/utils"
	"github.com/sony/gobreaker"
)

type ShopHandler struct {
	svc  service.ShopStatusService
	deps Deps
	cb   *gobreaker.CircuitBreaker
}

func NewShopHandler(svc service.ShopStatusService, deps Deps) *ShopHandler {
	return &ShopHandler{
		svc:  svc,
		deps: deps,
		cb:   newBreaker("ShopStatusService", deps),
	}
}

type SetStatusRequest struct {
	IsOpen         *bool   `json:"is_open" validate:"required"`
	GeneralOrderID *int64  `json:"general_order_id" validate:"omitempty,gt=0"`
	Message        *string `json:"message" validate:"omitempty,max=500"`
}

func (h *ShopHandler) GetStatus(c *fiber.Ctx) error {
	status, err := call(c, h.cb, h.deps.Timeout, func(ctx context.Context) (*domain.ShopStatus, error) {
		return h.svc.GetStatus(ctx)
	})
	if err != nil {
		return fail(c, h.deps.Logger, "get shop status failed", err)
	}

	return response.Success(c, fiber.StatusOK, status)
}

func (h *ShopHandler) SetStatus(c *fiber.Ctx) error {
	var req SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Validation(c, utils.FormatValidationError(err))
	}

	if err := h.deps.Validate.Struct(&req); err != nil {
		return response.Validation(c, utils.FormatValidationError(err))
	}

	caller, err := callerOf(c)
	if err != nil {
		return response.Error(c, err)
	}

	_, err = call(c, h.cb, h.deps.Timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.svc.SetStatus(ctx, caller, domain.StatusTransition{
			IsOpen:         *req.IsOpen,
			GeneralOrderID: req.GeneralOrderID,
			Message:        req.Message,
		})
	})
	if err != nil {
		return fail(c, h.deps.Logger, "set shop status failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "success"})
}
