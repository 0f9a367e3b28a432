package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/service"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/http/response"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type OrderHandler struct {
	svc  service.OrderService
	deps Deps
	cb   *gobreaker.CircuitBreaker
}

func NewOrderHandler(svc service.OrderService, deps Deps) *OrderHandler {
	return &OrderHandler{
		svc:  svc,
		deps: deps,
		cb:   newBreaker("OrderService", deps),
	}
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	views, err := call(c, h.cb, h.deps.Timeout, func(ctx context.Context) ([]domain.OrderView, error) {
		return h.svc.ListOrders(ctx)
	})
	if err != nil {
		return fail(c, h.deps.Logger, "list orders failed", err)
	}

	return response.Success(c, fiber.StatusOK, views)
}

func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	orderID, err := c.ParamsInt("id")
	if err != nil || orderID <= 0 {
		return response.Error(c, fmt.Errorf("%w: order id must be a positive integer", domain.ErrValidation))
	}

	caller, err := callerOf(c)
	if err != nil {
		return response.Error(c, err)
	}

	res, err := call(c, h.cb, h.deps.Timeout, func(ctx context.Context) (*service.DeleteResult, error) {
		return h.svc.DeleteOrder(ctx, caller, int64(orderID))
	})
	if err != nil {
		return fail(c, h.deps.Logger, "delete order failed", err)
	}

	mylogger.Info(
		c.UserContext(),
		h.deps.Logger,
		"delete order succeeded",
		zap.Int64("order_id", res.OrderID),
	)

	return response.Success(c, fiber.StatusOK, res)
}
