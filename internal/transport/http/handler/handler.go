package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/http/middleware"
	"github.com/socsahar/Vapes-Shop-sub002/internal/transport/http/response"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Deps are shared by every handler.
type Deps struct {
	Logger   *zap.Logger
	Validate *validator.Validate
	Timeout  time.Duration
}

func backendFailure(err error) bool {
	return errors.Is(err, domain.ErrStorage)
}

func newBreaker(name string, deps Deps) *gobreaker.CircuitBreaker {
	return utils.NewBreaker(name, deps.Logger, backendFailure)
}

// call runs fn through cb with the request context bounded by timeout.
func call[T any](c *fiber.Ctx, cb *gobreaker.CircuitBreaker, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	return utils.ExecuteWithBreaker(cb, func() (T, error) {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()

		return fn(ctx)
	})
}

func fail(c *fiber.Ctx, logger *zap.Logger, msg string, err error) error {
	if response.Status(err) >= fiber.StatusInternalServerError {
		mylogger.Error(c.UserContext(), logger, msg, zap.Error(err))
	} else {
		mylogger.Warn(c.UserContext(), logger, msg, zap.Error(err))
	}

	return response.Error(c, err)
}

func callerOf(c *fiber.Ctx) (domain.Caller, error) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return domain.Caller{}, domain.ErrUnauthenticated
	}

	return caller, nil
}
