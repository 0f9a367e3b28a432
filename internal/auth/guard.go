package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/repository"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Action string

const (
	ActionListOrders         Action = "orders:list"
	ActionDeleteOrder        Action = "orders:delete"
	ActionSetShopStatus      Action = "shop:set-status"
	ActionListRecipients     Action = "notifications:list-users"
	ActionCloseGeneralOrders Action = "general-orders:close-expired"
)

var policy = map[Action][]domain.Role{
	ActionListOrders:         {domain.RoleAdmin},
	ActionDeleteOrder:        {domain.RoleAdmin},
	ActionSetShopStatus:      {domain.RoleAdmin},
	ActionListRecipients:     {domain.RoleAdmin},
	ActionCloseGeneralOrders: {domain.RoleAdmin},
}

type Guard interface {
	// Authorize resolves the bearer credential to a caller allowed to perform
	// action. The role is read from the store on every call.
	Authorize(ctx context.Context, credential string, action Action) (domain.Caller, error)
}

type guard struct {
	tokens *TokenManager
	users  repository.UserRepository
	conn   db.DBTX
	logger *zap.Logger
	tracer trace.Tracer
}

func NewGuard(tokens *TokenManager, users repository.UserRepository, conn db.DBTX, logger *zap.Logger) Guard {
	return &guard{
		tokens: tokens,
		users:  users,
		conn:   conn,
		logger: logger,
		tracer: otel.Tracer("auth_guard"),
	}
}

func (g *guard) Authorize(ctx context.Context, credential string, action Action) (domain.Caller, error) {
	ctx, span := g.tracer.Start(ctx, "Guard.Authorize")
	defer span.End()

	span.SetAttributes(attribute.String("action", string(action)))

	token := strings.TrimSpace(credential)
	if token == "" {
		return domain.Caller{}, fmt.Errorf("%w: missing credential", domain.ErrUnauthenticated)
	}

	userID, err := g.tokens.Parse(token)
	if err != nil {
		mylogger.Debug(ctx, g.logger, "Rejected token", zap.Error(err))
		return domain.Caller{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	span.SetAttributes(attribute.String("user_id", userID.String()))

	role, err := g.users.GetRole(ctx, g.conn, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			mylogger.Warn(ctx, g.logger, "Token subject is not a known user", zap.String("user_id", userID.String()))
			return domain.Caller{}, fmt.Errorf("%w: unknown user", domain.ErrUnauthenticated)
		}

		span.RecordError(err)
		return domain.Caller{}, err
	}

	caller := domain.Caller{ID: userID, Role: role}
	if !allowed(action, role) {
		mylogger.Warn(
			ctx,
			g.logger,
			"Caller lacks permission",
			zap.String("user_id", userID.String()),
			zap.String("role", string(role)),
			zap.String("action", string(action)),
		)

		return caller, fmt.Errorf("%w: %s requires admin", domain.ErrForbidden, action)
	}

	return caller, nil
}

func allowed(action Action, role domain.Role) bool {
	for _, r := range policy[action] {
		if r == role {
			return true
		}
	}

	return false
}
