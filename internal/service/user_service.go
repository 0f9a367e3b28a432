package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/repository"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// UserService keeps the local users table in step with the identity provider.
type UserService interface {
	ApplyUserEvent(ctx context.Context, q db.DBTX, eventType string, event domain.UserEvent) error
}

type userService struct {
	users    repository.UserRepository
	validate *validator.Validate
	metrics  *Metrics
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewUserService(users repository.UserRepository, validate *validator.Validate, metrics *Metrics, logger *zap.Logger) UserService {
	return &userService{
		users:    users,
		validate: validate,
		metrics:  metrics,
		logger:   logger,
		tracer:   otel.Tracer("user_service"),
	}
}

type userEventInput struct {
	Email    string `validate:"required,email"`
	FullName string `validate:"max=200"`
}

func (s *userService) ApplyUserEvent(ctx context.Context, q db.DBTX, eventType string, event domain.UserEvent) error {
	ctx, span := s.tracer.Start(ctx, "UserService.ApplyUserEvent")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_type", eventType),
		attribute.String("user_id", event.UserID.String()),
	)

	if eventType != domain.EventUserRegistered && eventType != domain.EventUserUpdated {
		return fmt.Errorf("%w: unsupported user event %q", domain.ErrValidation, eventType)
	}

	if event.UserID == uuid.Nil {
		s.metrics.UserEvents.WithLabelValues(eventType, "invalid").Inc()
		return fmt.Errorf("%w: user event without user id", domain.ErrValidation)
	}

	if err := s.validate.Struct(userEventInput{Email: event.Email, FullName: event.FullName}); err != nil {
		s.metrics.UserEvents.WithLabelValues(eventType, "invalid").Inc()
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	user := event.User()
	if err := s.users.Upsert(ctx, q, &user); err != nil {
		span.RecordError(err)
		s.metrics.UserEvents.WithLabelValues(eventType, "error").Inc()

		return domain.AsStorage("upsert user", err)
	}

	s.metrics.UserEvents.WithLabelValues(eventType, "applied").Inc()

	mylogger.Info(
		ctx,
		s.logger,
		"User replicated",
		zap.String("event", eventType),
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	return nil
}
