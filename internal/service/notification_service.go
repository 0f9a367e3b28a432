package service

import (
	"context"
	"fmt"

	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/repository"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type NotificationService interface {
	// ListRecipients returns users ordered by name, optionally limited to one role.
	ListRecipients(ctx context.Context, caller domain.Caller, role *domain.Role) ([]domain.Recipient, error)
}

type notificationService struct {
	conn   db.DBTX
	users  repository.UserRepository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewNotificationService(conn db.DBTX, users repository.UserRepository, logger *zap.Logger) NotificationService {
	return &notificationService{
		conn:   conn,
		users:  users,
		logger: logger,
		tracer: otel.Tracer("notification_service"),
	}
}

func (s *notificationService) ListRecipients(ctx context.Context, caller domain.Caller, role *domain.Role) ([]domain.Recipient, error) {
	ctx, span := s.tracer.Start(ctx, "NotificationService.ListRecipients")
	defer span.End()

	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: listing recipients requires admin", domain.ErrForbidden)
	}

	if role != nil {
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, *role)
		}
		span.SetAttributes(attribute.String("role", string(*role)))
	}

	users, err := s.users.List(ctx, s.conn, role)
	if err != nil {
		span.RecordError(err)
		return nil, domain.AsStorage("list users", err)
	}

	recipients := make([]domain.Recipient, 0, len(users))
	for _, u := range users {
		recipients = append(recipients, u.Recipient())
	}

	span.SetAttributes(attribute.Int("result_count", len(recipients)))

	return recipients, nil
}
