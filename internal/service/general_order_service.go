package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/repository"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	outboxDomain "github.com/socsahar/Vapes-Shop-sub002/pkg/outbox/domain"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type GeneralOrderService interface {
	ListAll(ctx context.Context) ([]domain.GeneralOrder, error)
	ListOpen(ctx context.Context, now time.Time) ([]domain.GeneralOrder, error)
	// CloseExpired closes open general orders whose deadline is before now and
	// returns how many were closed.
	CloseExpired(ctx context.Context, caller domain.Caller, now time.Time) (int, error)
}

type generalOrderService struct {
	tx         db.Transactor
	repo       repository.GeneralOrderRepository
	outboxRepo worker.OutboxRepository
	topic      string
	metrics    *Metrics
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewGeneralOrderService(
	tx db.Transactor,
	repo repository.GeneralOrderRepository,
	outboxRepo worker.OutboxRepository,
	topic string,
	metrics *Metrics,
	logger *zap.Logger,
) GeneralOrderService {
	return &generalOrderService{
		tx:         tx,
		repo:       repo,
		outboxRepo: outboxRepo,
		topic:      topic,
		metrics:    metrics,
		logger:     logger,
		tracer:     otel.Tracer("general_order_service"),
	}
}

func (s *generalOrderService) ListAll(ctx context.Context) ([]domain.GeneralOrder, error) {
	ctx, span := s.tracer.Start(ctx, "GeneralOrderService.ListAll")
	defer span.End()

	result, err := s.repo.ListAll(ctx, s.tx.Conn())
	if err != nil {
		span.RecordError(err)
		return nil, domain.AsStorage("list general orders", err)
	}

	return result, nil
}

func (s *generalOrderService) ListOpen(ctx context.Context, now time.Time) ([]domain.GeneralOrder, error) {
	ctx, span := s.tracer.Start(ctx, "GeneralOrderService.ListOpen")
	defer span.End()

	if now.IsZero() {
		return nil, fmt.Errorf("%w: reference time is required", domain.ErrValidation)
	}

	result, err := s.repo.ListOpen(ctx, s.tx.Conn(), now)
	if err != nil {
		span.RecordError(err)
		return nil, domain.AsStorage("list open general orders", err)
	}

	return result, nil
}

func (s *generalOrderService) CloseExpired(ctx context.Context, caller domain.Caller, now time.Time) (int, error) {
	ctx, span := s.tracer.Start(ctx, "GeneralOrderService.CloseExpired")
	defer span.End()

	if !caller.IsAdmin() {
		return 0, fmt.Errorf("%w: closing general orders requires admin", domain.ErrForbidden)
	}

	if now.IsZero() {
		return 0, fmt.Errorf("%w: reference time is required", domain.ErrValidation)
	}

	var closed []int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		ids, err := s.repo.CloseExpired(ctx, q, now)
		if err != nil {
			return err
		}
		closed = ids

		if len(ids) == 0 {
			return nil
		}

		event, err := outboxDomain.NewEvent(
			s.topic,
			"GeneralOrder",
			joinIDs(ids),
			domain.EventGeneralOrdersClosed,
			domain.GeneralOrdersClosedEvent{
				GeneralOrderIDs: ids,
				ClosedBy:        caller.ID,
				ClosedAt:        now.UTC(),
			},
		)
		if err != nil {
			return err
		}

		if err := s.outboxRepo.SaveOutboxEvent(ctx, q, event); err != nil {
			if !s.tx.Atomic() {
				mylogger.Warn(ctx, s.logger, "Failed to save GeneralOrdersClosed event", zap.Int64s("general_order_ids", ids), zap.Error(err))
				return nil
			}

			return fmt.Errorf("%w: save outbox event: %w", domain.ErrStorage, err)
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, domain.AsStorage("close expired general orders", err)
	}

	span.SetAttributes(attribute.Int("closed_count", len(closed)))
	s.metrics.GeneralOrdersClose.Add(float64(len(closed)))

	if len(closed) > 0 {
		mylogger.Info(ctx, s.logger, "Closed expired general orders", zap.Int64s("general_order_ids", closed))
	}

	return len(closed), nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}

	return strings.Join(parts, ",")
}
