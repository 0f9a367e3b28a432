package service

import (
	"context"
	"fmt"
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

const MaxStatusMessageLength = 500

type ShopStatusService interface {
	GetStatus(ctx context.Context) (*domain.ShopStatus, error)
	// SetStatus replaces the whole singleton. A nil GeneralOrderID clears the
	// binding. Whether the bound general order is still open is not checked.
	SetStatus(ctx context.Context, caller domain.Caller, t domain.StatusTransition) error
}

type shopStatusService struct {
	tx         db.Transactor
	repo       repository.ShopStatusRepository
	outboxRepo worker.OutboxRepository
	topic      string
	metrics    *Metrics
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func NewShopStatusService(
	tx db.Transactor,
	repo repository.ShopStatusRepository,
	outboxRepo worker.OutboxRepository,
	topic string,
	metrics *Metrics,
	logger *zap.Logger,
) ShopStatusService {
	return &shopStatusService{
		tx:         tx,
		repo:       repo,
		outboxRepo: outboxRepo,
		topic:      topic,
		metrics:    metrics,
		logger:     logger,
		tracer:     otel.Tracer("shop_status_service"),
		now:        time.Now,
	}
}

func (s *shopStatusService) GetStatus(ctx context.Context) (*domain.ShopStatus, error) {
	ctx, span := s.tracer.Start(ctx, "ShopStatusService.GetStatus")
	defer span.End()

	status, err := s.repo.Get(ctx, s.tx.Conn())
	if err != nil {
		span.RecordError(err)
		return nil, domain.AsStorage("get shop status", err)
	}

	return status, nil
}

func (s *shopStatusService) SetStatus(ctx context.Context, caller domain.Caller, t domain.StatusTransition) error {
	ctx, span := s.tracer.Start(ctx, "ShopStatusService.SetStatus")
	defer span.End()

	span.SetAttributes(attribute.Bool("is_open", t.IsOpen))

	if !caller.IsAdmin() {
		return fmt.Errorf("%w: changing shop status requires admin", domain.ErrForbidden)
	}

	t, err := normalizeTransition(t)
	if err != nil {
		return err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		if err := s.repo.Transition(ctx, q, t); err != nil {
			return err
		}

		event, err := outboxDomain.NewEvent(
			s.topic,
			"ShopStatus",
			"1",
			domain.EventShopStatusChanged,
			domain.ShopStatusChangedEvent{
				IsOpen:         t.IsOpen,
				GeneralOrderID: t.GeneralOrderID,
				Message:        t.Message,
				ChangedBy:      caller.ID,
				ChangedAt:      s.now().UTC(),
			},
		)
		if err != nil {
			return err
		}

		if err := s.outboxRepo.SaveOutboxEvent(ctx, q, event); err != nil {
			if !s.tx.Atomic() {
				// The singleton is already updated, so the transition stands without its event.
				mylogger.Warn(ctx, s.logger, "Failed to save ShopStatusChanged event", zap.Bool("is_open", t.IsOpen), zap.Error(err))
				return nil
			}

			return fmt.Errorf("%w: save outbox event: %w", domain.ErrStorage, err)
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, s.logger, "Shop status transition rejected", zap.Error(err))

		return domain.AsStorage("set shop status", err)
	}

	state := "closed"
	if t.IsOpen {
		state = "open"
	}
	s.metrics.StatusTransitions.WithLabelValues(state).Inc()

	mylogger.Info(
		ctx,
		s.logger,
		"Shop status changed",
		zap.Bool("is_open", t.IsOpen),
		zap.Int64p("general_order_id", t.GeneralOrderID),
		zap.String("changed_by", caller.ID.String()),
	)

	return nil
}

// normalizeTransition trims the message, storing an empty one as absent.
func normalizeTransition(t domain.StatusTransition) (domain.StatusTransition, error) {
	if t.GeneralOrderID != nil && *t.GeneralOrderID <= 0 {
		return t, fmt.Errorf("%w: general order id must be positive", domain.ErrValidation)
	}

	if t.Message != nil {
		msg := strings.TrimSpace(*t.Message)
		if len([]rune(msg)) > MaxStatusMessageLength {
			return t, fmt.Errorf("%w: message longer than %d characters", domain.ErrValidation, MaxStatusMessageLength)
		}

		if msg == "" {
			t.Message = nil
		} else {
			t.Message = &msg
		}
	}

	return t, nil
}
