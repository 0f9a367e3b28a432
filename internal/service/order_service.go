package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
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

type DeleteResult struct {
	OrderID      int64 `json:"order_id"`
	ItemsDeleted int64 `json:"items_deleted"`
}

type OrderService interface {
	ListOrders(ctx context.Context) ([]domain.OrderView, error)
	DeleteOrder(ctx context.Context, caller domain.Caller, orderID int64) (*DeleteResult, error)
}

type orderService struct {
	tx         db.Transactor
	orders     repository.OrderRepository
	users      repository.UserRepository
	outboxRepo worker.OutboxRepository
	topic      string
	metrics    *Metrics
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func NewOrderService(
	tx db.Transactor,
	orders repository.OrderRepository,
	users repository.UserRepository,
	outboxRepo worker.OutboxRepository,
	topic string,
	metrics *Metrics,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		tx:         tx,
		orders:     orders,
		users:      users,
		outboxRepo: outboxRepo,
		topic:      topic,
		metrics:    metrics,
		logger:     logger,
		tracer:     otel.Tracer("order_service"),
		now:        time.Now,
	}
}

func (s *orderService) ListOrders(ctx context.Context) ([]domain.OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.orders.ListOrders(ctx, s.tx.Conn())
	if err != nil {
		span.RecordError(err)
		return nil, domain.AsStorage("list orders", err)
	}

	views := Aggregate(ctx, s.logger, orders, s.purchaser, s.metrics.PurchaserMisses.Inc)

	span.SetAttributes(attribute.Int("result_count", len(views)))

	return views, nil
}

func (s *orderService) purchaser(ctx context.Context, userID uuid.UUID) (*domain.Purchaser, error) {
	u, err := s.users.GetByID(ctx, s.tx.Conn(), userID)
	if err != nil {
		return nil, err
	}

	return &domain.Purchaser{
		Name:     u.FullName,
		Phone:    u.Phone,
		Username: u.Username,
	}, nil
}

// DeleteOrder removes the order's items and then the order. Without transactional
// storage a failure between the two steps is reported as a PartialFailureError.
func (s *orderService) DeleteOrder(ctx context.Context, caller domain.Caller, orderID int64) (*DeleteResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.DeleteOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Bool("atomic", s.tx.Atomic()),
	)

	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: deleting orders requires admin", domain.ErrForbidden)
	}

	if orderID <= 0 {
		return nil, fmt.Errorf("%w: order id must be positive", domain.ErrValidation)
	}

	result := &DeleteResult{OrderID: orderID}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		if err := s.orders.LockOrder(ctx, q, orderID); err != nil {
			return err
		}

		deleted, err := s.orders.DeleteItems(ctx, q, orderID)
		if err != nil {
			return err
		}
		result.ItemsDeleted = deleted

		if err := s.orders.DeleteOrder(ctx, q, orderID); err != nil {
			if !s.tx.Atomic() && !errors.Is(err, domain.ErrNotFound) {
				return &domain.PartialFailureError{Op: "delete order", OrderID: orderID, Err: err}
			}
			return err
		}

		return s.emitDeleted(ctx, q, caller, result)
	})
	if err != nil {
		span.RecordError(err)
		err = domain.AsStorage("delete order", err)
		s.metrics.DeleteFailures.WithLabelValues(domain.Kind(err)).Inc()

		var partial *domain.PartialFailureError
		if errors.As(err, &partial) {
			mylogger.Error(
				ctx,
				s.logger,
				"Order items removed but order row remains",
				zap.Int64("order_id", orderID),
				zap.Error(err),
			)
		}

		return nil, err
	}

	s.metrics.OrdersDeleted.Inc()

	mylogger.Info(
		ctx,
		s.logger,
		"Order deleted",
		zap.Int64("order_id", orderID),
		zap.Int64("items_deleted", result.ItemsDeleted),
		zap.String("deleted_by", caller.ID.String()),
	)

	return result, nil
}

func (s *orderService) emitDeleted(ctx context.Context, q db.DBTX, caller domain.Caller, result *DeleteResult) error {
	event, err := outboxDomain.NewEvent(
		s.topic,
		"Order",
		strconv.FormatInt(result.OrderID, 10),
		domain.EventOrderDeleted,
		domain.OrderDeletedEvent{
			OrderID:      result.OrderID,
			ItemsDeleted: result.ItemsDeleted,
			DeletedBy:    caller.ID,
			DeletedAt:    s.now().UTC(),
		},
	)
	if err != nil {
		return err
	}

	if err := s.outboxRepo.SaveOutboxEvent(ctx, q, event); err != nil {
		if !s.tx.Atomic() {
			// The rows are already gone, so the deletion stands without its event.
			mylogger.Warn(ctx, s.logger, "Failed to save OrderDeleted event", zap.Int64("order_id", result.OrderID), zap.Error(err))
			return nil
		}

		return fmt.Errorf("%w: save outbox event: %w", domain.ErrStorage, err)
	}

	return nil
}
