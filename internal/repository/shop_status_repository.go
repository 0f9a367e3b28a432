package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ShopStatusRepository interface {
	Get(ctx context.Context, q db.DBTX) (*domain.ShopStatus, error)
	Transition(ctx context.Context, q db.DBTX, t domain.StatusTransition) error
}

type shopStatusRepo struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func NewShopStatusRepository(logger *zap.Logger) ShopStatusRepository {
	return &shopStatusRepo{
		logger: logger,
		tracer: otel.Tracer("shop_status_repository"),
	}
}

func (r *shopStatusRepo) Get(ctx context.Context, q db.DBTX) (*domain.ShopStatus, error) {
	ctx, span := r.tracer.Start(ctx, "ShopStatusRepository.Get")
	defer span.End()

	query := `
		SELECT s.is_open, s.current_general_order_id, s.message, s.updated_at,
			g.id, g.title, COALESCE(g.description, ''), g.deadline, g.status
		FROM shop_status s
		LEFT JOIN general_orders g ON g.id = s.current_general_order_id
		WHERE s.id = 1
	`

	var (
		status  domain.ShopStatus
		gID     *int64
		gTitle  *string
		gDesc   *string
		gDue    *time.Time
		gStatus *string
	)
	err := q.QueryRow(ctx, query).Scan(
		&status.IsOpen,
		&status.CurrentGeneralOrderID,
		&status.Message,
		&status.UpdatedAt,
		&gID,
		&gTitle,
		&gDesc,
		&gDue,
		&gStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			mylogger.Warn(ctx, r.logger, "Shop status row missing")
			return nil, ErrShopStatusNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to read shop status", zap.Error(err))

		return nil, storageError("get shop status", err)
	}

	if gID != nil {
		status.GeneralOrder = &domain.GeneralOrderSummary{
			ID:          *gID,
			Title:       deref(gTitle),
			Description: deref(gDesc),
			Deadline:    derefTime(gDue),
			Status:      domain.GeneralOrderStatus(deref(gStatus)),
		}
	}

	span.SetAttributes(attribute.Bool("is_open", status.IsOpen))

	return &status, nil
}

// Transition replaces the singleton in one statement through the
// transition_shop_status function, which also rejects missing and archived
// general orders.
func (r *shopStatusRepo) Transition(ctx context.Context, q db.DBTX, t domain.StatusTransition) error {
	ctx, span := r.tracer.Start(ctx, "ShopStatusRepository.Transition")
	defer span.End()

	span.SetAttributes(attribute.Bool("is_open", t.IsOpen))
	if t.GeneralOrderID != nil {
		span.SetAttributes(attribute.Int64("general_order_id", *t.GeneralOrderID))
	}

	query := `SELECT transition_shop_status($1, $2, $3)`

	if _, err := q.Exec(ctx, query, t.IsOpen, t.GeneralOrderID, t.Message); err != nil {
		switch pgCode(err) {
		case pgForeignKeyViolation:
			return ErrGeneralOrderNotFound
		case pgCheckViolation:
			return ErrGeneralOrderArchived
		case pgNoDataFound:
			return ErrShopStatusNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to transition shop status", zap.Error(err))

		return storageError("transition shop status", err)
	}

	return nil
}
