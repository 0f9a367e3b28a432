package repository

import (
	"context"
	"time"

	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type GeneralOrderRepository interface {
	ListAll(ctx context.Context, q db.DBTX) ([]domain.GeneralOrder, error)
	ListOpen(ctx context.Context, q db.DBTX, now time.Time) ([]domain.GeneralOrder, error)
	CloseExpired(ctx context.Context, q db.DBTX, now time.Time) ([]int64, error)
}

type generalOrderRepo struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func NewGeneralOrderRepository(logger *zap.Logger) GeneralOrderRepository {
	return &generalOrderRepo{
		logger: logger,
		tracer: otel.Tracer("general_order_repository"),
	}
}

const generalOrderColumns = `id, title, COALESCE(description, ''), deadline, status, created_at`

func (r *generalOrderRepo) ListAll(ctx context.Context, q db.DBTX) ([]domain.GeneralOrder, error) {
	ctx, span := r.tracer.Start(ctx, "GeneralOrderRepository.ListAll")
	defer span.End()

	query := `
		SELECT ` + generalOrderColumns + `
		FROM general_orders
		ORDER BY created_at DESC, id DESC
	`

	result, err := r.list(ctx, q, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result_count", len(result)))

	return result, nil
}

// ListOpen returns campaigns that still accept purchases at now. A deadline equal
// to now is still open.
func (r *generalOrderRepo) ListOpen(ctx context.Context, q db.DBTX, now time.Time) ([]domain.GeneralOrder, error) {
	ctx, span := r.tracer.Start(ctx, "GeneralOrderRepository.ListOpen")
	defer span.End()

	span.SetAttributes(attribute.String("now", now.Format(time.RFC3339)))

	query := `
		SELECT ` + generalOrderColumns + `
		FROM general_orders
		WHERE status = 'open' AND deadline >= $1
		ORDER BY created_at DESC, id DESC
	`

	result, err := r.list(ctx, q, query, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result_count", len(result)))

	return result, nil
}

func (r *generalOrderRepo) CloseExpired(ctx context.Context, q db.DBTX, now time.Time) ([]int64, error) {
	ctx, span := r.tracer.Start(ctx, "GeneralOrderRepository.CloseExpired")
	defer span.End()

	query := `
		UPDATE general_orders
		SET status = 'closed', updated_at = NOW()
		WHERE status = 'open' AND deadline < $1
		RETURNING id
	`

	rows, err := q.Query(ctx, query, now)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to close expired general orders", zap.Error(err))

		return nil, storageError("close expired general orders", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			span.RecordError(err)
			return nil, storageError("scan closed general order", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, storageError("iterate closed general orders", err)
	}

	span.SetAttributes(attribute.Int("closed_count", len(ids)))

	return ids, nil
}

func (r *generalOrderRepo) list(ctx context.Context, q db.DBTX, query string, args ...any) ([]domain.GeneralOrder, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		mylogger.Error(ctx, r.logger, "Failed to query general orders", zap.Error(err))
		return nil, storageError("list general orders", err)
	}
	defer rows.Close()

	result := make([]domain.GeneralOrder, 0)
	for rows.Next() {
		var g domain.GeneralOrder
		if err := rows.Scan(
			&g.ID,
			&g.Title,
			&g.Description,
			&g.Deadline,
			&g.Status,
			&g.CreatedAt,
		); err != nil {
			mylogger.Error(ctx, r.logger, "Failed to scan general order", zap.Error(err))
			return nil, storageError("scan general order", err)
		}

		result = append(result, g)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate general orders", err)
	}

	return result, nil
}
