package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	ListOrders(ctx context.Context, q db.DBTX) ([]domain.Order, error)
	LockOrder(ctx context.Context, q db.DBTX, orderID int64) error
	DeleteItems(ctx context.Context, q db.DBTX, orderID int64) (int64, error)
	DeleteOrder(ctx context.Context, q db.DBTX, orderID int64) error
}

type orderRepo struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(logger *zap.Logger) OrderRepository {
	return &orderRepo{
		logger: logger,
		tracer: otel.Tracer("order_repository"),
	}
}

func (r *orderRepo) ListOrders(ctx context.Context, q db.DBTX) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListOrders")
	defer span.End()

	query := `
		SELECT o.id, o.user_id, o.general_order_id, o.total_amount, o.created_at,
			g.id, g.title, COALESCE(g.description, ''), g.deadline, g.status
		FROM orders o
		LEFT JOIN general_orders g ON g.id = o.general_order_id
		ORDER BY o.created_at DESC, o.id DESC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to query orders", zap.Error(err))

		return nil, storageError("list orders", err)
	}
	defer rows.Close()

	var (
		orders []domain.Order
		ids    []int64
	)
	for rows.Next() {
		var (
			o       domain.Order
			gID     *int64
			gTitle  *string
			gDesc   *string
			gDue    *time.Time
			gStatus *string
		)
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.GeneralOrderID,
			&o.TotalAmount,
			&o.CreatedAt,
			&gID,
			&gTitle,
			&gDesc,
			&gDue,
			&gStatus,
		); err != nil {
			span.RecordError(err)
			mylogger.Error(ctx, r.logger, "Failed to scan order", zap.Error(err))

			return nil, storageError("scan order", err)
		}

		if gID != nil {
			o.GeneralOrder = &domain.GeneralOrderSummary{
				ID:          *gID,
				Title:       deref(gTitle),
				Description: deref(gDesc),
				Deadline:    derefTime(gDue),
				Status:      domain.GeneralOrderStatus(deref(gStatus)),
			}
		}

		orders = append(orders, o)
		ids = append(ids, o.ID)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, storageError("iterate orders", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(orders)))

	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsByOrder(ctx, q, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

func (r *orderRepo) itemsByOrder(ctx context.Context, q db.DBTX, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	query := `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price, i.total_price,
			p.id, p.name, p.price, COALESCE(p.description, ''), COALESCE(p.image_url, '')
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.order_id, i.id
	`

	rows, err := q.Query(ctx, query, orderIDs)
	if err != nil {
		mylogger.Error(ctx, r.logger, "Failed to query order_items", zap.Error(err))
		return nil, storageError("list order items", err)
	}
	defer rows.Close()

	result := make(map[int64][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			item   domain.OrderItem
			pID    *int64
			pName  *string
			pPrice decimal.NullDecimal
			pDesc  *string
			pImage *string
		)
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.TotalPrice,
			&pID,
			&pName,
			&pPrice,
			&pDesc,
			&pImage,
		); err != nil {
			mylogger.Error(ctx, r.logger, "Failed to scan order item", zap.Error(err))
			return nil, storageError("scan order item", err)
		}

		if pID != nil {
			item.Product = &domain.ProductSnapshot{
				ID:          *pID,
				Name:        deref(pName),
				Price:       pPrice.Decimal,
				Description: deref(pDesc),
				ImageURL:    deref(pImage),
			}
		}

		result[item.OrderID] = append(result[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate order items", err)
	}

	return result, nil
}

func (r *orderRepo) LockOrder(ctx context.Context, q db.DBTX, orderID int64) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.LockOrder")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `
		SELECT id
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var id int64
	if err := q.QueryRow(ctx, query, orderID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to lock order", zap.Int64("order_id", orderID), zap.Error(err))

		return storageError("lock order", err)
	}

	return nil
}

func (r *orderRepo) DeleteItems(ctx context.Context, q db.DBTX, orderID int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.DeleteItems")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `
		DELETE FROM order_items
		WHERE order_id = $1
	`

	tag, err := q.Exec(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to delete order items", zap.Int64("order_id", orderID), zap.Error(err))

		return 0, storageError("delete order items", err)
	}

	span.SetAttributes(attribute.Int64("items_deleted", tag.RowsAffected()))

	return tag.RowsAffected(), nil
}

func (r *orderRepo) DeleteOrder(ctx context.Context, q db.DBTX, orderID int64) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.DeleteOrder")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	query := `
		DELETE FROM orders
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to delete order", zap.Int64("order_id", orderID), zap.Error(err))

		return storageError("delete order", err)
	}

	if tag.RowsAffected() == 0 {
		mylogger.Warn(ctx, r.logger, "Order not found", zap.Int64("order_id", orderID))
		return ErrOrderNotFound
	}

	return nil
}
