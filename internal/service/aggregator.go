package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.uber.org/zap"
)

// PurchaserLookup resolves the display identity of an order's owner.
type PurchaserLookup func(ctx context.Context, userID uuid.UUID) (*domain.Purchaser, error)

// BuildView derives the display fields of one order. The purchaser is attached
// by Aggregate.
func BuildView(o domain.Order) domain.OrderView {
	items := o.Items
	if items == nil {
		items = []domain.OrderItem{}
	}

	return domain.OrderView{
		ID:             o.ID,
		UserID:         o.UserID,
		GeneralOrderID: o.GeneralOrderID,
		CreatedAt:      o.CreatedAt,
		TotalAmount:    o.EffectiveTotal(),
		ItemsCount:     len(o.Items),
		IsGroupOrder:   o.IsGroupOrder(),
		Items:          items,
		GeneralOrder:   o.GeneralOrder,
	}
}

// Aggregate builds views for every order. A purchaser that cannot be resolved
// leaves that view's User empty and never fails the batch. Each distinct user is
// looked up once.
func Aggregate(ctx context.Context, logger *zap.Logger, orders []domain.Order, lookup PurchaserLookup, onMiss func()) []domain.OrderView {
	views := make([]domain.OrderView, 0, len(orders))

	type result struct {
		purchaser *domain.Purchaser
		err       error
	}
	seen := make(map[uuid.UUID]result)

	for _, o := range orders {
		view := BuildView(o)

		res, ok := seen[o.UserID]
		if !ok {
			p, err := lookup(ctx, o.UserID)
			res = result{purchaser: p, err: err}
			seen[o.UserID] = res
		}

		if res.err != nil {
			mylogger.Warn(
				ctx,
				logger,
				"Purchaser lookup failed, listing order without user",
				zap.Int64("order_id", o.ID),
				zap.String("user_id", o.UserID.String()),
				zap.Error(res.err),
			)
			if onMiss != nil {
				onMiss()
			}
		} else {
			view.User = res.purchaser
		}

		views = append(views, view)
	}

	return views
}
