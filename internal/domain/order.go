package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID             int64               `db:"id"`
	UserID         uuid.UUID           `db:"user_id"`
	GeneralOrderID *int64              `db:"general_order_id"`
	TotalAmount    decimal.NullDecimal `db:"total_amount"`
	CreatedAt      time.Time           `db:"created_at"`

	Items        []OrderItem
	GeneralOrder *GeneralOrderSummary
}

type OrderItem struct {
	ID         int64               `json:"id" db:"id"`
	OrderID    int64               `json:"order_id" db:"order_id"`
	ProductID  *int64              `json:"product_id" db:"product_id"`
	Quantity   int32               `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal     `json:"unit_price" db:"unit_price"`
	TotalPrice decimal.NullDecimal `json:"total_price" db:"total_price"`

	// Product is read at query time, so old orders show current product data.
	Product *ProductSnapshot `json:"product,omitempty"`
}

type ProductSnapshot struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
}

// LineTotal is the stored total_price, or zero when it is missing.
func (i OrderItem) LineTotal() decimal.Decimal {
	if !i.TotalPrice.Valid {
		return decimal.Zero
	}

	return i.TotalPrice.Decimal
}

func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}

	return total
}

// EffectiveTotal prefers the stored total_amount and recomputes it from the items
// when it is absent or zero.
func (o *Order) EffectiveTotal() decimal.Decimal {
	if o.TotalAmount.Valid && !o.TotalAmount.Decimal.IsZero() {
		return o.TotalAmount.Decimal
	}

	return o.ItemsTotal()
}

func (o *Order) IsGroupOrder() bool {
	return o.GeneralOrderID != nil
}

type Purchaser struct {
	Name     string  `json:"name"`
	Phone    *string `json:"phone"`
	Username *string `json:"username"`
}

// OrderView is the display-ready order returned to admins.
type OrderView struct {
	ID             int64                `json:"id"`
	UserID         uuid.UUID            `json:"user_id"`
	GeneralOrderID *int64               `json:"general_order_id"`
	CreatedAt      time.Time            `json:"created_at"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	ItemsCount     int                  `json:"items_count"`
	IsGroupOrder   bool                 `json:"is_group_order"`
	Items          []OrderItem          `json:"items"`
	GeneralOrder   *GeneralOrderSummary `json:"general_order"`
	User           *Purchaser           `json:"user,omitempty"`
}
