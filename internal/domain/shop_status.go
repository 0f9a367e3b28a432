package domain

import "time"

type ShopStatus struct {
	IsOpen                bool                 `json:"is_open"`
	CurrentGeneralOrderID *int64               `json:"current_general_order_id"`
	Message               *string              `json:"message"`
	UpdatedAt             time.Time            `json:"updated_at"`
	GeneralOrder          *GeneralOrderSummary `json:"general_order"`
}

// StatusTransition is the whole new state of the singleton. A nil GeneralOrderID
// clears the binding.
type StatusTransition struct {
	IsOpen         bool
	GeneralOrderID *int64
	Message        *string
}
