package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventUserRegistered      = "UserRegistered"
	EventUserUpdated         = "UserUpdated"
	EventOrderDeleted        = "OrderDeleted"
	EventShopStatusChanged   = "ShopStatusChanged"
	EventGeneralOrdersClosed = "GeneralOrdersClosed"
)

// UserEvent is published by the identity provider for both registrations and
// profile changes, role changes included.
type UserEvent struct {
	EventID  string    `json:"event_id"`
	UserID   uuid.UUID `json:"user_id"`
	FullName string    `json:"full_name"`
	Username *string   `json:"username"`
	Email    string    `json:"email"`
	Phone    *string   `json:"phone"`
	Role     Role      `json:"role"`
}

func (e UserEvent) User() User {
	role := e.Role
	if !role.Valid() {
		role = RoleCustomer
	}

	return User{
		ID:       e.UserID,
		FullName: e.FullName,
		Username: e.Username,
		Email:    e.Email,
		Phone:    e.Phone,
		Role:     role,
	}
}

type OrderDeletedEvent struct {
	OrderID      int64     `json:"order_id"`
	ItemsDeleted int64     `json:"items_deleted"`
	DeletedBy    uuid.UUID `json:"deleted_by"`
	DeletedAt    time.Time `json:"deleted_at"`
}

type ShopStatusChangedEvent struct {
	IsOpen         bool      `json:"is_open"`
	GeneralOrderID *int64    `json:"general_order_id"`
	Message        *string   `json:"message"`
	ChangedBy      uuid.UUID `json:"changed_by"`
	ChangedAt      time.Time `json:"changed_at"`
}

type GeneralOrdersClosedEvent struct {
	GeneralOrderIDs []int64   `json:"general_order_ids"`
	ClosedBy        uuid.UUID `json:"closed_by"`
	ClosedAt        time.Time `json:"closed_at"`
}
