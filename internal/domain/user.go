package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

type User struct {
	ID        uuid.UUID `db:"id"`
	FullName  string    `db:"full_name"`
	Username  *string   `db:"username"`
	Email     string    `db:"email"`
	Phone     *string   `db:"phone"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Caller is the identity the authorization guard resolved for one request.
type Caller struct {
	ID   uuid.UUID
	Role Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// PhoneNotProvided replaces a missing phone number in recipient listings.
const PhoneNotProvided = "N/A"

// Recipient is the shape the notification dispatcher reads.
type Recipient struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
	Role  Role      `json:"role"`
}

func (u User) Recipient() Recipient {
	phone := PhoneNotProvided
	if u.Phone != nil && *u.Phone != "" {
		phone = *u.Phone
	}

	return Recipient{
		ID:    u.ID,
		Name:  u.FullName,
		Email: u.Email,
		Phone: phone,
		Role:  u.Role,
	}
}
