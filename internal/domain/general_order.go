package domain

import "time"

type GeneralOrderStatus string

const (
	GeneralOrderOpen     GeneralOrderStatus = "open"
	GeneralOrderClosed   GeneralOrderStatus = "closed"
	GeneralOrderArchived GeneralOrderStatus = "archived"
)

type GeneralOrder struct {
	ID          int64              `json:"id" db:"id"`
	Title       string             `json:"title" db:"title"`
	Description string             `json:"description" db:"description"`
	Deadline    time.Time          `json:"deadline" db:"deadline"`
	Status      GeneralOrderStatus `json:"status" db:"status"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
}

// IsOpenAt reports whether the campaign still accepts purchases at now.
// A deadline equal to now still counts as open.
func (g GeneralOrder) IsOpenAt(now time.Time) bool {
	return g.Status == GeneralOrderOpen && !g.Deadline.Before(now)
}

func (g GeneralOrder) Summary() GeneralOrderSummary {
	return GeneralOrderSummary{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Deadline:    g.Deadline,
		Status:      g.Status,
	}
}

type GeneralOrderSummary struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Deadline    time.Time          `json:"deadline"`
	Status      GeneralOrderStatus `json:"status"`
}
