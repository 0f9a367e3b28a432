package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
)

var (
	ErrOrderNotFound        = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrGeneralOrderNotFound = fmt.Errorf("general order %w", domain.ErrNotFound)
	ErrGeneralOrderArchived = fmt.Errorf("%w: general order is archived", domain.ErrValidation)
	ErrShopStatusNotFound   = fmt.Errorf("shop status %w", domain.ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", domain.ErrNotFound)
)

const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNoDataFound         = "P0002"
)

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}
