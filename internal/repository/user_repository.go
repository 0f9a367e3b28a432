package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type UserRepository interface {
	GetByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*domain.User, error)
	GetRole(ctx context.Context, q db.DBTX, id uuid.UUID) (domain.Role, error)
	// List returns users ordered by name. A nil role means every role.
	List(ctx context.Context, q db.DBTX, role *domain.Role) ([]domain.User, error)
	Upsert(ctx context.Context, q db.DBTX, user *domain.User) error
}

type userRepo struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func NewUserRepository(logger *zap.Logger) UserRepository {
	return &userRepo{
		logger: logger,
		tracer: otel.Tracer("user_repository"),
	}
}

const userColumns = `id, full_name, username, email, phone, role, created_at, updated_at`

func scanUser(row pgx.Row, u *domain.User) error {
	return row.Scan(
		&u.ID,
		&u.FullName,
		&u.Username,
		&u.Email,
		&u.Phone,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

func (r *userRepo) GetByID(ctx context.Context, q db.DBTX, id uuid.UUID) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", id.String()))

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u domain.User
	if err := scanUser(q.QueryRow(ctx, query, id), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		span.RecordError(err)
		return nil, storageError("get user", err)
	}

	return &u, nil
}

func (r *userRepo) GetRole(ctx context.Context, q db.DBTX, id uuid.UUID) (domain.Role, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetRole")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", id.String()))

	var role domain.Role
	if err := q.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to load user role", zap.Error(err))

		return "", storageError("get user role", err)
	}

	return role, nil
}

func (r *userRepo) List(ctx context.Context, q db.DBTX, role *domain.Role) ([]domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.List")
	defer span.End()

	var roleFilter *string
	if role != nil {
		s := string(*role)
		roleFilter = &s
		span.SetAttributes(attribute.String("role", s))
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE $1::text IS NULL OR role = $1
		ORDER BY full_name ASC, id ASC
	`

	rows, err := q.Query(ctx, query, roleFilter)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to query users", zap.Error(err))

		return nil, storageError("list users", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := scanUser(rows, &u); err != nil {
			span.RecordError(err)
			return nil, storageError("scan user", err)
		}

		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, storageError("iterate users", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(users)))

	return users, nil
}

func (r *userRepo) Upsert(ctx context.Context, q db.DBTX, user *domain.User) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Upsert")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", user.ID.String()),
		attribute.String("role", string(user.Role)),
	)

	query := `
		INSERT INTO users (id, full_name, username, email, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET full_name  = EXCLUDED.full_name,
			username   = EXCLUDED.username,
			email      = EXCLUDED.email,
			phone      = EXCLUDED.phone,
			role       = EXCLUDED.role,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(
		ctx,
		query,
		user.ID,
		user.FullName,
		user.Username,
		user.Email,
		user.Phone,
		string(user.Role),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to upsert user", zap.String("user_id", user.ID.String()), zap.Error(err))

		return storageError("upsert user", err)
	}

	return nil
}
