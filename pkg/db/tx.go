package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.uber.org/zap"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Transactor interface {
	// Conn is the handle for single-statement reads.
	Conn() DBTX
	// Atomic reports whether WithinTx opens a real transaction.
	Atomic() bool
	// WithinTx runs fn inside one transaction when Atomic, otherwise statement by
	// statement on the pool. The transaction commits only if fn returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, q DBTX) error) error
}

type transactor struct {
	pool   *pgxpool.Pool
	atomic bool
	logger *zap.Logger
}

func NewTransactor(pool *pgxpool.Pool, atomic bool, logger *zap.Logger) Transactor {
	return &transactor{
		pool:   pool,
		atomic: atomic,
		logger: logger,
	}
}

func (t *transactor) Conn() DBTX {
	return t.pool
}

func (t *transactor) Atomic() bool {
	return t.atomic
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, q DBTX) error) error {
	if !t.atomic {
		return fn(ctx, t.pool)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(cleanupCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(
				cleanupCtx,
				t.logger,
				"Error rolling back transaction",
				zap.Error(err),
			)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
