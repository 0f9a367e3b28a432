package utils

import (
	"context"

	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProcessWithDeduplication runs action at most once per eventID. The processed
// marker and the action's writes share one transaction, so a failed action leaves
// the event eligible for redelivery. It reports whether the action ran.
func ProcessWithDeduplication(
	ctx context.Context,
	tx db.Transactor,
	logger *zap.Logger,
	eventID string,
	action func(ctx context.Context, q db.DBTX) error,
) (bool, error) {
	span := trace.SpanFromContext(ctx)

	ran := false
	err := tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		query := `
			INSERT INTO processed_events (event_id)
			VALUES ($1)
			ON CONFLICT (event_id) DO NOTHING
		`

		tag, err := q.Exec(ctx, query, eventID)
		if err != nil {
			span.RecordError(err)
			return err
		}

		if tag.RowsAffected() == 0 {
			mylogger.Info(ctx, logger, "Event already processed, skipping", zap.String("event_id", eventID))
			return nil
		}

		if err := action(ctx, q); err != nil {
			return err
		}

		ran = true
		return nil
	})
	if err != nil {
		mylogger.Error(ctx, logger, "Failed to process event", zap.String("event_id", eventID), zap.Error(err))
		return false, err
	}

	return ran, nil
}
