package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/outbox/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OutboxRepository interface {
	SaveOutboxEvent(ctx context.Context, q db.DBTX, event *domain.OutboxEvent) error
	GetUnpublishedEvents(ctx context.Context, q db.DBTX, batchSize int) ([]*domain.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, q db.DBTX, eventID int64) error
	MarkEventFailed(ctx context.Context, q db.DBTX, eventID int64, errMsg string) error
}

type KafkaProducer interface {
	ProduceMessage(ctx context.Context, topic, key string, message any) error
}

type Config struct {
	BatchSize int
	Interval  time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize: 50,
		Interval:  500 * time.Millisecond,
	}
}

// OutboxProcessor relays stored events to Kafka. Each batch is claimed with
// FOR UPDATE SKIP LOCKED, so several replicas can run it side by side.
type OutboxProcessor struct {
	tx            db.Transactor
	repo          OutboxRepository
	kafkaProducer KafkaProducer
	logger        *zap.Logger
	batchSize     int
	interval      time.Duration
	tracer        trace.Tracer
}

// NewOutboxProcessor needs a transactor that opens real transactions, otherwise
// row locks are released before the batch is marked.
func NewOutboxProcessor(
	tx db.Transactor,
	repo OutboxRepository,
	producer KafkaProducer,
	logger *zap.Logger,
	cfg Config,
) *OutboxProcessor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}

	return &OutboxProcessor{
		tx:            tx,
		repo:          repo,
		kafkaProducer: producer,
		logger:        logger,
		batchSize:     cfg.BatchSize,
		interval:      cfg.Interval,
		tracer:        otel.Tracer("outbox-worker"),
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	mylogger.Info(ctx, p.logger, "Starting outbox processor", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(context.WithoutCancel(ctx), p.logger, "Outbox processor stopping")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				mylogger.Error(ctx, p.logger, "Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes one batch and returns how many events were delivered.
// A failed publish is recorded on the row and retried on a later tick.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.ProcessBatch")
	defer span.End()

	published := 0
	err := p.tx.WithinTx(ctx, func(ctx context.Context, q db.DBTX) error {
		events, err := p.repo.GetUnpublishedEvents(ctx, q, p.batchSize)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		mylogger.Debug(ctx, p.logger, "Processing outbox events", zap.Int("count", len(events)))

		for _, event := range events {
			message, err := p.message(event)
			if err != nil {
				mylogger.Error(ctx, p.logger, "Outbox event payload is not an envelope", zap.Int64("id", event.ID), zap.Error(err))

				if dbErr := p.repo.MarkEventFailed(ctx, q, event.ID, err.Error()); dbErr != nil {
					return fmt.Errorf("mark event %d failed: %w", event.ID, dbErr)
				}
				continue
			}

			if err := p.kafkaProducer.ProduceMessage(ctx, event.Topic, event.AggregateID, message); err != nil {
				mylogger.Error(ctx, p.logger, "Outbox worker produce message failed", zap.Int64("id", event.ID), zap.Error(err))

				if dbErr := p.repo.MarkEventFailed(ctx, q, event.ID, err.Error()); dbErr != nil {
					return fmt.Errorf("mark event %d failed: %w", event.ID, dbErr)
				}
				continue
			}

			if err := p.repo.MarkEventPublished(ctx, q, event.ID); err != nil {
				return fmt.Errorf("mark event %d published: %w", event.ID, err)
			}

			published++
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	span.SetAttributes(attribute.Int("published", published))

	return published, nil
}

// message stamps the outbox row id into the envelope so consumers can
// deduplicate redeliveries.
func (p *OutboxProcessor) message(event *domain.OutboxEvent) (map[string]any, error) {
	var envelope map[string]any
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, err
	}

	envelope["event_id"] = strconv.FormatInt(event.ID, 10)

	return envelope, nil
}
