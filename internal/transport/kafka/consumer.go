package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/socsahar/Vapes-Shop-sub002/internal/domain"
	"github.com/socsahar/Vapes-Shop-sub002/internal/service"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/kafka"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	outboxDomain "github.com/socsahar/Vapes-Shop-sub002/pkg/outbox/domain"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/outbox/utils"
	"go.uber.org/zap"
)

// Deduplicator runs action at most once per event id.
type Deduplicator func(ctx context.Context, eventID string, action func(ctx context.Context, q db.DBTX) error) (bool, error)

// NewDeduplicator backs a Deduplicator with the processed_events table.
func NewDeduplicator(tx db.Transactor, logger *zap.Logger) Deduplicator {
	return func(ctx context.Context, eventID string, action func(ctx context.Context, q db.DBTX) error) (bool, error) {
		return utils.ProcessWithDeduplication(ctx, tx, logger, eventID, action)
	}
}

type Consumer struct {
	users   service.UserService
	dedup   Deduplicator
	logger  *zap.Logger
	groupID string
	topic   string
}

func NewConsumer(users service.UserService, dedup Deduplicator, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		users:   users,
		dedup:   dedup,
		logger:  logger,
		groupID: groupID,
		topic:   topic,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string) error {
	group := kafka.NewConsumerGroup(
		brokers,
		c.groupID,
		[]string{c.topic},
		c.processMessage,
		c.logger,
	)

	return group.Run(ctx)
}

// processMessage returns nil for messages that can never succeed so they are
// committed instead of redelivered forever.
func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var wrapper struct {
		outboxDomain.Envelope
		EventID json.RawMessage `json:"event_id"`
	}
	if err := json.Unmarshal(msg.Value, &wrapper); err != nil {
		mylogger.Error(ctx, c.logger, "Error unmarshalling wrapper", zap.Error(err), zap.Int64("offset", msg.Offset))
		return nil
	}

	switch wrapper.Event {
	case domain.EventUserRegistered, domain.EventUserUpdated:
	default:
		mylogger.Debug(ctx, c.logger, "Ignored event type", zap.String("event_type", wrapper.Event))
		return nil
	}

	var event domain.UserEvent
	if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
		mylogger.Error(ctx, c.logger, "Failed to unmarshal user event", zap.Error(err))
		return nil
	}

	eventID := dedupKey(wrapper.EventID, event.EventID, msg)

	_, err := c.dedup(ctx, eventID, func(ctx context.Context, q db.DBTX) error {
		return c.users.ApplyUserEvent(ctx, q, wrapper.Event, event)
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			mylogger.Warn(ctx, c.logger, "Dropping invalid user event", zap.String("event_id", eventID), zap.Error(err))
			return nil
		}

		return fmt.Errorf("apply %s: %w", wrapper.Event, err)
	}

	return nil
}

// dedupKey prefers the envelope id, then the payload id, then the record position.
func dedupKey(envelopeID json.RawMessage, payloadID string, msg *sarama.ConsumerMessage) string {
	if len(envelopeID) > 0 && string(envelopeID) != "null" {
		var s string
		if err := json.Unmarshal(envelopeID, &s); err == nil && s != "" {
			return msg.Topic + ":" + s
		}

		var n int64
		if err := json.Unmarshal(envelopeID, &n); err == nil {
			return msg.Topic + ":" + strconv.FormatInt(n, 10)
		}
	}

	if payloadID != "" {
		return msg.Topic + ":" + payloadID
	}

	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}
