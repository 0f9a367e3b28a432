package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type HandlerFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

type ConsumerGroup struct {
	brokers     []string
	groupID     string
	topics      []string
	handlerFunc HandlerFunc
	logger      *zap.Logger
}

func NewConsumerGroup(
	brokers []string,
	groupID string,
	topics []string,
	handlerFunc HandlerFunc,
	logger *zap.Logger,
) *ConsumerGroup {
	return &ConsumerGroup{
		brokers:     brokers,
		groupID:     groupID,
		topics:      topics,
		handlerFunc: handlerFunc,
		logger:      logger,
	}
}

const (
	processAttempts = 3
	retryBackoff    = 200 * time.Millisecond
	rejoinDelay     = 2 * time.Second
)

// Run consumes until ctx is cancelled. A message that keeps failing ends the
// session before anything after it is marked, and the group rejoins at that
// message after rejoinDelay.
func (c *ConsumerGroup) Run(ctx context.Context) error {
	config := sarama.NewConfig()
	config.Version = sarama.V3_0_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	group, err := sarama.NewConsumerGroup(c.brokers, c.groupID, config)
	if err != nil {
		return fmt.Errorf("create consumer group %s: %w", c.groupID, err)
	}

	defer func() {
		if err := group.Close(); err != nil {
			mylogger.Error(context.WithoutCancel(ctx), c.logger, "Error closing consumer group", zap.Error(err))
		}
	}()

	go func() {
		for err := range group.Errors() {
			mylogger.Warn(ctx, c.logger, "Consumer group error", zap.Error(err))
		}
	}()

	handler := &saramaHandler{
		handler:  c.handlerFunc,
		logger:   c.logger,
		tracer:   otel.Tracer("pkg/kafka/consumer"),
		attempts: processAttempts,
		backoff:  retryBackoff,
	}

	for {
		err := group.Consume(ctx, c.topics, handler)
		if err != nil && !errors.Is(err, sarama.ErrClosedConsumerGroup) {
			mylogger.Error(ctx, c.logger, "Error consuming in consumer loop", zap.Error(err))
		}

		if ctx.Err() != nil {
			mylogger.Info(context.WithoutCancel(ctx), c.logger, "Context cancelled, shutting down consumer")
			return nil
		}

		if handler.stalled.Swap(false) {
			select {
			case <-ctx.Done():
			case <-time.After(rejoinDelay):
			}
		}
	}
}

type saramaHandler struct {
	handler  HandlerFunc
	logger   *zap.Logger
	tracer   trace.Tracer
	attempts int
	backoff  time.Duration
	stalled  atomic.Bool
}

func (h *saramaHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *saramaHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks messages strictly in order. Returning on a failure ends the
// whole session, so the committed offset never moves past an unprocessed message.
func (h *saramaHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.processWithRetry(session.Context(), msg); err != nil {
			h.stalled.Store(true)
			return fmt.Errorf("%s/%d at offset %d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}

		session.MarkMessage(msg, "")
	}

	return nil
}

func (h *saramaHandler) processWithRetry(ctx context.Context, msg *sarama.ConsumerMessage) error {
	attempts := max(h.attempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = h.process(ctx, msg); err == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.backoff * time.Duration(attempt)):
		}
	}

	return err
}

func (h *saramaHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx, span := h.startSpan(ctx, msg)
	defer span.End()

	if err := h.handler(ctx, msg); err != nil {
		span.RecordError(err)
		mylogger.Error(
			ctx,
			h.logger,
			"Failed to process message",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)

		return err
	}

	return nil
}

func (h *saramaHandler) startSpan(ctx context.Context, msg *sarama.ConsumerMessage) (context.Context, trace.Span) {
	carrier := propagation.MapCarrier{}
	for _, header := range msg.Headers {
		carrier[string(header.Key)] = string(header.Value)
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	return h.tracer.Start(ctx, "kafka_process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
}
