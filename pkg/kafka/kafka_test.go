package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func TestProducer_SendsJSON(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got map[string]any
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got["event"] != "ShopStatusChanged" {
			return errors.New("unexpected event")
		}
		return nil
	})

	p := NewProducerFromSarama(mock)
	defer func() { require.NoError(t, p.Close()) }()

	err := p.ProduceMessage(context.Background(), "shop_events", "1", map[string]any{"event": "ShopStatusChanged"})
	require.NoError(t, err)
}

func TestProducer_ReportsSendFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerFromSarama(mock)
	defer func() { require.NoError(t, p.Close()) }()

	err := p.ProduceMessage(context.Background(), "shop_events", "", map[string]any{})
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

type recordingSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *recordingSession) Context() context.Context { return s.ctx }

func (s *recordingSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type bufferedClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c bufferedClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func newClaim(values ...string) bufferedClaim {
	ch := make(chan *sarama.ConsumerMessage, len(values))
	for i, v := range values {
		ch <- &sarama.ConsumerMessage{Topic: "user_events", Offset: int64(i), Value: []byte(v)}
	}
	close(ch)

	return bufferedClaim{messages: ch}
}

func newTestHandler(fn HandlerFunc) *saramaHandler {
	return &saramaHandler{
		handler:  fn,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("test"),
		attempts: 3,
		backoff:  time.Millisecond,
	}
}

func TestConsumeClaim_StopsAtFailingMessage(t *testing.T) {
	var seen []int64
	h := newTestHandler(func(_ context.Context, msg *sarama.ConsumerMessage) error {
		seen = append(seen, msg.Offset)
		if string(msg.Value) == "bad" {
			return errors.New("storage unavailable")
		}
		return nil
	})
	session := &recordingSession{ctx: context.Background()}

	err := h.ConsumeClaim(session, newClaim("ok", "bad", "ok"))
	require.Error(t, err)

	// offset 2 is neither processed nor marked, so the group resumes at offset 1
	require.Equal(t, []int64{0}, session.marked)
	require.Equal(t, []int64{0, 1, 1, 1}, seen)
	require.True(t, h.stalled.Load())
}

func TestConsumeClaim_RetriesTransientFailure(t *testing.T) {
	failures := 2
	h := newTestHandler(func(_ context.Context, msg *sarama.ConsumerMessage) error {
		if msg.Offset == 0 && failures > 0 {
			failures--
			return errors.New("connection reset")
		}
		return nil
	})
	session := &recordingSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(session, newClaim("first", "second")))
	require.Equal(t, []int64{0, 1}, session.marked)
	require.False(t, h.stalled.Load())
}

func TestConsumeClaim_StopsRetryingOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newTestHandler(func(context.Context, *sarama.ConsumerMessage) error {
		cancel()
		return errors.New("rejected")
	})
	h.backoff = time.Hour
	session := &recordingSession{ctx: ctx}

	err := h.ConsumeClaim(session, newClaim("bad", "ok"))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, session.marked)
}
