package events

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
	"marketplace/internal/repository/memory"
)

type published struct {
	topic, key, eventType string
	value                 []byte
}

type fakePublisher struct {
	sent []published
	fail error
}

func (p *fakePublisher) Publish(_ context.Context, topic, key, eventType string, value []byte) error {
	if p.fail != nil {
		return p.fail
	}
	p.sent = append(p.sent, published{topic, key, eventType, value})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func appendEvent(t *testing.T, repo interface {
	Append(context.Context, *models.OutboxEvent) error
}, orderID string) {
	t.Helper()
	ev, err := NewOutboxEvent(EventOrderPlaced, TopicOrderPlaced, orderID, OrderPlacedPayload{
		OrderID:  orderID,
		Amount:   42.5,
		Currency: "thb",
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Append(context.Background(), ev))
}

func TestNewOutboxEventWrapsPayloadInEnvelope(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ev, err := NewOutboxEvent(EventOrderPlaced, TopicOrderPlaced, "order-1", OrderPlacedPayload{
		OrderID: "order-1",
		Amount:  10,
	}, now)
	require.NoError(t, err)

	assert.Equal(t, models.OutboxPending, ev.Status)
	assert.Equal(t, TopicOrderPlaced, ev.Topic)
	assert.Equal(t, "order-1", ev.AggregateID)

	env, payload, err := UnwrapPayload[OrderPlacedPayload](ev.Payload)
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, EventOrderPlaced, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, Producer, env.Producer)
	assert.Equal(t, "order-1", env.CorrelationID)
	assert.True(t, env.OccurredAt.Equal(now))
	assert.Equal(t, "order-1", payload.OrderID)
	assert.Equal(t, 10.0, payload.Amount)
}

func TestRelayOncePublishesPendingEvents(t *testing.T) {
	db := memory.New()
	store := db.Store()
	appendEvent(t, store.Outbox, "order-1")
	appendEvent(t, store.Outbox, "order-2")

	pub := &fakePublisher{}
	relay := NewRelay(store.Outbox, pub, time.Second)

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.sent, 2)
	assert.Equal(t, "order-1", pub.sent[0].key)
	assert.Equal(t, TopicOrderPlaced, pub.sent[0].topic)
	assert.Equal(t, EventOrderPlaced, pub.sent[0].eventType)

	for _, ev := range db.Outbox() {
		assert.Equal(t, models.OutboxSent, ev.Status)
		assert.NotNil(t, ev.SentAt)
	}

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayOnceMarksEventFailedAfterMaxAttempts(t *testing.T) {
	db := memory.New()
	store := db.Store()
	appendEvent(t, store.Outbox, "order-1")

	pub := &fakePublisher{fail: errors.New("broker down")}
	relay := NewRelay(store.Outbox, pub, time.Second)

	for i := 0; i < defaultMaxAttempts; i++ {
		n, err := relay.RelayOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	events := db.Outbox()
	require.Len(t, events, 1)
	assert.Equal(t, models.OutboxFailed, events[0].Status)
	assert.Equal(t, defaultMaxAttempts, events[0].Attempts)
	assert.Contains(t, events[0].LastError, "broker down")

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	db := memory.New()
	store := db.Store()
	appendEvent(t, store.Outbox, "order-1")

	pub := &fakePublisher{}
	relay := NewRelay(store.Outbox, pub, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return db.Outbox()[0].Status == models.OutboxSent
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
