package events

import (
	"context"
	"log"
	"time"

	"marketplace/internal/repository"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 5
)

// Relay polls the outbox and forwards pending events to a Publisher.
type Relay struct {
	outbox      repository.OutboxRepository
	publisher   Publisher
	interval    time.Duration
	batchSize   int64
	maxAttempts int
	now         func() time.Time
}

func NewRelay(outbox repository.OutboxRepository, publisher Publisher, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{
		outbox:      outbox,
		publisher:   publisher,
		interval:    interval,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("[OUTBOX] [INFO] relay started interval=%s", r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[OUTBOX] [INFO] relay stopped")
			return
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				log.Println("[OUTBOX] [ERROR] relay batch failed:", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many events were sent.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, ev := range pending {
		if err := r.publisher.Publish(ctx, ev.Topic, ev.AggregateID, ev.EventType, ev.Payload); err != nil {
			failed := ev.Attempts+1 >= r.maxAttempts
			if failed {
				log.Printf("[OUTBOX] [ERROR] giving up on event %s after %d attempts: %v", ev.ID.Hex(), ev.Attempts+1, err)
			}
			if markErr := r.outbox.MarkAttempt(ctx, ev.ID, err.Error(), failed); markErr != nil {
				return sent, markErr
			}
			continue
		}
		if err := r.outbox.MarkSent(ctx, ev.ID, r.now()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
