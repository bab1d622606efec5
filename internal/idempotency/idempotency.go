// Package idempotency remembers which order an Idempotency-Key produced so a
// retried placement returns the original order instead of buying twice.
package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// keyOrderPlace is idem:order:place:{buyer}:{key} -> user order id.
const keyOrderPlace = "idem:order:place:%s:%s"

const DefaultTTL = 24 * time.Hour

// Pending marks a key whose order is still being placed.
const Pending = "pending"

// pendingTTL bounds how long a crashed placement can hold a key.
const pendingTTL = 30 * time.Second

// Store maps (buyer, key) to an order id. Claim is atomic: exactly one
// caller wins a free key and must later Complete or Release it. Losers get
// the stored order id, or Pending while the winner is still working.
type Store interface {
	Claim(ctx context.Context, buyerID, key string) (orderID string, claimed bool, err error)
	Complete(ctx context.Context, buyerID, key, orderID string) error
	Release(ctx context.Context, buyerID, key string) error
}

func placeKey(buyerID, key string) string {
	return fmt.Sprintf(keyOrderPlace, buyerID, key)
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient dials addr and checks it answers PING.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "redis ping %s", addr)
	}
	return rdb, nil
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Claim(ctx context.Context, buyerID, key string) (string, bool, error) {
	k := placeKey(buyerID, key)
	ok, err := s.rdb.SetNX(ctx, k, Pending, pendingTTL).Result()
	if err != nil {
		return "", false, errors.Wrap(err, "idempotency claim")
	}
	if ok {
		return "", true, nil
	}

	orderID, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// The holder released between SETNX and GET; report it as pending so
		// the caller tries again.
		return Pending, false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "idempotency lookup")
	}
	return orderID, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, buyerID, key, orderID string) error {
	err := s.rdb.Set(ctx, placeKey(buyerID, key), orderID, s.ttl).Err()
	return errors.Wrap(err, "idempotency complete")
}

// releasePending deletes the key only while it still holds the marker.
var releasePending = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (s *RedisStore) Release(ctx context.Context, buyerID, key string) error {
	err := releasePending.Run(ctx, s.rdb, []string{placeKey(buyerID, key)}, Pending).Err()
	return errors.Wrap(err, "idempotency release")
}

// MemoryStore is the in-process Store used without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	orderID string
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (s *MemoryStore) Claim(_ context.Context, buyerID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := placeKey(buyerID, key)
	if e, ok := s.entries[k]; ok && !s.now().After(e.expires) {
		return e.orderID, false, nil
	}
	s.entries[k] = memoryEntry{orderID: Pending, expires: s.now().Add(pendingTTL)}
	return "", true, nil
}

func (s *MemoryStore) Complete(_ context.Context, buyerID, key, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[placeKey(buyerID, key)] = memoryEntry{orderID: orderID, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, buyerID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := placeKey(buyerID, key)
	if e, ok := s.entries[k]; ok && e.orderID == Pending {
		delete(s.entries, k)
	}
	return nil
}
