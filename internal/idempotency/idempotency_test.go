package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceKeyIsScopedByBuyer(t *testing.T) {
	assert.Equal(t, "idem:order:place:buyer-1:abc", placeKey("buyer-1", "abc"))
	assert.NotEqual(t, placeKey("buyer-1", "abc"), placeKey("buyer-2", "abc"))
}

func TestMemoryStoreClaimCompleteUntilExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }

	_, claimed, err := s.Claim(ctx, "buyer-1", "k1")
	require.NoError(t, err)
	assert.True(t, claimed)

	orderID, claimed, err := s.Claim(ctx, "buyer-1", "k1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, Pending, orderID)

	require.NoError(t, s.Complete(ctx, "buyer-1", "k1", "order-1"))

	orderID, claimed, err = s.Claim(ctx, "buyer-1", "k1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "order-1", orderID)

	_, claimed, err = s.Claim(ctx, "buyer-2", "k1")
	require.NoError(t, err)
	assert.True(t, claimed, "keys are scoped by buyer")

	now = now.Add(2 * time.Hour)
	_, claimed, err = s.Claim(ctx, "buyer-1", "k1")
	require.NoError(t, err)
	assert.True(t, claimed, "expired keys can be claimed again")
}

func TestMemoryStoreReleaseFreesOnlyPendingKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	_, _, err := s.Claim(ctx, "buyer-1", "failed")
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, "buyer-1", "failed"))
	_, claimed, err := s.Claim(ctx, "buyer-1", "failed")
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, s.Complete(ctx, "buyer-1", "done", "order-9"))
	require.NoError(t, s.Release(ctx, "buyer-1", "done"))
	orderID, claimed, err := s.Claim(ctx, "buyer-1", "done")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "order-9", orderID)
}

func TestMemoryStoreClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, claimed, err := s.Claim(ctx, "buyer-1", "race"); err == nil && claimed {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestNewRedisStoreDefaultsTTL(t *testing.T) {
	s := NewRedisStore(nil, 0)
	assert.Equal(t, DefaultTTL, s.ttl)
}
