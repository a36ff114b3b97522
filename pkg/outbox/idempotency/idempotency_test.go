package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data        map[string]string
	getErr      error
	lastTTL     time.Duration
	lastDeleted string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastTTL = ttl
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "hl:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
		f.lastDeleted = key
	}
	return nil
}

func newGuard(t *testing.T, store *fakeStore, at time.Time) *DeliveryGuard {
	t.Helper()
	guard, err := NewDeliveryGuard(store, 24*time.Hour)
	require.NoError(t, err)
	guard.now = func() time.Time { return at }
	return guard
}

func TestMarkThenPublishedAt(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	deliveredAt := time.Date(2026, 4, 2, 8, 15, 0, 0, time.UTC)
	guard := newGuard(t, store, deliveredAt)
	eventID := uuid.New()

	published, err := guard.WasPublished(ctx, "kafka", eventID)
	require.NoError(t, err)
	assert.False(t, published)

	require.NoError(t, guard.MarkPublished(ctx, "kafka", eventID))
	assert.Contains(t, store.data, "hl:idempotency:evt:published:kafka:"+eventID.String())
	assert.Equal(t, 24*time.Hour, store.lastTTL)

	at, ok, err := guard.PublishedAt(ctx, "kafka", eventID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, deliveredAt.Equal(at))

	published, err = guard.WasPublished(ctx, "pubsub", eventID)
	require.NoError(t, err)
	assert.False(t, published, "marks are per publisher")
}

func TestFirstMarkWins(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	first := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	guard := newGuard(t, store, first)
	eventID := uuid.New()

	require.NoError(t, guard.MarkPublished(ctx, "kafka", eventID))
	guard.now = func() time.Time { return first.Add(time.Hour) }
	require.NoError(t, guard.MarkPublished(ctx, "kafka", eventID))

	at, _, err := guard.PublishedAt(ctx, "kafka", eventID)
	require.NoError(t, err)
	assert.True(t, first.Equal(at))
}

func TestUnreadableMarkCountsAsDelivered(t *testing.T) {
	store := newFakeStore()
	guard := newGuard(t, store, time.Now())
	eventID := uuid.New()
	store.data[store.IdempotencyKey("evt:published:kafka", eventID.String())] = "1"

	published, err := guard.WasPublished(context.Background(), "kafka", eventID)
	require.NoError(t, err)
	assert.True(t, published)
}

func TestPublishedAtStoreError(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("boom")
	guard := newGuard(t, store, time.Now())

	_, err := guard.WasPublished(context.Background(), "kafka", uuid.New())
	assert.Error(t, err)
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	guard := newGuard(t, store, time.Now())
	eventID := uuid.New()

	require.NoError(t, guard.MarkPublished(ctx, "kafka", eventID))
	require.NoError(t, guard.Forget(ctx, "kafka", eventID))
	assert.Equal(t, "hl:idempotency:evt:published:kafka:"+eventID.String(), store.lastDeleted)

	published, err := guard.WasPublished(ctx, "kafka", eventID)
	require.NoError(t, err)
	assert.False(t, published)
}

func TestKeyValidation(t *testing.T) {
	guard := newGuard(t, newFakeStore(), time.Now())
	assert.Error(t, guard.MarkPublished(context.Background(), "", uuid.New()))
	_, err := guard.WasPublished(context.Background(), "kafka", uuid.Nil)
	assert.Error(t, err)

	_, err = NewDeliveryGuard(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewDeliveryGuard(newFakeStore(), -time.Second)
	assert.Error(t, err)
}
