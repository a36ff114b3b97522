// Package idempotency remembers which outbox events a transport has already delivered, so a row
// whose bookkeeping rolled back after a successful publish is not sent twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/harvestlink/market-backend/pkg/redis"
)

// DeliveryGuard stores one mark per (publisher, event id) holding the delivery time.
// Keys look like `hl:idempotency:evt:published:<publisher>:<event_id>`.
type DeliveryGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

// NewDeliveryGuard builds a guard whose marks expire after ttl; zero keeps them forever.
func NewDeliveryGuard(store redis.IdempotencyStore, ttl time.Duration) (*DeliveryGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &DeliveryGuard{store: store, ttl: ttl, now: time.Now}, nil
}

// PublishedAt returns when publisher delivered eventID, and false if it never did.
func (g *DeliveryGuard) PublishedAt(ctx context.Context, publisher string, eventID uuid.UUID) (time.Time, bool, error) {
	key, err := g.key(publisher, eventID)
	if err != nil {
		return time.Time{}, false, err
	}
	raw, err := g.store.Get(ctx, key)
	switch {
	case errors.Is(err, goredis.Nil):
		return time.Time{}, false, nil
	case err != nil:
		return time.Time{}, false, err
	}
	at, parseErr := time.Parse(time.RFC3339Nano, raw)
	if parseErr != nil {
		// A mark we cannot read still proves delivery.
		return time.Time{}, true, nil
	}
	return at, true, nil
}

func (g *DeliveryGuard) WasPublished(ctx context.Context, publisher string, eventID uuid.UUID) (bool, error) {
	_, ok, err := g.PublishedAt(ctx, publisher, eventID)
	return ok, err
}

// MarkPublished records a delivery. Call it only after the broker acknowledged. The first
// mark wins.
func (g *DeliveryGuard) MarkPublished(ctx context.Context, publisher string, eventID uuid.UUID) error {
	key, err := g.key(publisher, eventID)
	if err != nil {
		return err
	}
	_, err = g.store.SetNX(ctx, key, g.now().UTC().Format(time.RFC3339Nano), g.ttl)
	return err
}

// Forget drops the mark so the event can be published again.
func (g *DeliveryGuard) Forget(ctx context.Context, publisher string, eventID uuid.UUID) error {
	key, err := g.key(publisher, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *DeliveryGuard) key(publisher string, eventID uuid.UUID) (string, error) {
	switch {
	case publisher == "":
		return "", errors.New("publisher name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(fmt.Sprintf("evt:published:%s", publisher), eventID.String()), nil
}
