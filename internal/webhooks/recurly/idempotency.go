package recurlywebhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/redis"
)

// IdempotencyGuard marks notification deliveries already handled. Push
// documents carry no delivery id, so the body digest stands in for one.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// Digest returns the delivery id for a notification body.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// CheckAndMark claims deliveryID and reports whether it was already claimed.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, deliveryID string) (bool, error) {
	if deliveryID == "" {
		return false, errors.New("delivery id is required")
	}
	key := g.store.IdempotencyKey(g.scope, deliveryID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete releases a claim so the gateway's retry is processed.
func (g *IdempotencyGuard) Delete(ctx context.Context, deliveryID string) error {
	if deliveryID == "" {
		return errors.New("delivery id is required")
	}
	key := g.store.IdempotencyKey(g.scope, deliveryID)
	return g.store.Del(ctx, key)
}
