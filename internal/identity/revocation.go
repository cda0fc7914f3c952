package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker remembers signed-out token ids until the tokens would have expired.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type RedisRevoker struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisRevoker(client redis.UniversalClient) *RedisRevoker {
	return &RedisRevoker{client: client, prefix: "revoked:", now: time.Now}
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.prefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("identity: revoking token: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("identity: checking revocation: %w", err)
	}
	return n > 0, nil
}

type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time), now: time.Now}
}

func (r *MemoryRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !expiresAt.After(r.now()) {
		return nil
	}
	r.revoked[tokenID] = expiresAt
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt, ok := r.revoked[tokenID]
	return ok && expiresAt.After(r.now()), nil
}

// Prune forgets ids whose tokens have expired and returns how many were removed.
func (r *MemoryRevoker) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, expiresAt := range r.revoked {
		if !expiresAt.After(now) {
			delete(r.revoked, id)
			removed++
		}
	}
	return removed
}
