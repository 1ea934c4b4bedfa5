package sla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers which (entity, deadline) breaches were already emitted.
type Deduper interface {
	// FirstEmit marks the pair and reports whether this call was the first.
	FirstEmit(ctx context.Context, entityID string, deadline time.Time) (bool, error)
}

func dedupKey(entityID string, deadline time.Time) string {
	return fmt.Sprintf("%s@%d", entityID, deadline.UTC().UnixNano())
}

// MemoryDeduper is a process-local Deduper.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDeduper creates an empty deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) FirstEmit(_ context.Context, entityID string, deadline time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := dedupKey(entityID, deadline)
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = struct{}{}
	return true, nil
}

// RedisDeduper shares breach marks across replicas with SETNX.
type RedisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper whose marks expire after ttl.
func NewRedisDeduper(client *redis.Client, prefix string, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisDeduper{client: client, prefix: prefix, ttl: ttl}
}

func (d *RedisDeduper) FirstEmit(ctx context.Context, entityID string, deadline time.Time) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+"sla:breach:"+dedupKey(entityID, deadline), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("sla dedup: %w", err)
	}
	return ok, nil
}
