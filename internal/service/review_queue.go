package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/admin-ops-service/internal/domain"
)

// ManualReviewQueue receives rollbacks that could not be applied automatically.
type ManualReviewQueue interface {
	Push(ctx context.Context, item domain.ManualReviewItem) error
	List(ctx context.Context) ([]domain.ManualReviewItem, error)
}

// MemoryReviewQueue is a process-local queue.
type MemoryReviewQueue struct {
	mu    sync.Mutex
	items []domain.ManualReviewItem
}

// NewMemoryReviewQueue creates an empty queue.
func NewMemoryReviewQueue() *MemoryReviewQueue {
	return &MemoryReviewQueue{}
}

func (q *MemoryReviewQueue) Push(_ context.Context, item domain.ManualReviewItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

func (q *MemoryReviewQueue) List(_ context.Context) ([]domain.ManualReviewItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.ManualReviewItem(nil), q.items...), nil
}

// RedisReviewQueue stores items in a Redis list.
type RedisReviewQueue struct {
	client *redis.Client
	key    string
}

// NewRedisReviewQueue creates a queue on list key.
func NewRedisReviewQueue(client *redis.Client, key string) *RedisReviewQueue {
	return &RedisReviewQueue{client: client, key: key}
}

func (q *RedisReviewQueue) Push(ctx context.Context, item domain.ManualReviewItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.key, data).Err()
}

func (q *RedisReviewQueue) List(ctx context.Context) ([]domain.ManualReviewItem, error) {
	raw, err := q.client.LRange(ctx, q.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	items := make([]domain.ManualReviewItem, 0, len(raw))
	for _, r := range raw {
		var item domain.ManualReviewItem
		if err := json.Unmarshal([]byte(r), &item); err != nil {
			return nil, fmt.Errorf("decode review item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
