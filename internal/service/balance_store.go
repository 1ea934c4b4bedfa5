package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/admin-ops-service/internal/config"
)

// ErrOutOfBounds is returned when an adjustment would leave the allowed range.
var ErrOutOfBounds = errors.New("result outside bounds")

// BalanceStore holds the live values of tunable balance parameters.
type BalanceStore interface {
	Value(ctx context.Context, parameter string) (float64, error)
	// Adjust adds delta to parameter if the result stays within [min, max],
	// atomically with respect to other adjustments.
	Adjust(ctx context.Context, parameter string, delta float64, bounds config.ParameterBounds) (oldValue, newValue float64, err error)
}

// MemoryBalanceStore keeps parameter values in process.
type MemoryBalanceStore struct {
	mu     sync.Mutex
	values map[string]float64
}

// NewMemoryBalanceStore seeds every parameter with its initial value.
func NewMemoryBalanceStore(bounds map[string]config.ParameterBounds) *MemoryBalanceStore {
	values := make(map[string]float64, len(bounds))
	for name, b := range bounds {
		values[name] = b.Initial
	}
	return &MemoryBalanceStore{values: values}
}

func (m *MemoryBalanceStore) Value(_ context.Context, parameter string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[parameter]
	if !ok {
		return 0, fmt.Errorf("unknown parameter %q", parameter)
	}
	return v, nil
}

func (m *MemoryBalanceStore) Adjust(_ context.Context, parameter string, delta float64, bounds config.ParameterBounds) (float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.values[parameter]
	if !ok {
		old = bounds.Initial
	}
	next := old + delta
	if next < bounds.Min || next > bounds.Max {
		return old, next, ErrOutOfBounds
	}
	m.values[parameter] = next
	return old, next, nil
}

// RedisBalanceStore keeps parameter values in a Redis hash shared with the
// game servers.
type RedisBalanceStore struct {
	client *redis.Client
	key    string
}

// NewRedisBalanceStore creates a store on hash key.
func NewRedisBalanceStore(client *redis.Client, key string) *RedisBalanceStore {
	return &RedisBalanceStore{client: client, key: key}
}

// Seed writes initial values for parameters that have none yet.
func (r *RedisBalanceStore) Seed(ctx context.Context, bounds map[string]config.ParameterBounds) error {
	pipe := r.client.Pipeline()
	for name, b := range bounds {
		pipe.HSetNX(ctx, r.key, name, b.Initial)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisBalanceStore) Value(ctx context.Context, parameter string) (float64, error) {
	v, err := r.client.HGet(ctx, r.key, parameter).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("unknown parameter %q", parameter)
	}
	return v, err
}

func (r *RedisBalanceStore) Adjust(ctx context.Context, parameter string, delta float64, bounds config.ParameterBounds) (float64, float64, error) {
	var old, next float64
	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, r.key, parameter).Float64()
		switch {
		case errors.Is(err, redis.Nil):
			current = bounds.Initial
		case err != nil:
			return err
		}
		old, next = current, current+delta
		if next < bounds.Min || next > bounds.Max {
			return ErrOutOfBounds
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.key, parameter, strconv.FormatFloat(next, 'f', -1, 64))
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := r.client.Watch(ctx, txf, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return old, next, err
	}
	return old, next, fmt.Errorf("adjust %s: too much contention", parameter)
}
