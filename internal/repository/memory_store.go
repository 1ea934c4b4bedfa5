package repository

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend for tests and single-node runs.
type MemoryBackend struct {
	mu   sync.RWMutex
	rows map[string]map[string]Record
	now  func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		rows: make(map[string]map[string]Record),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryBackend) Get(_ context.Context, kind, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.rows[kind][id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (m *MemoryBackend) List(_ context.Context, kind string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.rows[kind]))
	for _, rec := range m.rows[kind] {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryBackend) CompareAndSwap(ctx context.Context, writes ...Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkDistinct(writes); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range writes {
		var current int64
		if rec, ok := m.rows[w.Kind][w.ID]; ok {
			current = rec.Version
		}
		if current != w.ExpectedVersion {
			return conflict(w.Kind, w.ID, w.ExpectedVersion, current)
		}
	}

	now := m.now()
	for _, w := range writes {
		if m.rows[w.Kind] == nil {
			m.rows[w.Kind] = make(map[string]Record)
		}
		body := make([]byte, len(w.Body))
		copy(body, w.Body)
		m.rows[w.Kind][w.ID] = Record{
			Kind:      w.Kind,
			ID:        w.ID,
			Version:   w.ExpectedVersion + 1,
			Body:      body,
			UpdatedAt: now,
		}
	}
	return nil
}

func copyRecord(rec Record) Record {
	body := make([]byte, len(rec.Body))
	copy(body, rec.Body)
	rec.Body = body
	return rec
}
