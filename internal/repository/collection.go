package repository

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection is a typed view over one kind of the backend.
type Collection[T any] struct {
	backend    Backend
	kind       string
	setVersion func(*T, int64)
}

// NewCollection creates a collection. setVersion, when non-nil, copies the
// stored version into decoded values.
func NewCollection[T any](backend Backend, kind string, setVersion func(*T, int64)) *Collection[T] {
	return &Collection[T]{backend: backend, kind: kind, setVersion: setVersion}
}

// Kind returns the stored kind name.
func (c *Collection[T]) Kind() string { return c.kind }

// Get loads the entity and its current version.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, int64, error) {
	rec, err := c.backend.Get(ctx, c.kind, id)
	if err != nil {
		return nil, 0, err
	}
	v, err := c.decode(rec)
	if err != nil {
		return nil, 0, err
	}
	return v, rec.Version, nil
}

// List returns every entity for which keep returns true. A nil keep returns all.
func (c *Collection[T]) List(ctx context.Context, keep func(*T) bool) ([]*T, error) {
	records, err := c.backend.List(ctx, c.kind)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(records))
	for _, rec := range records {
		v, err := c.decode(rec)
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Put encodes v as a write expecting version expected.
func (c *Collection[T]) Put(id string, expected int64, v *T) (Write, error) {
	if c.setVersion != nil {
		c.setVersion(v, expected+1)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return Write{}, fmt.Errorf("encode %s/%s: %w", c.kind, id, err)
	}
	return Write{Kind: c.kind, ID: id, ExpectedVersion: expected, Body: body}, nil
}

func (c *Collection[T]) decode(rec Record) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(rec.Body, v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", rec.Kind, rec.ID, err)
	}
	if c.setVersion != nil {
		c.setVersion(v, rec.Version)
	}
	return v, nil
}
