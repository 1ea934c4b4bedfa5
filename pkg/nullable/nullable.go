// Package nullable provides a three-state optional value: absent, explicit null,
// or set. Payloads distinguish a field that was never sent from one sent as null,
// so a plain pointer is not enough.
//
// Struct fields of type Nullable[T] should carry the `omitzero` json option so
// that an absent value is left out of the encoded payload.
package nullable

import (
	"bytes"
	"encoding/json"
)

type state uint8

const (
	absent state = iota
	null
	present
)

// Nullable holds a value of T that may be absent, null, or set.
// The zero value is absent.
type Nullable[T any] struct {
	value T
	state state
}

// Of returns a Nullable holding v.
func Of[T any](v T) Nullable[T] {
	return Nullable[T]{value: v, state: present}
}

// Null returns an explicitly null Nullable.
func Null[T any]() Nullable[T] {
	return Nullable[T]{state: null}
}

// Absent returns an absent Nullable.
func Absent[T any]() Nullable[T] {
	return Nullable[T]{}
}

// FromPtr maps nil to null and non-nil to a set value.
func FromPtr[T any](p *T) Nullable[T] {
	if p == nil {
		return Null[T]()
	}
	return Of(*p)
}

func (n Nullable[T]) IsAbsent() bool { return n.state == absent }
func (n Nullable[T]) IsNull() bool { return n.state == null }
func (n Nullable[T]) IsSet() bool { return n.state == present }
func (n Nullable[T]) IsZero() bool { return n.state == absent }
func (n Nullable[T]) Present() bool { return n.state != absent }

// Get returns the value and whether it is set.
func (n Nullable[T]) Get() (T, bool) {
	return n.value, n.state == present
}

// OrElse returns the value when set, fallback otherwise.
func (n Nullable[T]) OrElse(fallback T) T {
	if n.state == present {
		return n.value
	}
	return fallback
}

// Ptr returns a pointer to a copy of the value, or nil when not set.
func (n Nullable[T]) Ptr() *T {
	if n.state != present {
		return nil
	}
	v := n.value
	return &v
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.state != present {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// UnmarshalJSON only runs when the key is present in the payload, so the
// result is either null or set.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		n.value = zero
		n.state = null
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.value = v
	n.state = present
	return nil
}
