package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RunsAllHandlersAndCombinesErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventBanIssued, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("mail down")
	})
	d.Subscribe(EventBanIssued, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.SubscribeAll(func(context.Context, Event) error {
		calls = append(calls, "all")
		return errors.New("redis down")
	})

	err := d.Publish(context.Background(), Event{Type: EventBanIssued})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail down")
	assert.Contains(t, err.Error(), "redis down")
	assert.Equal(t, []string{"first", "second", "all"}, calls)
}

func TestDispatcher_NoHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventSLABreached}))
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "events:sla_breached", ChannelName(EventSLABreached))
}
