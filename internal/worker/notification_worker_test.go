package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/scheduler"
)

func TestStartScheduler_DeliversAndStops(t *testing.T) {
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	clk := clock.Fake(start)
	timers := scheduler.New(clk, zap.NewNop())

	delivered := make(chan string, 2)
	timers.Handle("ping", func(_ context.Context, msg scheduler.Message) error {
		delivered <- msg.Key
		return nil
	})

	// Due before the loop starts.
	timers.Schedule("early", start, "ping", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := StartScheduler(ctx, timers, zap.NewNop())

	timers.Schedule("late", start.Add(time.Minute), "ping", nil)
	clk.Advance(time.Minute)

	got := map[string]bool{}
	for len(got) < 2 {
		select {
		case key := <-delivered:
			got[key] = true
		case <-time.After(2 * time.Second):
			require.FailNow(t, "timer message not delivered", "got %v", got)
		}
	}
	assert.True(t, got["early"])
	assert.True(t, got["late"])

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "scheduler did not stop")
	}
}
