package sla

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/config"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/scheduler"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

var detected = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newTracker() (*Tracker, *scheduler.Scheduler, *clock.FakeClock) {
	clk := clock.Fake(detected)
	timers := scheduler.New(clk, zap.NewNop())
	return NewTracker(DefaultPolicy(), clk, timers, NewMemoryDeduper()), timers, clk
}

func TestOnCreate_DefaultsBySeverity(t *testing.T) {
	tr, _, _ := newTracker()
	cases := map[domain.IncidentSeverity]time.Duration{
		domain.SeverityCritical: 15 * time.Minute,
		domain.SeverityHigh:     time.Hour,
		domain.SeverityMedium:   4 * time.Hour,
		domain.SeverityLow:      24 * time.Hour,
	}
	for sev, window := range cases {
		got, err := tr.OnCreate(sev, detected, nullable.Absent[time.Time]())
		require.NoError(t, err)
		at, ok := got.Get()
		require.True(t, ok, sev)
		assert.Equal(t, detected.Add(window), at, sev)
	}
}

func TestOnCreate_ExplicitNullMeansNoSLA(t *testing.T) {
	tr, _, _ := newTracker()
	got, err := tr.OnCreate(domain.SeverityCritical, detected, nullable.Null[time.Time]())
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestOnCreate_ExplicitDeadline(t *testing.T) {
	tr, _, _ := newTracker()

	got, err := tr.OnCreate(domain.SeverityLow, detected, nullable.Of(detected.Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, nullable.Of(detected.Add(time.Minute)), got)

	_, err = tr.OnCreate(domain.SeverityLow, detected, nullable.Of(detected.Add(-time.Second)))
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidDeadline))
}

func TestDurations_WholeMinutes(t *testing.T) {
	mtta, mttr := Durations(detected,
		nullable.Of(detected.Add(5*time.Minute+30*time.Second)),
		nullable.Of(detected.Add(40*time.Minute)))
	assert.Equal(t, nullable.Of(int64(5)), mtta)
	assert.Equal(t, nullable.Of(int64(40)), mttr)
}

func TestOnResolve_FreezesExistingValues(t *testing.T) {
	tr, _, _ := newTracker()
	inc := &domain.Incident{
		DetectedAt:     detected,
		AcknowledgedAt: nullable.Of(detected.Add(5 * time.Minute)),
		ResolvedAt:     nullable.Of(detected.Add(40 * time.Minute)),
	}
	tr.OnResolve(inc)
	assert.Equal(t, nullable.Of(int64(40)), inc.MTTRMinutes)

	inc.ResolvedAt = nullable.Of(detected.Add(90 * time.Minute))
	tr.OnResolve(inc)
	assert.Equal(t, nullable.Of(int64(40)), inc.MTTRMinutes)
	assert.Equal(t, nullable.Of(int64(5)), inc.MTTAMinutes)
}

func TestBreach_EmitsOncePerDeadline(t *testing.T) {
	tr, _, _ := newTracker()
	ctx := context.Background()
	check := BreachCheck{EntityKind: domain.KindIncident, EntityID: "inc-1", Deadline: detected.Add(15 * time.Minute)}

	first, err := tr.Breach(ctx, check)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := tr.Breach(ctx, check)
	require.NoError(t, err)
	assert.False(t, again)

	check.Deadline = check.Deadline.Add(time.Hour)
	moved, err := tr.Breach(ctx, check)
	require.NoError(t, err)
	assert.True(t, moved)
}

func TestArmAndDisarm(t *testing.T) {
	tr, timers, clk := newTracker()
	var got []BreachCheck
	timers.Handle(MessageKind, func(_ context.Context, msg scheduler.Message) error {
		got = append(got, msg.Payload.(BreachCheck))
		return nil
	})

	tr.Arm(domain.KindIncident, "a", detected.Add(15*time.Minute))
	tr.Arm(domain.KindIncident, "b", detected.Add(15*time.Minute))
	tr.Disarm(domain.KindIncident, "b")

	clk.Advance(15 * time.Minute)
	timers.RunPending(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].EntityID)
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.SLAConfig{CriticalMinutes: 5, TicketLowHours: 48})
	assert.Equal(t, 5*time.Minute, p.Incident[domain.SeverityCritical])
	assert.Equal(t, time.Hour, p.Incident[domain.SeverityHigh])
	assert.Equal(t, 48*time.Hour, p.Ticket[domain.TicketPriorityLow])
}
