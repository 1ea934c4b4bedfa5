package sla

import (
	"context"
	"time"

	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/observability"
	"github.com/spec-kit/admin-ops-service/internal/scheduler"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// MessageKind is the scheduler kind of breach checks.
const MessageKind scheduler.Kind = "sla.breach"

// BreachCheck is the payload delivered when a deadline passes.
type BreachCheck struct {
	EntityKind domain.EntityKind
	EntityID   string
	Deadline   time.Time
}

// Tracker computes SLA deadlines and arms breach timers.
type Tracker struct {
	policy Policy
	clock  clock.Clock
	timers *scheduler.Scheduler
	dedup  Deduper
}

// NewTracker creates a tracker.
func NewTracker(policy Policy, clk clock.Clock, timers *scheduler.Scheduler, dedup Deduper) *Tracker {
	return &Tracker{policy: policy, clock: clk, timers: timers, dedup: dedup}
}

// OnCreate returns the breach deadline for a new incident. An absent
// explicit value takes the policy default; an explicit null disables the
// SLA; an explicit time must not precede detectedAt.
func (t *Tracker) OnCreate(severity domain.IncidentSeverity, detectedAt time.Time, explicit nullable.Nullable[time.Time]) (nullable.Nullable[time.Time], error) {
	if explicit.IsNull() {
		return nullable.Null[time.Time](), nil
	}
	if at, ok := explicit.Get(); ok {
		if at.Before(detectedAt) {
			return nullable.Absent[time.Time](), apperrors.NewInvalidDeadline("slaBreachAt must not precede detectedAt", map[string]any{
				"detected_at":   detectedAt,
				"sla_breach_at": at,
			})
		}
		return nullable.Of(at), nil
	}
	window, ok := t.policy.Incident[severity]
	if !ok {
		return nullable.Absent[time.Time](), apperrors.NewValidationError("unknown severity", map[string]any{"severity": severity})
	}
	return nullable.Of(detectedAt.Add(window)), nil
}

// TicketDue returns the due date of a ticket opened at createdAt.
func (t *Tracker) TicketDue(priority domain.TicketPriority, createdAt time.Time) nullable.Nullable[time.Time] {
	window, ok := t.policy.Ticket[priority]
	if !ok {
		return nullable.Null[time.Time]()
	}
	return nullable.Of(createdAt.Add(window))
}

// Durations returns whole minutes from detection to acknowledgement and to
// resolution. Either is absent when its end timestamp is not set.
func Durations(detectedAt time.Time, acknowledgedAt, resolvedAt nullable.Nullable[time.Time]) (mtta, mttr nullable.Nullable[int64]) {
	if at, ok := acknowledgedAt.Get(); ok {
		mtta = nullable.Of(int64(at.Sub(detectedAt) / time.Minute))
	}
	if at, ok := resolvedAt.Get(); ok {
		mttr = nullable.Of(int64(at.Sub(detectedAt) / time.Minute))
	}
	return mtta, mttr
}

// OnAcknowledge fills MTTA on inc if it is not set yet.
func (t *Tracker) OnAcknowledge(inc *domain.Incident) {
	mtta, _ := Durations(inc.DetectedAt, inc.AcknowledgedAt, nullable.Absent[time.Time]())
	if !inc.MTTAMinutes.IsSet() && mtta.IsSet() {
		inc.MTTAMinutes = mtta
	}
}

// OnResolve fills MTTA and MTTR on inc. Values already set are frozen.
func (t *Tracker) OnResolve(inc *domain.Incident) {
	mtta, mttr := Durations(inc.DetectedAt, inc.AcknowledgedAt, inc.ResolvedAt)
	if !inc.MTTAMinutes.IsSet() && mtta.IsSet() {
		inc.MTTAMinutes = mtta
	}
	if !inc.MTTRMinutes.IsSet() && mttr.IsSet() {
		inc.MTTRMinutes = mttr
	}
}

// Arm schedules a breach check for the entity at deadline, replacing any
// earlier check for it.
func (t *Tracker) Arm(kind domain.EntityKind, entityID string, deadline time.Time) {
	t.timers.Schedule(TimerKey(kind, entityID), deadline, MessageKind, BreachCheck{
		EntityKind: kind,
		EntityID:   entityID,
		Deadline:   deadline,
	})
}

// Disarm cancels the pending breach check of the entity, if any.
func (t *Tracker) Disarm(kind domain.EntityKind, entityID string) {
	t.timers.Cancel(TimerKey(kind, entityID))
}

// Breach records a breach for check and reports whether this is the first
// emission for the (entity, deadline) pair.
func (t *Tracker) Breach(ctx context.Context, check BreachCheck) (bool, error) {
	first, err := t.dedup.FirstEmit(ctx, string(check.EntityKind)+":"+check.EntityID, check.Deadline)
	if err != nil || !first {
		return false, err
	}
	observability.SLABreachesTotal.WithLabelValues(string(check.EntityKind)).Inc()
	return true, nil
}

// Now returns the tracker's clock reading.
func (t *Tracker) Now() time.Time { return t.clock.Now() }

// TimerKey is the scheduler key of an entity's breach check.
func TimerKey(kind domain.EntityKind, entityID string) string {
	return "sla:" + string(kind) + ":" + entityID
}
