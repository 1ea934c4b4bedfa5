package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/scheduler"
	"github.com/spec-kit/admin-ops-service/internal/sla"
)

// Services groups the workflows driven by timers.
type Services struct {
	Incidents  *IncidentService
	Moderation *ModerationService
	Autotune   *AutotuneService
	Tickets    *TicketService
}

// RegisterTimerHandlers routes scheduler messages to their workflows.
func RegisterTimerHandlers(timers *scheduler.Scheduler, svc Services) {
	timers.Handle(sla.MessageKind, func(ctx context.Context, msg scheduler.Message) error {
		check, ok := msg.Payload.(sla.BreachCheck)
		if !ok {
			return fmt.Errorf("unexpected breach payload %T", msg.Payload)
		}
		switch check.EntityKind {
		case domain.KindIncident:
			return svc.Incidents.HandleBreach(ctx, check)
		case domain.KindSupportTicket:
			return svc.Tickets.HandleBreach(ctx, check)
		}
		return fmt.Errorf("no breach handler for %s", check.EntityKind)
	})
	timers.Handle(BanExpiryKind, svc.Moderation.HandleBanExpiry)
	timers.Handle(RollbackKind, svc.Autotune.HandleRollback)
}

// RecoveryStats counts the timers re-armed at startup.
type RecoveryStats struct {
	Breaches  int
	Expiries  int
	Rollbacks int
	// UnfinishedBatches counts autotune batches left in the applying state.
	UnfinishedBatches int
}

// RecoverSchedules re-arms timers for every entity that still has one due:
// unacknowledged incidents and open tickets with a deadline, ACTIVE
// temporary bans, and rollbacks not yet settled. Rollbacks whose last
// attempt never stored an outcome come due immediately. Deadlines already
// in the past are delivered on the next dispatch.
func RecoverSchedules(ctx context.Context, svc Services, logger *zap.Logger) (RecoveryStats, error) {
	var stats RecoveryStats

	incidents, err := svc.Incidents.Store.Incidents.List(ctx, func(inc *domain.Incident) bool {
		return inc.Status == domain.IncidentStatusNew && inc.SLABreachAt.IsSet()
	})
	if err != nil {
		return stats, fmt.Errorf("recover incident timers: %w", err)
	}
	for _, inc := range incidents {
		at, _ := inc.SLABreachAt.Get()
		svc.Incidents.Tracker.Arm(domain.KindIncident, inc.ID, at)
		stats.Breaches++
	}

	tickets, err := svc.Tickets.Store.Tickets.List(ctx, func(t *domain.SupportTicket) bool {
		return t.SLADueAt.IsSet() && t.Status != domain.TicketStatusResolved && t.Status != domain.TicketStatusClosed
	})
	if err != nil {
		return stats, fmt.Errorf("recover ticket timers: %w", err)
	}
	for _, t := range tickets {
		at, _ := t.SLADueAt.Get()
		svc.Tickets.Tracker.Arm(domain.KindSupportTicket, t.ID, at)
		stats.Breaches++
	}

	bans, err := svc.Moderation.Store.Bans.List(ctx, func(b *domain.Ban) bool {
		return b.Status == domain.BanStatusActive && b.ExpiresAt.IsSet()
	})
	if err != nil {
		return stats, fmt.Errorf("recover ban expiries: %w", err)
	}
	for _, b := range bans {
		at, _ := b.ExpiresAt.Get()
		svc.Moderation.scheduleExpiry(b.ID, at)
		stats.Expiries++
	}

	results, err := svc.Autotune.Store.AutotuneResults.List(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("recover rollbacks: %w", err)
	}
	for _, result := range results {
		if result.Status == domain.AutotuneApplying {
			stats.UnfinishedBatches++
			logger.Warn("autotune batch never finished applying",
				zap.String("batch_id", result.BatchID),
				zap.Time("created_at", result.CreatedAt))
		}
		for _, rb := range result.ScheduledRollbacks {
			if rb.State.IsFinal() {
				continue
			}
			at := rb.RollbackAt
			switch {
			case rb.InFlightSince.IsSet():
				// Outcome unknown; delivery escalates it.
				at = svc.Autotune.Clock.Now()
			case rb.State == domain.RollbackFailed:
				at = svc.Autotune.Clock.Now().Add(svc.Autotune.settings.RetryDelay())
			}
			svc.Autotune.Timers.Schedule(rollbackKey(rb.Action.ActionID), at, RollbackKind,
				rollbackRef{BatchID: result.BatchID, ActionID: rb.Action.ActionID})
			stats.Rollbacks++
		}
	}

	logger.Info("timers recovered",
		zap.Int("breach_checks", stats.Breaches),
		zap.Int("ban_expiries", stats.Expiries),
		zap.Int("rollbacks", stats.Rollbacks))
	return stats, nil
}
