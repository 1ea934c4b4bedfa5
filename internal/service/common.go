package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/events"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	"github.com/spec-kit/admin-ops-service/internal/scheduler"
	"github.com/spec-kit/admin-ops-service/internal/sla"
	"github.com/spec-kit/admin-ops-service/internal/statemachine"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// Dependencies bundles the collaborators shared by every workflow.
type Dependencies struct {
	Store       *repository.Store
	Audit       repository.TransitionLog
	Engine      *statemachine.Engine
	Clock       clock.Clock
	Timers      *scheduler.Scheduler
	Tracker     *sla.Tracker
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	MaxAttempts int
}

type workflow struct {
	Dependencies
}

// commit applies writes atomically and, once they land, appends the audit
// records. The audit log is a sink: a failed append is logged, not returned,
// because the state change already happened.
func (w *workflow) commit(ctx context.Context, writes []repository.Write, records ...domain.TransitionRecord) error {
	if err := w.Store.Backend.CompareAndSwap(ctx, writes...); err != nil {
		return err
	}
	if len(records) > 0 {
		if err := w.Audit.Append(ctx, records...); err != nil {
			w.Logger.Error("append transition records", zap.Error(err), zap.Int("count", len(records)))
		}
	}
	return nil
}

func (w *workflow) retry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return repository.WithRetry(ctx, w.MaxAttempts, operation, fn)
}

func (w *workflow) publish(ctx context.Context, event events.Event) {
	if w.Dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = w.Clock.Now()
	}
	if err := w.Dispatcher.Publish(ctx, event); err != nil {
		w.Logger.Warn("event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
	}
}

// loadErr maps store read failures to domain errors.
func loadErr(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

func requireRole(actor domain.Actor, action string, roles ...domain.StaffRole) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return apperrors.NewActorNotAuthorized("role "+string(actor.Role)+" may not "+action, map[string]any{
		"actor_id":   actor.ID,
		"actor_role": actor.Role,
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
