package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/config"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/events"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	"github.com/spec-kit/admin-ops-service/internal/scheduler"
	"github.com/spec-kit/admin-ops-service/internal/sla"
	"github.com/spec-kit/admin-ops-service/internal/statemachine"
)

var t0 = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

var (
	admin     = domain.Actor{ID: "admin-1", Role: domain.StaffRoleAdmin}
	manager   = domain.Actor{ID: "im-1", Role: domain.StaffRoleIncidentManager}
	moderator = domain.Actor{ID: "mod-1", Role: domain.StaffRoleModerator}
	agent     = domain.Actor{ID: "agent-1", Role: domain.StaffRoleSupportAgent}
	detector  = domain.Actor{ID: "detector", Role: domain.StaffRoleSystem}
)

var testBounds = map[string]config.ParameterBounds{
	"weapon.damage": {Min: 10, Max: 40, Initial: 20, MaxDelta: 5},
	"economy.mult":  {Min: 0.5, Max: 2, Initial: 1},
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) ofType(typ events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// faultyBackend fails every CompareAndSwap touching failKind while armed.
// The first passes matching writes still go through.
type faultyBackend struct {
	repository.Backend
	failKind string
	armed    atomic.Bool
	passes   atomic.Int32
}

func (f *faultyBackend) CompareAndSwap(ctx context.Context, writes ...repository.Write) error {
	if f.armed.Load() {
		for _, w := range writes {
			if w.Kind != f.failKind {
				continue
			}
			if f.passes.Add(-1) >= 0 {
				break
			}
			return errors.New("storage unavailable")
		}
	}
	return f.Backend.CompareAndSwap(ctx, writes...)
}

type harness struct {
	clock    *clock.FakeClock
	backend  repository.Backend
	timers   *scheduler.Scheduler
	events   *eventRecorder
	balances *MemoryBalanceStore
	reviews  *MemoryReviewQueue
	svc      Services
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessOn(t, repository.NewMemoryBackend(), clock.Fake(t0))
}

func newHarnessOn(t *testing.T, backend repository.Backend, clk *clock.FakeClock) *harness {
	t.Helper()
	logger := zap.NewNop()
	timers := scheduler.New(clk, logger)
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	dispatcher.SubscribeAll(recorder.record)

	deps := Dependencies{
		Store:       repository.NewStore(backend),
		Audit:       repository.NewMemoryTransitionLog(),
		Engine:      statemachine.NewDefaultEngine(clk),
		Clock:       clk,
		Timers:      timers,
		Tracker:     sla.NewTracker(sla.DefaultPolicy(), clk, timers, sla.NewMemoryDeduper()),
		Dispatcher:  dispatcher,
		Logger:      logger,
		MaxAttempts: 3,
	}
	balances := NewMemoryBalanceStore(testBounds)
	reviews := NewMemoryReviewQueue()
	svc := Services{
		Incidents:  NewIncidentService(deps),
		Moderation: NewModerationService(deps),
		Tickets:    NewTicketService(deps),
		Autotune: NewAutotuneService(deps, AutotuneDependencies{
			Balances: balances,
			Reviews:  reviews,
			Bounds:   testBounds,
			Settings: config.AutotuneConfig{MaxDelta: 0.25, RetryDelaySeconds: 60, MaxRollbackSeconds: 86400},
		}),
	}
	RegisterTimerHandlers(timers, svc)

	return &harness{
		clock:    clk,
		backend:  backend,
		timers:   timers,
		events:   recorder,
		balances: balances,
		reviews:  reviews,
		svc:      svc,
	}
}

// advance moves the clock and delivers every message that came due.
func (h *harness) advance(d time.Duration) int {
	h.clock.Advance(d)
	return h.timers.RunPending(context.Background())
}
