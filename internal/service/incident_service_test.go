package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/events"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

func createCritical(t *testing.T, h *harness) *domain.Incident {
	t.Helper()
	inc, err := h.svc.Incidents.Create(context.Background(), manager, CreateIncidentInput{
		Title:            "matchmaking down",
		Severity:         domain.SeverityCritical,
		DetectedAt:       h.clock.Now(),
		AffectedServices: []string{"mm", "lobby", "mm"},
	})
	require.NoError(t, err)
	return inc
}

func TestIncident_AckBeforeDeadlineNeverBreaches(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	inc := createCritical(t, h)

	deadline, ok := inc.SLABreachAt.Get()
	require.True(t, ok)
	assert.Equal(t, t0.Add(15*time.Minute), deadline)
	assert.Equal(t, []string{"lobby", "mm"}, inc.AffectedServices)

	h.advance(5 * time.Minute)
	inc, err := h.svc.Incidents.Acknowledge(ctx, manager, inc.ID, "on it")
	require.NoError(t, err)
	assert.Equal(t, int64(5), inc.MTTAMinutes.OrElse(-1))

	_, err = h.svc.Incidents.Transition(ctx, manager, inc.ID, IncidentTransitionInput{To: domain.IncidentStatusInvestigating})
	require.NoError(t, err)

	h.advance(35 * time.Minute)
	inc, err = h.svc.Incidents.Transition(ctx, manager, inc.ID, IncidentTransitionInput{
		To:         domain.IncidentStatusResolved,
		ResolvedAt: nullable.Of(h.clock.Now()),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), inc.MTTAMinutes.OrElse(-1))
	assert.Equal(t, int64(40), inc.MTTRMinutes.OrElse(-1))

	h.advance(time.Hour)
	assert.Empty(t, h.events.ofType(events.EventSLABreached))
	assert.Zero(t, h.timers.PendingCount())
}

func TestIncident_UnacknowledgedBreachEmittedOnce(t *testing.T) {
	h := newHarness(t)
	inc := createCritical(t, h)

	assert.Equal(t, 1, h.advance(15*time.Minute))
	breaches := h.events.ofType(events.EventSLABreached)
	require.Len(t, breaches, 1)
	assert.Equal(t, inc.ID, breaches[0].EntityID)

	// A duplicate delivery for the same deadline is deduplicated.
	deadline, _ := inc.SLABreachAt.Get()
	h.svc.Incidents.Tracker.Arm(domain.KindIncident, inc.ID, deadline)
	h.timers.RunPending(context.Background())
	assert.Len(t, h.events.ofType(events.EventSLABreached), 1)
}

func TestIncident_ExplicitNullDisablesSLA(t *testing.T) {
	h := newHarness(t)
	inc, err := h.svc.Incidents.Create(context.Background(), manager, CreateIncidentInput{
		Title:       "cosmetic glitch",
		Severity:    domain.SeverityLow,
		DetectedAt:  t0,
		SLABreachAt: nullable.Null[time.Time](),
	})
	require.NoError(t, err)
	assert.True(t, inc.SLABreachAt.IsNull())
	assert.Zero(t, h.timers.PendingCount())
}

func TestIncident_DeadlineBeforeDetectionRejected(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Incidents.Create(context.Background(), manager, CreateIncidentInput{
		Title:       "x",
		Severity:    domain.SeverityHigh,
		DetectedAt:  t0,
		SLABreachAt: nullable.Of(t0.Add(-time.Minute)),
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidDeadline))
}

func TestIncident_InvalidEdgeAndRole(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	inc := createCritical(t, h)

	_, err := h.svc.Incidents.Transition(ctx, manager, inc.ID, IncidentTransitionInput{
		To:         domain.IncidentStatusResolved,
		ResolvedAt: nullable.Of(t0),
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdge), "got %v", err)

	_, err = h.svc.Incidents.Acknowledge(ctx, agent, inc.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeActorNotAuthorized), "got %v", err)

	_, err = h.svc.Incidents.Create(ctx, moderator, CreateIncidentInput{Title: "x", Severity: domain.SeverityLow, DetectedAt: t0})
	assert.True(t, apperrors.Is(err, apperrors.CodeActorNotAuthorized))

	stored, err := h.svc.Incidents.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusNew, stored.Status)
}

func TestIncident_ResolveGuards(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	inc := createCritical(t, h)
	_, err := h.svc.Incidents.Acknowledge(ctx, manager, inc.ID, "")
	require.NoError(t, err)
	_, err = h.svc.Incidents.Transition(ctx, manager, inc.ID, IncidentTransitionInput{To: domain.IncidentStatusInvestigating})
	require.NoError(t, err)

	_, err = h.svc.Incidents.Transition(ctx, manager, inc.ID, IncidentTransitionInput{To: domain.IncidentStatusResolved})
	assert.True(t, apperrors.Is(err, apperrors.CodeMissingGuardData), "got %v", err)

	_, err = h.svc.Incidents.Transition(ctx, manager, inc.ID, IncidentTransitionInput{
		To:         domain.IncidentStatusResolved,
		ResolvedAt: nullable.Of(t0.Add(-time.Second)),
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidDeadline), "got %v", err)
}

func TestIncident_HistoryRecordsEveryTransition(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	inc := createCritical(t, h)
	_, err := h.svc.Incidents.Acknowledge(ctx, manager, inc.ID, "paged")
	require.NoError(t, err)

	history, err := h.svc.Incidents.History(ctx, inc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "", history[0].From)
	assert.Equal(t, string(domain.IncidentStatusNew), history[0].To)
	assert.Equal(t, string(domain.IncidentStatusAcknowledged), history[1].To)
	assert.Equal(t, "paged", history[1].Comment)
	assert.Equal(t, manager.ID, history[1].ActorID)
}

func closeIncident(t *testing.T, h *harness, id string) {
	t.Helper()
	ctx := context.Background()
	steps := []IncidentTransitionInput{
		{To: domain.IncidentStatusAcknowledged},
		{To: domain.IncidentStatusInvestigating},
		{To: domain.IncidentStatusResolved, ResolvedAt: nullable.Of(h.clock.Now())},
		{To: domain.IncidentStatusClosed},
	}
	for _, step := range steps {
		_, err := h.svc.Incidents.Transition(ctx, manager, id, step)
		require.NoError(t, err)
	}
}

func TestIncident_RCAOnlyForClosedIncident(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	inc := createCritical(t, h)
	input := RCAInput{
		RootCause:   "expired certificate",
		ActionItems: []RCAActionItemInput{{Description: "automate renewal", Owner: "sre"}},
	}

	_, err := h.svc.Incidents.CreateRCA(ctx, manager, inc.ID, input)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdge), "got %v", err)

	closeIncident(t, h, inc.ID)
	rca, err := h.svc.Incidents.CreateRCA(ctx, manager, inc.ID, input)
	require.NoError(t, err)
	require.Len(t, rca.ActionItems, 1)
	assert.Equal(t, domain.RCAActionOpen, rca.ActionItems[0].Status)

	_, err = h.svc.Incidents.CreateRCA(ctx, manager, inc.ID, input)
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict), "got %v", err)

	updated, err := h.svc.Incidents.UpdateRCAActionItem(ctx, manager, inc.ID, rca.ActionItems[0].ID, RCAActionItemUpdate{
		Status: nullable.Of(domain.RCAActionDone),
		Owner:  nullable.Null[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RCAActionDone, updated.ActionItems[0].Status)
	assert.Empty(t, updated.ActionItems[0].Owner)
	assert.Equal(t, int64(2), updated.Version)
}

func TestIncident_ListFilters(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	createCritical(t, h)
	_, err := h.svc.Incidents.Create(ctx, manager, CreateIncidentInput{Title: "slow", Severity: domain.SeverityLow, DetectedAt: t0})
	require.NoError(t, err)

	items, err := h.svc.Incidents.List(ctx, IncidentFilter{Severities: []domain.IncidentSeverity{domain.SeverityLow}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "slow", items[0].Title)
}
