package statemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

var (
	now     = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	manager = domain.Actor{ID: "im-1", Role: domain.StaffRoleIncidentManager}
	mod     = domain.Actor{ID: "mod-1", Role: domain.StaffRoleModerator}
)

func newEngine() *Engine {
	return NewDefaultEngine(clock.Fake(now))
}

func TestTransition_AcceptedEdgeReturnsRecord(t *testing.T) {
	rec, err := newEngine().Transition(Request{
		Kind:     domain.KindIncident,
		EntityID: "inc-1",
		From:     string(domain.IncidentStatusNew),
		To:       string(domain.IncidentStatusAcknowledged),
		Actor:    manager,
		Comment:  "paged",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, domain.KindIncident, rec.EntityKind)
	assert.Equal(t, "new", rec.From)
	assert.Equal(t, "acknowledged", rec.To)
	assert.Equal(t, manager.ID, rec.ActorID)
	assert.Equal(t, now, rec.OccurredAt)
}

func TestTransition_Rejections(t *testing.T) {
	e := newEngine()
	cases := []struct {
		name string
		req  Request
		code string
	}{
		{
			name: "edge not in table",
			req:  Request{Kind: domain.KindIncident, From: "new", To: "closed", Actor: manager},
			code: apperrors.CodeInvalidEdge,
		},
		{
			name: "terminal state",
			req:  Request{Kind: domain.KindBan, From: "LIFTED", To: "ACTIVE", Actor: mod},
			code: apperrors.CodeInvalidEdge,
		},
		{
			name: "role not allowed",
			req:  Request{Kind: domain.KindIncident, From: "new", To: "acknowledged", Actor: mod},
			code: apperrors.CodeActorNotAuthorized,
		},
		{
			name: "only system expires bans",
			req:  Request{Kind: domain.KindBan, From: "ACTIVE", To: "EXPIRED", Actor: mod},
			code: apperrors.CodeActorNotAuthorized,
		},
		{
			name: "resolve without resolvedAt",
			req: Request{Kind: domain.KindIncident, From: "investigating", To: "resolved", Actor: manager,
				Data: IncidentResolution{DetectedAt: now}},
			code: apperrors.CodeMissingGuardData,
		},
		{
			name: "resolvedAt before detection",
			req: Request{Kind: domain.KindIncident, From: "mitigated", To: "resolved", Actor: manager,
				Data: IncidentResolution{DetectedAt: now, ResolvedAt: nullable.Of(now.Add(-time.Minute))}},
			code: apperrors.CodeInvalidDeadline,
		},
		{
			name: "approve without lifting ban",
			req: Request{Kind: domain.KindAppeal, From: "PENDING", To: "APPROVED", Actor: mod,
				Data: AppealDecision{ResolvedAt: nullable.Of(now)}},
			code: apperrors.CodeMissingGuardData,
		},
		{
			name: "temporary ban without duration",
			req: Request{Kind: domain.KindCheatReport, From: "PENDING", To: "CONFIRMED", Actor: mod,
				Data: ReviewVerdict{Action: domain.ActionTemporaryBan}},
			code: apperrors.CodeMissingGuardData,
		},
		{
			name: "temporary ban with zero days",
			req: Request{Kind: domain.KindCheatReport, From: "PENDING", To: "CONFIRMED", Actor: mod,
				Data: ReviewVerdict{Action: domain.ActionTemporaryBan, BanDurationDays: nullable.Of(0)}},
			code: apperrors.CodeMissingGuardData,
		},
		{
			name: "unknown role",
			req:  Request{Kind: domain.KindSupportTicket, From: "open", To: "pending", Actor: domain.Actor{ID: "x", Role: "PLAYER"}},
			code: apperrors.CodeActorNotAuthorized,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Transition(tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, apperrors.CodeOf(err))
		})
	}
}

func TestTransition_GuardsAccept(t *testing.T) {
	e := newEngine()
	_, err := e.Transition(Request{Kind: domain.KindIncident, From: "investigating", To: "resolved", Actor: manager,
		Data: IncidentResolution{DetectedAt: now, ResolvedAt: nullable.Of(now)}})
	assert.NoError(t, err)

	_, err = e.Transition(Request{Kind: domain.KindCheatReport, From: "UNDER_REVIEW", To: "CONFIRMED", Actor: mod,
		Data: ReviewVerdict{Action: domain.ActionTemporaryBan, BanDurationDays: nullable.Of(3)}})
	assert.NoError(t, err)

	_, err = e.Transition(Request{Kind: domain.KindAppeal, From: "UNDER_REVIEW", To: "APPROVED", Actor: mod,
		Data: AppealDecision{ResolvedAt: nullable.Of(now), BanLifted: true}})
	assert.NoError(t, err)
}

func TestTransition_AdminPassesSystemOnlyEdge(t *testing.T) {
	admin := domain.Actor{ID: "admin-1", Role: domain.StaffRoleAdmin}
	rec, err := newEngine().Transition(Request{Kind: domain.KindBan, EntityID: "ban-1", From: "ACTIVE", To: "EXPIRED", Actor: admin})
	require.NoError(t, err)
	assert.Equal(t, domain.StaffRoleAdmin, rec.ActorRole)
}

func TestCreate_InitialStateOnly(t *testing.T) {
	e := newEngine()
	rec, err := e.Create(domain.KindBan, "ban-1", "ACTIVE", mod)
	require.NoError(t, err)
	assert.Equal(t, "", rec.From)

	_, err = e.Create(domain.KindBan, "ban-2", "LIFTED", mod)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdge))
}

func TestAllowedAndTerminal(t *testing.T) {
	e := newEngine()
	assert.Equal(t, []string{"closed", "open"}, e.Allowed(domain.KindSupportTicket, "resolved"))
	assert.True(t, e.IsTerminal(domain.KindIncident, "closed"))
	assert.True(t, e.IsTerminal(domain.KindAppeal, "REJECTED"))
	assert.False(t, e.IsTerminal(domain.KindBan, "APPEALED"))
}
