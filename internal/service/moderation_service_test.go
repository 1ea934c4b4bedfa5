package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/events"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

func submitReport(t *testing.T, h *harness, player, cheat string) *domain.CheatReport {
	t.Helper()
	report, err := h.svc.Moderation.SubmitCheatReport(context.Background(), detector, SubmitReportInput{
		PlayerID:  player,
		CheatType: cheat,
		Severity:  domain.SeverityHigh,
		Evidence:  map[string]any{"headshot_ratio": 0.97},
	})
	require.NoError(t, err)
	return report
}

func issueTempBan(t *testing.T, h *harness, player, cheat string, days int) *domain.Ban {
	t.Helper()
	ban, err := h.svc.Moderation.IssueBan(context.Background(), admin, IssueBanInput{
		PlayerID:     player,
		CheatType:    cheat,
		Type:         domain.BanTypeTemporary,
		Reason:       "aim assist",
		DurationDays: nullable.Of(days),
	})
	require.NoError(t, err)
	return ban
}

func TestReview_ConfirmTemporaryBanIssuesBan(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	report := submitReport(t, h, "p1", "aimbot")

	res, err := h.svc.Moderation.Review(ctx, moderator, report.ID, ReviewInput{
		Decision:        domain.DecisionConfirm,
		Action:          domain.ActionTemporaryBan,
		BanDurationDays: nullable.Of(7),
		Notes:           "clear aimbot",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Ban)
	assert.Equal(t, domain.CheatReportConfirmed, res.Report.Status)
	assert.Equal(t, res.Ban.ID, res.Report.BanID.OrElse(""))
	assert.Equal(t, domain.BanTypeTemporary, res.Ban.Type)
	assert.Equal(t, t0.AddDate(0, 0, 7), res.Ban.ExpiresAt.OrElse(time.Time{}))
	assert.Len(t, h.events.ofType(events.EventBanIssued), 1)

	stored, err := h.svc.Moderation.GetBan(ctx, res.Ban.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BanStatusActive, stored.Status)
}

func TestReview_TemporaryBanNeedsDuration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	report := submitReport(t, h, "p1", "aimbot")

	_, err := h.svc.Moderation.Review(ctx, moderator, report.ID, ReviewInput{
		Decision: domain.DecisionConfirm,
		Action:   domain.ActionTemporaryBan,
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeMissingGuardData), "got %v", err)

	stored, err := h.svc.Moderation.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheatReportPending, stored.Status)
	bans, err := h.svc.Moderation.ListBans(ctx, BanFilter{PlayerID: "p1"})
	require.NoError(t, err)
	assert.Empty(t, bans)
}

func TestReview_EscalateReassigns(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	report := submitReport(t, h, "p1", "wallhack")

	_, err := h.svc.Moderation.Review(ctx, moderator, report.ID, ReviewInput{Decision: domain.DecisionEscalate})
	assert.True(t, apperrors.Is(err, apperrors.CodeMissingGuardData))

	res, err := h.svc.Moderation.Review(ctx, moderator, report.ID, ReviewInput{Decision: domain.DecisionEscalate, EscalateTo: "senior-mod"})
	require.NoError(t, err)
	assert.Equal(t, domain.CheatReportUnderReview, res.Report.Status)
	assert.Equal(t, "senior-mod", res.Report.ReviewerID.OrElse(""))

	res, err = h.svc.Moderation.Review(ctx, moderator, report.ID, ReviewInput{Decision: domain.DecisionDismiss})
	require.NoError(t, err)
	assert.Equal(t, domain.CheatReportDismissed, res.Report.Status)
	assert.Nil(t, res.Ban)

	_, err = h.svc.Moderation.Review(ctx, moderator, report.ID, ReviewInput{Decision: domain.DecisionConfirm})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdge))
}

func TestIssueBan_DuplicateActiveBanRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	issueTempBan(t, h, "p1", "aimbot", 3)

	_, err := h.svc.Moderation.IssueBan(ctx, admin, IssueBanInput{
		PlayerID:  "p1",
		CheatType: "aimbot",
		Type:      domain.BanTypePermanent,
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeDuplicateActiveBan), "got %v", err)

	// A different cause is a separate slot.
	_, err = h.svc.Moderation.IssueBan(ctx, admin, IssueBanInput{PlayerID: "p1", CheatType: "speedhack", Type: domain.BanTypePermanent})
	assert.NoError(t, err)

	// Confirming a report for the same cause cannot create a second ban either.
	report := submitReport(t, h, "p1", "aimbot")
	_, err = h.svc.Moderation.Review(ctx, moderator, report.ID, ReviewInput{Decision: domain.DecisionConfirm, Action: domain.ActionPermanentBan})
	assert.True(t, apperrors.Is(err, apperrors.CodeDuplicateActiveBan), "got %v", err)
}

func TestIssueBan_ConcurrentIssuersSingleWinner(t *testing.T) {
	h := newHarness(t)
	const n = 8

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Moderation.IssueBan(context.Background(), admin, IssueBanInput{
				PlayerID:  "p1",
				CheatType: "aimbot",
				Type:      domain.BanTypePermanent,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, apperrors.Is(err, apperrors.CodeDuplicateActiveBan), "got %v", err)
	}
	assert.Equal(t, 1, wins)

	active, err := h.svc.Moderation.ListBans(context.Background(), BanFilter{PlayerID: "p1", Statuses: []domain.BanStatus{domain.BanStatusActive}})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestIssueBan_DeadlineRules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.Moderation.IssueBan(ctx, admin, IssueBanInput{
		PlayerID:  "p1",
		CheatType: "aimbot",
		Type:      domain.BanTypePermanent,
		ExpiresAt: nullable.Of(t0.Add(24 * time.Hour)),
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidDeadline), "got %v", err)

	_, err = h.svc.Moderation.IssueBan(ctx, admin, IssueBanInput{PlayerID: "p1", CheatType: "aimbot", Type: domain.BanTypeTemporary})
	assert.True(t, apperrors.Is(err, apperrors.CodeMissingGuardData), "got %v", err)

	_, err = h.svc.Moderation.IssueBan(ctx, admin, IssueBanInput{
		PlayerID:  "p1",
		CheatType: "aimbot",
		Type:      domain.BanTypeTemporary,
		ExpiresAt: nullable.Of(t0.Add(-time.Hour)),
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidDeadline), "got %v", err)

	_, err = h.svc.Moderation.IssueBan(ctx, moderator, IssueBanInput{PlayerID: "p1", CheatType: "aimbot", Type: domain.BanTypePermanent})
	assert.True(t, apperrors.Is(err, apperrors.CodeActorNotAuthorized), "got %v", err)
}

func TestBanExpiry_TemporaryBanExpires(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ban := issueTempBan(t, h, "p1", "aimbot", 1)

	h.advance(24 * time.Hour)
	stored, err := h.svc.Moderation.GetBan(ctx, ban.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BanStatusExpired, stored.Status)

	// The slot is free again.
	issueTempBan(t, h, "p1", "aimbot", 1)
}

func TestAppeal_ApprovalLiftsBan(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ban := issueTempBan(t, h, "p1", "aimbot", 7)

	appeal, err := h.svc.Moderation.SubmitAppeal(ctx, agent, ban.ID, SubmitAppealInput{PlayerID: "p1", Reason: "was my brother"})
	require.NoError(t, err)
	stored, err := h.svc.Moderation.GetBan(ctx, ban.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BanStatusAppealed, stored.Status)
	assert.Equal(t, appeal.ID, stored.AppealID.OrElse(""))

	_, err = h.svc.Moderation.LiftBan(ctx, admin, ban.ID, "manual")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdge), "got %v", err)

	_, err = h.svc.Moderation.StartAppealReview(ctx, moderator, appeal.ID)
	require.NoError(t, err)

	res, err := h.svc.Moderation.ResolveAppeal(ctx, moderator, appeal.ID, ResolveAppealInput{Status: domain.AppealStatusApproved, Notes: "ok"})
	require.NoError(t, err)
	assert.Equal(t, domain.AppealStatusApproved, res.Appeal.Status)
	assert.Equal(t, domain.BanStatusLifted, res.Ban.Status)
	assert.Equal(t, t0, res.Appeal.ResolvedAt.OrElse(time.Time{}))

	// The expiry timer no longer applies.
	h.advance(8 * 24 * time.Hour)
	stored, err = h.svc.Moderation.GetBan(ctx, ban.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BanStatusLifted, stored.Status)
}

func TestAppeal_FailedWriteLeavesBothUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := &faultyBackend{Backend: repository.NewMemoryBackend(), failKind: string(domain.KindAppeal)}
	h := newHarnessOn(t, backend, clock.Fake(t0))
	ban := issueTempBan(t, h, "p1", "aimbot", 7)
	appeal, err := h.svc.Moderation.SubmitAppeal(ctx, agent, ban.ID, SubmitAppealInput{Reason: "not me"})
	require.NoError(t, err)

	backend.armed.Store(true)
	_, err = h.svc.Moderation.ResolveAppeal(ctx, moderator, appeal.ID, ResolveAppealInput{Status: domain.AppealStatusApproved})
	require.Error(t, err)
	backend.armed.Store(false)

	storedBan, err := h.svc.Moderation.GetBan(ctx, ban.ID)
	require.NoError(t, err)
	storedAppeal, err := h.svc.Moderation.GetAppeal(ctx, appeal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BanStatusAppealed, storedBan.Status)
	assert.Equal(t, domain.AppealStatusPending, storedAppeal.Status)
	assert.Empty(t, h.events.ofType(events.EventAppealResolved))
}

func TestAppeal_ExplicitNullResolvedAtRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ban := issueTempBan(t, h, "p1", "aimbot", 7)
	appeal, err := h.svc.Moderation.SubmitAppeal(ctx, agent, ban.ID, SubmitAppealInput{Reason: "not me"})
	require.NoError(t, err)

	_, err = h.svc.Moderation.ResolveAppeal(ctx, moderator, appeal.ID, ResolveAppealInput{
		Status:     domain.AppealStatusRejected,
		ResolvedAt: nullable.Null[time.Time](),
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeMissingGuardData), "got %v", err)
}

func TestAppeal_RejectionAfterExpiryExpiresBan(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ban := issueTempBan(t, h, "p1", "aimbot", 1)
	appeal, err := h.svc.Moderation.SubmitAppeal(ctx, agent, ban.ID, SubmitAppealInput{Reason: "not me"})
	require.NoError(t, err)

	// The expiry passes while the appeal is open; the ban stays in force.
	h.advance(2 * 24 * time.Hour)
	stored, err := h.svc.Moderation.GetBan(ctx, ban.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BanStatusAppealed, stored.Status)

	res, err := h.svc.Moderation.ResolveAppeal(ctx, moderator, appeal.ID, ResolveAppealInput{Status: domain.AppealStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, domain.AppealStatusRejected, res.Appeal.Status)
	assert.Equal(t, domain.BanStatusExpired, res.Ban.Status)
}

func TestAppeal_RejectionBeforeExpiryReactivates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ban := issueTempBan(t, h, "p1", "aimbot", 3)
	appeal, err := h.svc.Moderation.SubmitAppeal(ctx, agent, ban.ID, SubmitAppealInput{Reason: "not me"})
	require.NoError(t, err)

	res, err := h.svc.Moderation.ResolveAppeal(ctx, moderator, appeal.ID, ResolveAppealInput{Status: domain.AppealStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, domain.BanStatusActive, res.Ban.Status)

	h.advance(3 * 24 * time.Hour)
	stored, err := h.svc.Moderation.GetBan(ctx, ban.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BanStatusExpired, stored.Status)
}

func TestLiftBan_ActiveBan(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ban := issueTempBan(t, h, "p1", "aimbot", 3)

	lifted, err := h.svc.Moderation.LiftBan(ctx, admin, ban.ID, "false positive")
	require.NoError(t, err)
	assert.Equal(t, domain.BanStatusLifted, lifted.Status)

	_, err = h.svc.Moderation.LiftBan(ctx, admin, ban.ID, "again")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidEdge), "got %v", err)
}
