package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/events"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	"github.com/spec-kit/admin-ops-service/internal/scheduler"
	"github.com/spec-kit/admin-ops-service/internal/statemachine"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// BanExpiryKind is the scheduler kind of ban expiry messages.
const BanExpiryKind scheduler.Kind = "moderation.ban_expiry"

// ModerationService runs the cheat report, ban and appeal workflow.
type ModerationService struct {
	workflow
}

// SubmitReportInput describes a suspected cheating report.
type SubmitReportInput struct {
	PlayerID   string
	ReporterID string
	CheatType  string
	Severity   domain.IncidentSeverity
	Evidence   map[string]any
}

// ReviewInput is a reviewer's verdict on a report.
type ReviewInput struct {
	Decision        domain.ReviewDecision
	Action          domain.ModerationAction
	BanDurationDays nullable.Nullable[int]
	Notes           string
	EscalateTo      string
}

// ReviewResult carries the reviewed report and the ban it issued, if any.
type ReviewResult struct {
	Report *domain.CheatReport
	Ban    *domain.Ban
}

// IssueBanInput describes a direct ban.
type IssueBanInput struct {
	PlayerID     string
	CheatType    string
	Type         domain.BanType
	Reason       string
	ExpiresAt    nullable.Nullable[time.Time]
	DurationDays nullable.Nullable[int]
}

// SubmitAppealInput contests a ban.
type SubmitAppealInput struct {
	PlayerID string
	Reason   string
}

// ResolveAppealInput decides an appeal. An absent ResolvedAt defaults to
// now; an explicit null is rejected.
type ResolveAppealInput struct {
	Status     domain.AppealStatus
	Notes      string
	ResolvedAt nullable.Nullable[time.Time]
}

// AppealResult carries the decided appeal and the ban it moved.
type AppealResult struct {
	Appeal *domain.Appeal
	Ban    *domain.Ban
}

// BanFilter narrows ban listings.
type BanFilter struct {
	PlayerID string
	Statuses []domain.BanStatus
	Limit    int
	Offset   int
}

// ReportFilter narrows report listings.
type ReportFilter struct {
	PlayerID string
	Statuses []domain.CheatReportStatus
	Limit    int
	Offset   int
}

type banExpiry struct {
	BanID     string
	ExpiresAt time.Time
}

// NewModerationService constructs the service.
func NewModerationService(deps Dependencies) *ModerationService {
	return &ModerationService{workflow{deps}}
}

// SubmitCheatReport files a report in PENDING.
func (s *ModerationService) SubmitCheatReport(ctx context.Context, actor domain.Actor, input SubmitReportInput) (*domain.CheatReport, error) {
	details := map[string]any{}
	if strings.TrimSpace(input.PlayerID) == "" {
		details["player_id"] = "required"
	}
	if strings.TrimSpace(input.CheatType) == "" {
		details["cheat_type"] = "required"
	}
	if input.Severity == "" {
		input.Severity = domain.SeverityMedium
	}
	if !input.Severity.Valid() {
		details["severity"] = "invalid"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid cheat report", details)
	}
	if input.ReporterID == "" {
		input.ReporterID = actor.ID
	}

	report := &domain.CheatReport{
		ID:         uuid.NewString(),
		PlayerID:   input.PlayerID,
		ReporterID: input.ReporterID,
		CheatType:  strings.TrimSpace(input.CheatType),
		Severity:   input.Severity,
		Evidence:   input.Evidence,
		Status:     domain.CheatReportPending,
		CreatedAt:  s.Clock.Now(),
	}
	record, err := s.Engine.Create(domain.KindCheatReport, report.ID, string(report.Status), actor)
	if err != nil {
		return nil, err
	}
	write, err := s.Store.Reports.Put(report.ID, 0, report)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.commit(ctx, []repository.Write{write}, record); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:       events.EventCheatReportSubmitted,
		EntityKind: domain.KindCheatReport,
		EntityID:   report.ID,
		Actor:      actor,
		Payload:    report,
	})
	return report, nil
}

// Review applies a verdict. Confirming with a ban action issues the ban in
// the same atomic write as the report update.
func (s *ModerationService) Review(ctx context.Context, actor domain.Actor, reportID string, input ReviewInput) (*ReviewResult, error) {
	target, ok := reviewTargets[input.Decision]
	if !ok {
		return nil, apperrors.NewValidationError("invalid decision", map[string]any{"decision": input.Decision})
	}
	if input.Decision == domain.DecisionConfirm && input.Action == "" {
		input.Action = domain.ActionNone
	}

	var (
		result *ReviewResult
		from   domain.CheatReportStatus
	)
	err := s.retry(ctx, "cheat_report.review", func(ctx context.Context) error {
		report, version, err := s.Store.Reports.Get(ctx, reportID)
		if err != nil {
			return loadErr(err, "cheat report", reportID)
		}
		from = report.Status

		record, err := s.Engine.Transition(statemachine.Request{
			Kind:     domain.KindCheatReport,
			EntityID: report.ID,
			From:     string(report.Status),
			To:       string(target),
			Actor:    actor,
			Data: statemachine.ReviewVerdict{
				Action:          input.Action,
				BanDurationDays: input.BanDurationDays,
				EscalateTo:      input.EscalateTo,
			},
			Comment: input.Notes,
		})
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		report.Status = target
		report.ReviewNotes = nullable.Of(input.Notes)
		if input.Decision == domain.DecisionEscalate {
			report.ReviewerID = nullable.Of(input.EscalateTo)
		} else {
			report.ReviewerID = nullable.Of(actor.ID)
			report.ReviewedAt = nullable.Of(now)
		}
		if input.Decision == domain.DecisionConfirm {
			report.ActionTaken = nullable.Of(input.Action)
		}

		records := []domain.TransitionRecord{record}
		var writes []repository.Write
		var ban *domain.Ban
		if input.Decision == domain.DecisionConfirm && input.Action.IssuesBan() {
			ban = &domain.Ban{
				ID:             uuid.NewString(),
				PlayerID:       report.PlayerID,
				CheatType:      report.CheatType,
				Type:           domain.BanTypePermanent,
				Status:         domain.BanStatusActive,
				Reason:         firstNonEmpty(input.Notes, "confirmed cheat report "+report.ID),
				IssuedBy:       actor.ID,
				IssuedAt:       now,
				SourceReportID: nullable.Of(report.ID),
				UpdatedAt:      now,
			}
			if input.Action == domain.ActionTemporaryBan {
				days, _ := input.BanDurationDays.Get()
				ban.Type = domain.BanTypeTemporary
				ban.ExpiresAt = nullable.Of(now.AddDate(0, 0, days))
			} else {
				ban.ExpiresAt = nullable.Null[time.Time]()
			}
			banWrites, banRecord, err := s.banInsertWrites(ctx, actor, ban)
			if err != nil {
				return err
			}
			writes = append(writes, banWrites...)
			records = append(records, banRecord)
			report.BanID = nullable.Of(ban.ID)
		}

		reportWrite, err := s.Store.Reports.Put(report.ID, version, report)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		writes = append([]repository.Write{reportWrite}, writes...)
		if err := s.commit(ctx, writes, records...); err != nil {
			return err
		}
		result = &ReviewResult{Report: report, Ban: ban}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	payload := events.ReportReviewedPayload{Decision: input.Decision, Action: input.Action}
	if result.Ban != nil {
		payload.BanID = result.Ban.ID
		s.afterBanIssued(ctx, actor, result.Ban)
	}
	s.Logger.Info("cheat report reviewed",
		zap.String("report_id", reportID),
		zap.String("from", string(from)),
		zap.String("decision", string(input.Decision)))
	s.publish(ctx, events.Event{
		Type:       events.EventCheatReportReviewed,
		EntityKind: domain.KindCheatReport,
		EntityID:   reportID,
		Actor:      actor,
		Payload:    payload,
	})
	return result, nil
}

// IssueBan bans a player directly, outside report review.
func (s *ModerationService) IssueBan(ctx context.Context, actor domain.Actor, input IssueBanInput) (*domain.Ban, error) {
	if err := requireRole(actor, "issue bans", domain.StaffRoleAdmin); err != nil {
		return nil, err
	}
	details := map[string]any{}
	if strings.TrimSpace(input.PlayerID) == "" {
		details["player_id"] = "required"
	}
	if strings.TrimSpace(input.CheatType) == "" {
		details["cheat_type"] = "required"
	}
	if input.Type != domain.BanTypeTemporary && input.Type != domain.BanTypePermanent {
		details["type"] = "invalid"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ban", details)
	}

	now := s.Clock.Now()
	ban := &domain.Ban{
		ID:        uuid.NewString(),
		PlayerID:  input.PlayerID,
		CheatType: strings.TrimSpace(input.CheatType),
		Type:      input.Type,
		Status:    domain.BanStatusActive,
		Reason:    input.Reason,
		IssuedBy:  actor.ID,
		IssuedAt:  now,
		UpdatedAt: now,
	}
	switch input.Type {
	case domain.BanTypePermanent:
		if input.ExpiresAt.IsSet() || input.DurationDays.IsSet() {
			return nil, apperrors.NewInvalidDeadline("permanent bans cannot expire", map[string]any{"expires_at": input.ExpiresAt.Ptr()})
		}
		ban.ExpiresAt = nullable.Null[time.Time]()
	case domain.BanTypeTemporary:
		expiresAt, ok := input.ExpiresAt.Get()
		if days, hasDays := input.DurationDays.Get(); !ok && hasDays {
			if days <= 0 {
				return nil, apperrors.NewMissingGuardData("durationDays must be positive", map[string]any{"duration_days": days})
			}
			expiresAt, ok = now.AddDate(0, 0, days), true
		}
		if !ok {
			return nil, apperrors.NewMissingGuardData("temporary bans need expiresAt or durationDays", nil)
		}
		if !expiresAt.After(now) {
			return nil, apperrors.NewInvalidDeadline("expiresAt must be in the future", map[string]any{"expires_at": expiresAt})
		}
		ban.ExpiresAt = nullable.Of(expiresAt)
	}

	err := s.retry(ctx, "ban.issue", func(ctx context.Context) error {
		writes, record, err := s.banInsertWrites(ctx, actor, ban)
		if err != nil {
			return err
		}
		return s.commit(ctx, writes, record)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.afterBanIssued(ctx, actor, ban)
	return ban, nil
}

// banInsertWrites builds the writes inserting ban and claiming its
// (player, cause) slot. The slot write fails the whole CAS if another ban
// claimed it concurrently.
func (s *ModerationService) banInsertWrites(ctx context.Context, actor domain.Actor, ban *domain.Ban) ([]repository.Write, domain.TransitionRecord, error) {
	slotID := repository.BanSlotID(ban.PlayerID, ban.CheatType)
	var slotVersion int64
	slot, version, err := s.Store.BanSlots.Get(ctx, slotID)
	switch {
	case err == nil:
		slotVersion = version
		current, _, err := s.Store.Bans.Get(ctx, slot.BanID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, domain.TransitionRecord{}, err
		}
		if err == nil && current.Status.InForce() {
			return nil, domain.TransitionRecord{}, apperrors.NewDuplicateActiveBan(map[string]any{
				"player_id":     ban.PlayerID,
				"cheat_type":    ban.CheatType,
				"active_ban_id": current.ID,
			})
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, domain.TransitionRecord{}, err
	}

	record, err := s.Engine.Create(domain.KindBan, ban.ID, string(ban.Status), actor)
	if err != nil {
		return nil, domain.TransitionRecord{}, err
	}
	banWrite, err := s.Store.Bans.Put(ban.ID, 0, ban)
	if err != nil {
		return nil, domain.TransitionRecord{}, apperrors.NewInternalError(err)
	}
	slotWrite, err := s.Store.BanSlots.Put(slotID, slotVersion, &domain.ActiveBanSlot{
		PlayerID:  ban.PlayerID,
		CheatType: ban.CheatType,
		BanID:     ban.ID,
	})
	if err != nil {
		return nil, domain.TransitionRecord{}, apperrors.NewInternalError(err)
	}
	return []repository.Write{banWrite, slotWrite}, record, nil
}

func (s *ModerationService) afterBanIssued(ctx context.Context, actor domain.Actor, ban *domain.Ban) {
	if at, ok := ban.ExpiresAt.Get(); ok {
		s.scheduleExpiry(ban.ID, at)
	}
	payload := events.BanIssuedPayload{
		PlayerID:       ban.PlayerID,
		CheatType:      ban.CheatType,
		Type:           ban.Type,
		ExpiresAt:      ban.ExpiresAt.Ptr(),
		SourceReportID: ban.SourceReportID.OrElse(""),
	}
	s.publish(ctx, events.Event{
		Type:       events.EventBanIssued,
		EntityKind: domain.KindBan,
		EntityID:   ban.ID,
		Actor:      actor,
		Payload:    payload,
	})
}

// SubmitAppeal contests an ACTIVE ban. The ban moves to APPEALED in the
// same write that creates the appeal.
func (s *ModerationService) SubmitAppeal(ctx context.Context, actor domain.Actor, banID string, input SubmitAppealInput) (*domain.Appeal, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, apperrors.NewValidationError("reason is required", map[string]any{"reason": "required"})
	}

	var appeal *domain.Appeal
	err := s.retry(ctx, "appeal.submit", func(ctx context.Context) error {
		ban, version, err := s.Store.Bans.Get(ctx, banID)
		if err != nil {
			return loadErr(err, "ban", banID)
		}
		if input.PlayerID != "" && input.PlayerID != ban.PlayerID {
			return apperrors.NewValidationError("player does not own this ban", map[string]any{"player_id": input.PlayerID})
		}

		banRecord, err := s.Engine.Transition(statemachine.Request{
			Kind:     domain.KindBan,
			EntityID: ban.ID,
			From:     string(ban.Status),
			To:       string(domain.BanStatusAppealed),
			Actor:    actor,
			Comment:  "appeal submitted",
		})
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		appeal = &domain.Appeal{
			ID:          uuid.NewString(),
			BanID:       ban.ID,
			PlayerID:    ban.PlayerID,
			Reason:      strings.TrimSpace(input.Reason),
			Status:      domain.AppealStatusPending,
			SubmittedAt: now,
		}
		appealRecord, err := s.Engine.Create(domain.KindAppeal, appeal.ID, string(appeal.Status), actor)
		if err != nil {
			return err
		}

		ban.Status = domain.BanStatusAppealed
		ban.AppealID = nullable.Of(appeal.ID)
		ban.UpdatedAt = now
		banWrite, err := s.Store.Bans.Put(ban.ID, version, ban)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		appealWrite, err := s.Store.Appeals.Put(appeal.ID, 0, appeal)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		return s.commit(ctx, []repository.Write{banWrite, appealWrite}, banRecord, appealRecord)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:       events.EventAppealSubmitted,
		EntityKind: domain.KindAppeal,
		EntityID:   appeal.ID,
		Actor:      actor,
		Payload:    appeal,
	})
	return appeal, nil
}

// StartAppealReview moves a PENDING appeal to UNDER_REVIEW.
func (s *ModerationService) StartAppealReview(ctx context.Context, actor domain.Actor, appealID string) (*domain.Appeal, error) {
	var appeal *domain.Appeal
	err := s.retry(ctx, "appeal.start_review", func(ctx context.Context) error {
		a, version, err := s.Store.Appeals.Get(ctx, appealID)
		if err != nil {
			return loadErr(err, "appeal", appealID)
		}
		record, err := s.Engine.Transition(statemachine.Request{
			Kind:     domain.KindAppeal,
			EntityID: a.ID,
			From:     string(a.Status),
			To:       string(domain.AppealStatusUnderReview),
			Actor:    actor,
		})
		if err != nil {
			return err
		}
		a.Status = domain.AppealStatusUnderReview
		a.ReviewerID = nullable.Of(actor.ID)
		write, err := s.Store.Appeals.Put(a.ID, version, a)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := s.commit(ctx, []repository.Write{write}, record); err != nil {
			return err
		}
		appeal = a
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return appeal, nil
}

// ResolveAppeal decides an appeal together with its ban: APPROVED lifts the
// ban, REJECTED puts it back to ACTIVE, or EXPIRED when its expiry passed
// while the appeal was open. Both entities change in one write or neither does.
func (s *ModerationService) ResolveAppeal(ctx context.Context, actor domain.Actor, appealID string, input ResolveAppealInput) (*AppealResult, error) {
	if input.Status != domain.AppealStatusApproved && input.Status != domain.AppealStatusRejected {
		return nil, apperrors.NewValidationError("status must be APPROVED or REJECTED", map[string]any{"status": input.Status})
	}

	var result *AppealResult
	err := s.retry(ctx, "appeal.resolve", func(ctx context.Context) error {
		appeal, appealVersion, err := s.Store.Appeals.Get(ctx, appealID)
		if err != nil {
			return loadErr(err, "appeal", appealID)
		}
		ban, banVersion, err := s.Store.Bans.Get(ctx, appeal.BanID)
		if err != nil {
			return loadErr(err, "ban", appeal.BanID)
		}

		resolvedAt := input.ResolvedAt
		if resolvedAt.IsAbsent() {
			resolvedAt = nullable.Of(s.Clock.Now())
		}

		banTarget := domain.BanStatusLifted
		if input.Status == domain.AppealStatusRejected {
			banTarget = domain.BanStatusActive
			if exp, ok := ban.ExpiresAt.Get(); ok && !exp.After(s.Clock.Now()) {
				banTarget = domain.BanStatusExpired
			}
		}
		banRecord, err := s.Engine.Transition(statemachine.Request{
			Kind:     domain.KindBan,
			EntityID: ban.ID,
			From:     string(ban.Status),
			To:       string(banTarget),
			Actor:    actor,
			Comment:  "appeal " + strings.ToLower(string(input.Status)),
		})
		if err != nil {
			return err
		}
		appealRecord, err := s.Engine.Transition(statemachine.Request{
			Kind:     domain.KindAppeal,
			EntityID: appeal.ID,
			From:     string(appeal.Status),
			To:       string(input.Status),
			Actor:    actor,
			Data:     statemachine.AppealDecision{ResolvedAt: resolvedAt, BanLifted: banTarget == domain.BanStatusLifted},
			Comment:  input.Notes,
		})
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		ban.Status = banTarget
		ban.UpdatedAt = now
		appeal.Status = input.Status
		appeal.ResolvedAt = resolvedAt
		appeal.ReviewerID = nullable.Of(actor.ID)
		appeal.ResolutionNotes = input.Notes

		banWrite, err := s.Store.Bans.Put(ban.ID, banVersion, ban)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		appealWrite, err := s.Store.Appeals.Put(appeal.ID, appealVersion, appeal)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := s.commit(ctx, []repository.Write{appealWrite, banWrite}, appealRecord, banRecord); err != nil {
			return err
		}
		result = &AppealResult{Appeal: appeal, Ban: ban}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	switch result.Ban.Status {
	case domain.BanStatusActive:
		if at, ok := result.Ban.ExpiresAt.Get(); ok {
			s.scheduleExpiry(result.Ban.ID, at)
		}
	default:
		s.Timers.Cancel(expiryKey(result.Ban.ID))
	}
	s.publish(ctx, events.Event{
		Type:       events.EventAppealResolved,
		EntityKind: domain.KindAppeal,
		EntityID:   result.Appeal.ID,
		Actor:      actor,
		Payload: events.AppealResolvedPayload{
			BanID:     result.Ban.ID,
			Status:    result.Appeal.Status,
			BanStatus: result.Ban.Status,
		},
	})
	return result, nil
}

// LiftBan manually lifts an ACTIVE ban. Appealed bans are lifted by
// approving their appeal.
func (s *ModerationService) LiftBan(ctx context.Context, actor domain.Actor, banID, reason string) (*domain.Ban, error) {
	var lifted *domain.Ban
	err := s.retry(ctx, "ban.lift", func(ctx context.Context) error {
		ban, version, err := s.Store.Bans.Get(ctx, banID)
		if err != nil {
			return loadErr(err, "ban", banID)
		}
		if ban.Status == domain.BanStatusAppealed {
			return apperrors.NewInvalidEdge("ban has a pending appeal; resolve the appeal instead", map[string]any{
				"ban_id":    ban.ID,
				"appeal_id": ban.AppealID.OrElse(""),
			})
		}
		record, err := s.Engine.Transition(statemachine.Request{
			Kind:     domain.KindBan,
			EntityID: ban.ID,
			From:     string(ban.Status),
			To:       string(domain.BanStatusLifted),
			Actor:    actor,
			Comment:  reason,
		})
		if err != nil {
			return err
		}
		ban.Status = domain.BanStatusLifted
		ban.UpdatedAt = s.Clock.Now()
		write, err := s.Store.Bans.Put(ban.ID, version, ban)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := s.commit(ctx, []repository.Write{write}, record); err != nil {
			return err
		}
		lifted = ban
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.Timers.Cancel(expiryKey(lifted.ID))
	s.publishBanStatus(ctx, actor, lifted.ID, domain.BanStatusActive, domain.BanStatusLifted, reason)
	return lifted, nil
}

// HandleBanExpiry expires an ACTIVE temporary ban once its time has come.
// Appealed bans stay in force until the appeal is decided.
func (s *ModerationService) HandleBanExpiry(ctx context.Context, msg scheduler.Message) error {
	payload, ok := msg.Payload.(banExpiry)
	if !ok {
		return nil
	}
	actor := domain.SystemActor("ban-expiry")
	expired := false
	err := s.retry(ctx, "ban.expire", func(ctx context.Context) error {
		ban, version, err := s.Store.Bans.Get(ctx, payload.BanID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		at, ok := ban.ExpiresAt.Get()
		if ban.Status != domain.BanStatusActive || !ok {
			return nil
		}
		if at.After(s.Clock.Now()) {
			s.scheduleExpiry(ban.ID, at)
			return nil
		}
		record, err := s.Engine.Transition(statemachine.Request{
			Kind:     domain.KindBan,
			EntityID: ban.ID,
			From:     string(ban.Status),
			To:       string(domain.BanStatusExpired),
			Actor:    actor,
			Comment:  "ban term elapsed",
		})
		if err != nil {
			return err
		}
		ban.Status = domain.BanStatusExpired
		ban.UpdatedAt = s.Clock.Now()
		write, err := s.Store.Bans.Put(ban.ID, version, ban)
		if err != nil {
			return err
		}
		if err := s.commit(ctx, []repository.Write{write}, record); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return err
	}
	if expired {
		s.publishBanStatus(ctx, actor, payload.BanID, domain.BanStatusActive, domain.BanStatusExpired, "ban term elapsed")
	}
	return nil
}

func (s *ModerationService) publishBanStatus(ctx context.Context, actor domain.Actor, banID string, from, to domain.BanStatus, comment string) {
	s.publish(ctx, events.Event{
		Type:       events.EventBanStatusChanged,
		EntityKind: domain.KindBan,
		EntityID:   banID,
		Actor:      actor,
		Payload:    events.StatusChangedPayload{From: string(from), To: string(to), Comment: comment},
	})
}

func (s *ModerationService) scheduleExpiry(banID string, at time.Time) {
	s.Timers.Schedule(expiryKey(banID), at, BanExpiryKind, banExpiry{BanID: banID, ExpiresAt: at})
}

func expiryKey(banID string) string {
	return "ban:expiry:" + banID
}

// GetReport loads one cheat report.
func (s *ModerationService) GetReport(ctx context.Context, id string) (*domain.CheatReport, error) {
	report, _, err := s.Store.Reports.Get(ctx, id)
	if err != nil {
		return nil, loadErr(err, "cheat report", id)
	}
	return report, nil
}

// ListReports returns reports matching filter, newest first.
func (s *ModerationService) ListReports(ctx context.Context, filter ReportFilter) ([]*domain.CheatReport, error) {
	items, err := s.Store.Reports.List(ctx, func(r *domain.CheatReport) bool {
		return (filter.PlayerID == "" || r.PlayerID == filter.PlayerID) && matchAny(filter.Statuses, r.Status)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return page(items, filter.Limit, filter.Offset), nil
}

// GetBan loads one ban.
func (s *ModerationService) GetBan(ctx context.Context, id string) (*domain.Ban, error) {
	ban, _, err := s.Store.Bans.Get(ctx, id)
	if err != nil {
		return nil, loadErr(err, "ban", id)
	}
	return ban, nil
}

// ListBans returns bans matching filter, newest first.
func (s *ModerationService) ListBans(ctx context.Context, filter BanFilter) ([]*domain.Ban, error) {
	items, err := s.Store.Bans.List(ctx, func(b *domain.Ban) bool {
		return (filter.PlayerID == "" || b.PlayerID == filter.PlayerID) && matchAny(filter.Statuses, b.Status)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].IssuedAt.After(items[j].IssuedAt) })
	return page(items, filter.Limit, filter.Offset), nil
}

// GetAppeal loads one appeal.
func (s *ModerationService) GetAppeal(ctx context.Context, id string) (*domain.Appeal, error) {
	appeal, _, err := s.Store.Appeals.Get(ctx, id)
	if err != nil {
		return nil, loadErr(err, "appeal", id)
	}
	return appeal, nil
}

var reviewTargets = map[domain.ReviewDecision]domain.CheatReportStatus{
	domain.DecisionConfirm:  domain.CheatReportConfirmed,
	domain.DecisionDismiss:  domain.CheatReportDismissed,
	domain.DecisionEscalate: domain.CheatReportUnderReview,
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
