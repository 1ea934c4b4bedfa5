package dto

import (
	"time"

	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/service"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
)

// SubmitReportRequest payload for POST /moderation/reports.
type SubmitReportRequest struct {
	PlayerID   string                  `json:"playerId" validate:"required"`
	ReporterID string                  `json:"reporterId"`
	CheatType  string                  `json:"cheatType" validate:"required,max=100"`
	Severity   domain.IncidentSeverity `json:"severity" validate:"omitempty,oneof=critical high medium low"`
	Evidence   map[string]any          `json:"evidence"`
}

// ToInput converts the request for the service layer.
func (r SubmitReportRequest) ToInput() service.SubmitReportInput {
	return service.SubmitReportInput{
		PlayerID:   r.PlayerID,
		ReporterID: r.ReporterID,
		CheatType:  r.CheatType,
		Severity:   r.Severity,
		Evidence:   r.Evidence,
	}
}

// ReviewRequest payload for POST /moderation/reports/:id/review.
type ReviewRequest struct {
	Decision        domain.ReviewDecision   `json:"decision" validate:"required,oneof=CONFIRM DISMISS ESCALATE"`
	Action          domain.ModerationAction `json:"action" validate:"omitempty,oneof=NONE WARNING TEMPORARY_BAN PERMANENT_BAN"`
	BanDurationDays nullable.Nullable[int]  `json:"banDurationDays"`
	Notes           string                  `json:"reviewNotes" validate:"max=4000"`
	EscalateTo      string                  `json:"escalateTo"`
}

// ToInput converts the request for the service layer.
func (r ReviewRequest) ToInput() service.ReviewInput {
	return service.ReviewInput{
		Decision:        r.Decision,
		Action:          r.Action,
		BanDurationDays: r.BanDurationDays,
		Notes:           r.Notes,
		EscalateTo:      r.EscalateTo,
	}
}

// ReviewResponse carries the reviewed report and any ban issued.
type ReviewResponse struct {
	Report *domain.CheatReport `json:"report"`
	Ban    *domain.Ban         `json:"ban,omitempty"`
}

// IssueBanRequest payload for POST /moderation/bans.
type IssueBanRequest struct {
	PlayerID     string                       `json:"playerId" validate:"required"`
	CheatType    string                       `json:"cheatType" validate:"required,max=100"`
	Type         domain.BanType               `json:"type" validate:"required,oneof=TEMPORARY PERMANENT"`
	Reason       string                       `json:"reason" validate:"max=2000"`
	ExpiresAt    nullable.Nullable[time.Time] `json:"expiresAt"`
	DurationDays nullable.Nullable[int]       `json:"durationDays"`
}

// ToInput converts the request for the service layer.
func (r IssueBanRequest) ToInput() service.IssueBanInput {
	return service.IssueBanInput{
		PlayerID:     r.PlayerID,
		CheatType:    r.CheatType,
		Type:         r.Type,
		Reason:       r.Reason,
		ExpiresAt:    r.ExpiresAt,
		DurationDays: r.DurationDays,
	}
}

// LiftBanRequest payload for POST /moderation/bans/:id/lift.
type LiftBanRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// SubmitAppealRequest payload for POST /moderation/bans/:id/appeals.
type SubmitAppealRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
	Reason   string `json:"reason" validate:"required,max=4000"`
}

// ToInput converts the request for the service layer.
func (r SubmitAppealRequest) ToInput() service.SubmitAppealInput {
	return service.SubmitAppealInput{PlayerID: r.PlayerID, Reason: r.Reason}
}

// ResolveAppealRequest payload for POST /moderation/appeals/:id/resolve.
type ResolveAppealRequest struct {
	Status     domain.AppealStatus          `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Notes      string                       `json:"reviewNotes" validate:"max=4000"`
	ResolvedAt nullable.Nullable[time.Time] `json:"resolvedAt"`
}

// ToInput converts the request for the service layer.
func (r ResolveAppealRequest) ToInput() service.ResolveAppealInput {
	return service.ResolveAppealInput{Status: r.Status, Notes: r.Notes, ResolvedAt: r.ResolvedAt}
}

// AppealResponse carries the decided appeal and its ban.
type AppealResponse struct {
	Appeal *domain.Appeal `json:"appeal"`
	Ban    *domain.Ban    `json:"ban"`
}
