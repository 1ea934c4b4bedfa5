package domain

import (
	"time"

	"github.com/spec-kit/admin-ops-service/pkg/nullable"
)

// BanType distinguishes time-boxed from permanent bans.
type BanType string

const (
	BanTypeTemporary BanType = "TEMPORARY"
	BanTypePermanent BanType = "PERMANENT"
)

// BanStatus enumerates lifecycle states for bans.
type BanStatus string

const (
	BanStatusActive   BanStatus = "ACTIVE"
	BanStatusExpired  BanStatus = "EXPIRED"
	BanStatusAppealed BanStatus = "APPEALED"
	BanStatusLifted   BanStatus = "LIFTED"
)

// InForce reports whether the ban still restricts the player. An appealed
// ban stays in force until the appeal is resolved.
func (s BanStatus) InForce() bool {
	return s == BanStatusActive || s == BanStatusAppealed
}

// Ban restricts a player for a given cause.
type Ban struct {
	ID             string                       `json:"id"`
	PlayerID       string                       `json:"playerId"`
	CheatType      string                       `json:"cheatType"`
	Type           BanType                      `json:"type"`
	Status         BanStatus                    `json:"status"`
	Reason         string                       `json:"reason"`
	IssuedBy       string                       `json:"issuedBy"`
	IssuedAt       time.Time                    `json:"issuedAt"`
	ExpiresAt      nullable.Nullable[time.Time] `json:"expiresAt,omitzero"`
	AppealID       nullable.Nullable[string]    `json:"appealId,omitzero"`
	SourceReportID nullable.Nullable[string]    `json:"sourceReportId,omitzero"`
	UpdatedAt      time.Time                    `json:"updatedAt"`
	Version        int64                        `json:"version"`
}

// AppealStatus enumerates lifecycle states for appeals.
type AppealStatus string

const (
	AppealStatusPending     AppealStatus = "PENDING"
	AppealStatusUnderReview AppealStatus = "UNDER_REVIEW"
	AppealStatusApproved    AppealStatus = "APPROVED"
	AppealStatusRejected    AppealStatus = "REJECTED"
)

// IsTerminal reports whether the appeal has been decided.
func (s AppealStatus) IsTerminal() bool {
	return s == AppealStatusApproved || s == AppealStatusRejected
}

// Appeal contests exactly one ban.
type Appeal struct {
	ID              string                       `json:"id"`
	BanID           string                       `json:"banId"`
	PlayerID        string                       `json:"playerId"`
	Reason          string                       `json:"reason"`
	Status          AppealStatus                 `json:"status"`
	SubmittedAt     time.Time                    `json:"submittedAt"`
	ResolvedAt      nullable.Nullable[time.Time] `json:"resolvedAt,omitzero"`
	ReviewerID      nullable.Nullable[string]    `json:"reviewerId,omitzero"`
	ResolutionNotes string                       `json:"resolutionNotes,omitempty"`
	Version         int64                        `json:"version"`
}

// CheatReportStatus enumerates lifecycle states for cheat reports.
type CheatReportStatus string

const (
	CheatReportPending     CheatReportStatus = "PENDING"
	CheatReportUnderReview CheatReportStatus = "UNDER_REVIEW"
	CheatReportConfirmed   CheatReportStatus = "CONFIRMED"
	CheatReportDismissed   CheatReportStatus = "DISMISSED"
)

// ReviewDecision is the reviewer's verdict on a report.
type ReviewDecision string

const (
	DecisionConfirm  ReviewDecision = "CONFIRM"
	DecisionDismiss  ReviewDecision = "DISMISS"
	DecisionEscalate ReviewDecision = "ESCALATE"
)

// ModerationAction is the sanction attached to a confirmed report.
type ModerationAction string

const (
	ActionNone         ModerationAction = "NONE"
	ActionWarning      ModerationAction = "WARNING"
	ActionTemporaryBan ModerationAction = "TEMPORARY_BAN"
	ActionPermanentBan ModerationAction = "PERMANENT_BAN"
)

// IssuesBan reports whether the action creates a ban.
func (a ModerationAction) IssuesBan() bool {
	return a == ActionTemporaryBan || a == ActionPermanentBan
}

// CheatReport is a suspected-cheating report awaiting or past review.
type CheatReport struct {
	ID          string                              `json:"id"`
	PlayerID    string                              `json:"playerId"`
	ReporterID  string                              `json:"reporterId"`
	CheatType   string                              `json:"cheatType"`
	Severity    IncidentSeverity                    `json:"severity"`
	Evidence    map[string]any                      `json:"evidence,omitempty"`
	Status      CheatReportStatus                   `json:"status"`
	ReviewerID  nullable.Nullable[string]           `json:"reviewerId,omitzero"`
	ReviewNotes nullable.Nullable[string]           `json:"reviewNotes,omitzero"`
	ActionTaken nullable.Nullable[ModerationAction] `json:"actionTaken,omitzero"`
	BanID       nullable.Nullable[string]           `json:"banId,omitzero"`
	CreatedAt   time.Time                           `json:"createdAt"`
	ReviewedAt  nullable.Nullable[time.Time]        `json:"reviewedAt,omitzero"`
	Version     int64                               `json:"version"`
}

// ActiveBanSlot indexes the single in-force ban for a (player, cause) pair.
// It is written in the same compare-and-swap as the ban it points to.
type ActiveBanSlot struct {
	PlayerID  string `json:"playerId"`
	CheatType string `json:"cheatType"`
	BanID     string `json:"banId"`
}
