package events

import (
	"time"

	"github.com/spec-kit/admin-ops-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidentCreated       EventType = "incident_created"
	EventIncidentStatusChanged EventType = "incident_status_changed"
	EventSLABreached           EventType = "sla_breached"
	EventCheatReportSubmitted  EventType = "cheat_report_submitted"
	EventCheatReportReviewed   EventType = "cheat_report_reviewed"
	EventBanIssued             EventType = "ban_issued"
	EventBanStatusChanged      EventType = "ban_status_changed"
	EventAppealSubmitted       EventType = "appeal_submitted"
	EventAppealResolved        EventType = "appeal_resolved"
	EventAutotuneApplied       EventType = "autotune_applied"
	EventRollbackApplied       EventType = "rollback_applied"
	EventRollbackFailed        EventType = "rollback_failed"
	EventRollbackEscalated     EventType = "rollback_escalated"
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
)

// AllEventTypes lists every published type.
var AllEventTypes = []EventType{
	EventIncidentCreated,
	EventIncidentStatusChanged,
	EventSLABreached,
	EventCheatReportSubmitted,
	EventCheatReportReviewed,
	EventBanIssued,
	EventBanStatusChanged,
	EventAppealSubmitted,
	EventAppealResolved,
	EventAutotuneApplied,
	EventRollbackApplied,
	EventRollbackFailed,
	EventRollbackEscalated,
	EventTicketCreated,
	EventTicketStatusChanged,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	EntityKind domain.EntityKind `json:"entity_kind,omitempty"`
	EntityID   string            `json:"entity_id"`
	Actor      domain.Actor      `json:"actor"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    any               `json:"payload"`
}

// StatusChangedPayload accompanies every *_status_changed event.
type StatusChangedPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Comment string `json:"comment,omitempty"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Deadline time.Time `json:"deadline"`
	Severity string    `json:"severity,omitempty"`
}

// BanIssuedPayload payload.
type BanIssuedPayload struct {
	PlayerID       string         `json:"player_id"`
	CheatType      string         `json:"cheat_type"`
	Type           domain.BanType `json:"type"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	SourceReportID string         `json:"source_report_id,omitempty"`
}

// ReportReviewedPayload payload.
type ReportReviewedPayload struct {
	Decision domain.ReviewDecision   `json:"decision"`
	Action   domain.ModerationAction `json:"action,omitempty"`
	BanID    string                  `json:"ban_id,omitempty"`
}

// AppealResolvedPayload payload.
type AppealResolvedPayload struct {
	BanID     string              `json:"ban_id"`
	Status    domain.AppealStatus `json:"status"`
	BanStatus domain.BanStatus    `json:"ban_status"`
}

// AutotuneAppliedPayload payload.
type AutotuneAppliedPayload struct {
	Status   domain.AutotuneStatus `json:"status"`
	Applied  int                   `json:"applied"`
	Rejected int                   `json:"rejected"`
}

// RollbackPayload accompanies rollback events.
type RollbackPayload struct {
	ActionID  string  `json:"action_id"`
	Parameter string  `json:"parameter"`
	Delta     float64 `json:"delta"`
	Attempts  int     `json:"attempts"`
	Error     string  `json:"error,omitempty"`
}
