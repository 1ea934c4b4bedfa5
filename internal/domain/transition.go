package domain

import "time"

// EntityKind names a lifecycle-managed aggregate.
type EntityKind string

const (
	KindIncident      EntityKind = "incident"
	KindBan           EntityKind = "ban"
	KindAppeal        EntityKind = "appeal"
	KindCheatReport   EntityKind = "cheat_report"
	KindSupportTicket EntityKind = "support_ticket"
)

// TransitionRecord is an immutable audit entry for an accepted transition.
type TransitionRecord struct {
	ID         string     `json:"id"`
	EntityKind EntityKind `json:"entityKind"`
	EntityID   string     `json:"entityId"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	ActorID    string     `json:"actorId"`
	ActorRole  StaffRole  `json:"actorRole"`
	Comment    string     `json:"comment,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}
