package domain

import (
	"time"

	"github.com/spec-kit/admin-ops-service/pkg/nullable"
)

// TicketStatus enumerates lifecycle states for support tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusOnHold   TicketStatus = "on_hold"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketSource records who opened the ticket.
type TicketSource string

const (
	TicketSourcePlayer TicketSource = "PLAYER"
	TicketSourceAgent  TicketSource = "AGENT"
	TicketSourceSystem TicketSource = "SYSTEM"
)

// SupportTicket is the aggregate for player support requests.
type SupportTicket struct {
	ID           string                       `json:"ticketId"`
	TicketNumber string                       `json:"ticketNumber"`
	Source       TicketSource                 `json:"source"`
	PlayerID     nullable.Nullable[string]    `json:"playerId,omitzero"`
	AccountID    nullable.Nullable[string]    `json:"accountId,omitzero"`
	Category     string                       `json:"category,omitempty"`
	Subject      string                       `json:"subject"`
	Description  string                       `json:"description,omitempty"`
	Priority     TicketPriority               `json:"priority"`
	Status       TicketStatus                 `json:"status"`
	AssignedTo   nullable.Nullable[string]    `json:"assignedTo,omitzero"`
	SLADueAt     nullable.Nullable[time.Time] `json:"slaDueAt,omitzero"`
	ResolvedAt   nullable.Nullable[time.Time] `json:"resolvedAt,omitzero"`
	CreatedAt    time.Time                    `json:"createdAt"`
	UpdatedAt    time.Time                    `json:"updatedAt"`
	Metadata     map[string]any               `json:"metadata,omitempty"`
	Version      int64                        `json:"version"`
}
