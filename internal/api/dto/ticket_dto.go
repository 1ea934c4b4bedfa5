package dto

import (
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/service"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	PlayerID    nullable.Nullable[string] `json:"playerId"`
	AccountID   nullable.Nullable[string] `json:"accountId"`
	Category    string                    `json:"category" validate:"required,max=100"`
	Subject     string                    `json:"subject" validate:"required,max=200"`
	Description string                    `json:"description" validate:"required,max=8000"`
	Priority    domain.TicketPriority     `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Metadata    map[string]any            `json:"metadata"`
}

// ToInput converts the request for the service layer.
func (r CreateTicketRequest) ToInput() service.TicketCreateInput {
	return service.TicketCreateInput{
		PlayerID:    r.PlayerID,
		AccountID:   r.AccountID,
		Category:    r.Category,
		Subject:     r.Subject,
		Description: r.Description,
		Priority:    r.Priority,
		Metadata:    r.Metadata,
	}
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status  domain.TicketStatus `json:"status" validate:"required,oneof=open pending on_hold resolved closed"`
	Comment string              `json:"comment" validate:"max=2000"`
}

// AssignTicketRequest payload. A null assigneeId unassigns the ticket.
type AssignTicketRequest struct {
	AssigneeID nullable.Nullable[string] `json:"assigneeId"`
}
