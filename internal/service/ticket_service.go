package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/events"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	"github.com/spec-kit/admin-ops-service/internal/sla"
	"github.com/spec-kit/admin-ops-service/internal/statemachine"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// TicketService coordinates support ticket workflows.
type TicketService struct {
	workflow
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Source      domain.TicketSource
	PlayerID    nullable.Nullable[string]
	AccountID   nullable.Nullable[string]
	Category    string
	Subject     string
	Description string
	Priority    domain.TicketPriority
	Metadata    map[string]any
}

// TicketFilter describes staff listing filters.
type TicketFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	AssignedTo string
	PlayerID   string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps Dependencies) *TicketService {
	return &TicketService{workflow{deps}}
}

// CreateTicket opens a ticket and arms its SLA due date.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.SupportTicket, error) {
	if strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewValidationError("subject is required", map[string]any{"subject": "required"})
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	if input.Source == "" {
		input.Source = sourceFor(actor)
	}

	now := s.Clock.Now()
	ticket := &domain.SupportTicket{
		ID:           uuid.NewString(),
		TicketNumber: generateTicketKey(),
		Source:       input.Source,
		PlayerID:     input.PlayerID,
		AccountID:    input.AccountID,
		Category:     strings.TrimSpace(input.Category),
		Subject:      strings.TrimSpace(input.Subject),
		Description:  strings.TrimSpace(input.Description),
		Priority:     input.Priority,
		Status:       domain.TicketStatusOpen,
		SLADueAt:     s.Tracker.TicketDue(input.Priority, now),
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     input.Metadata,
	}

	record, err := s.Engine.Create(domain.KindSupportTicket, ticket.ID, string(ticket.Status), actor)
	if err != nil {
		return nil, err
	}
	write, err := s.Store.Tickets.Put(ticket.ID, 0, ticket)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.commit(ctx, []repository.Write{write}, record); err != nil {
		return nil, apperrors.MapError(err)
	}

	if due, ok := ticket.SLADueAt.Get(); ok {
		s.Tracker.Arm(domain.KindSupportTicket, ticket.ID, due)
	}
	s.publish(ctx, events.Event{
		Type:       events.EventTicketCreated,
		EntityKind: domain.KindSupportTicket,
		EntityID:   ticket.ID,
		Actor:      actor,
		Payload:    ticket,
	})
	return ticket, nil
}

// UpdateStatus moves a ticket along its lifecycle.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Actor, ticketID string, newStatus domain.TicketStatus, comment string) (*domain.SupportTicket, error) {
	var (
		updated *domain.SupportTicket
		from    domain.TicketStatus
	)
	err := s.retry(ctx, "ticket.update_status", func(ctx context.Context) error {
		ticket, version, err := s.Store.Tickets.Get(ctx, ticketID)
		if err != nil {
			return loadErr(err, "ticket", ticketID)
		}
		from = ticket.Status
		record, err := s.Engine.Transition(statemachine.Request{
			Kind:     domain.KindSupportTicket,
			EntityID: ticket.ID,
			From:     string(ticket.Status),
			To:       string(newStatus),
			Actor:    actor,
			Comment:  comment,
		})
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		switch newStatus {
		case domain.TicketStatusResolved:
			ticket.ResolvedAt = nullable.Of(now)
		case domain.TicketStatusOpen:
			if ticket.ResolvedAt.IsSet() {
				ticket.ResolvedAt = nullable.Null[time.Time]()
			}
		}
		ticket.Status = newStatus
		ticket.UpdatedAt = now

		write, err := s.Store.Tickets.Put(ticket.ID, version, ticket)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := s.commit(ctx, []repository.Write{write}, record); err != nil {
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if updated.Status == domain.TicketStatusResolved || updated.Status == domain.TicketStatusClosed {
		s.Tracker.Disarm(domain.KindSupportTicket, updated.ID)
	} else if from == domain.TicketStatusResolved {
		if due, ok := updated.SLADueAt.Get(); ok {
			s.Tracker.Arm(domain.KindSupportTicket, updated.ID, due)
		}
	}
	s.publish(ctx, events.Event{
		Type:       events.EventTicketStatusChanged,
		EntityKind: domain.KindSupportTicket,
		EntityID:   updated.ID,
		Actor:      actor,
		Payload:    events.StatusChangedPayload{From: string(from), To: string(updated.Status), Comment: comment},
	})
	return updated, nil
}

// Assign sets or, with an explicit null, clears the assignee.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, ticketID string, assignee nullable.Nullable[string]) (*domain.SupportTicket, error) {
	if err := requireRole(actor, "assign tickets", domain.StaffRoleAdmin, domain.StaffRoleSupportAgent); err != nil {
		return nil, err
	}
	if assignee.IsAbsent() {
		return nil, apperrors.NewValidationError("assignedTo is required (null to unassign)", map[string]any{"assigned_to": "required"})
	}

	var updated *domain.SupportTicket
	err := s.retry(ctx, "ticket.assign", func(ctx context.Context) error {
		ticket, version, err := s.Store.Tickets.Get(ctx, ticketID)
		if err != nil {
			return loadErr(err, "ticket", ticketID)
		}
		if ticket.Status == domain.TicketStatusClosed {
			return apperrors.NewInvalidEdge("closed tickets cannot be reassigned", map[string]any{"ticket_id": ticketID})
		}
		ticket.AssignedTo = assignee
		ticket.UpdatedAt = s.Clock.Now()
		write, err := s.Store.Tickets.Put(ticket.ID, version, ticket)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := s.commit(ctx, []repository.Write{write}); err != nil {
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

// Claim assigns the ticket to the calling agent.
func (s *TicketService) Claim(ctx context.Context, actor domain.Actor, ticketID string) (*domain.SupportTicket, error) {
	return s.Assign(ctx, actor, ticketID, nullable.Of(actor.ID))
}

// GetTicket loads one ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.SupportTicket, error) {
	ticket, _, err := s.Store.Tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, loadErr(err, "ticket", ticketID)
	}
	return ticket, nil
}

// ListTickets returns tickets matching filter, most recently updated first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketFilter) ([]*domain.SupportTicket, error) {
	items, err := s.Store.Tickets.List(ctx, func(t *domain.SupportTicket) bool {
		if filter.AssignedTo != "" && t.AssignedTo.OrElse("") != filter.AssignedTo {
			return false
		}
		if filter.PlayerID != "" && t.PlayerID.OrElse("") != filter.PlayerID {
			return false
		}
		return matchAny(filter.Statuses, t.Status) && matchAny(filter.Priorities, t.Priority)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].UpdatedAt.After(items[j].UpdatedAt) })
	return page(items, filter.Limit, filter.Offset), nil
}

// HandleBreach emits sla_breached for a ticket still open past its due date.
func (s *TicketService) HandleBreach(ctx context.Context, check sla.BreachCheck) error {
	ticket, _, err := s.Store.Tickets.Get(ctx, check.EntityID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	due, ok := ticket.SLADueAt.Get()
	if !ok || !due.Equal(check.Deadline) {
		return nil
	}
	if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
		return nil
	}
	first, err := s.Tracker.Breach(ctx, check)
	if err != nil || !first {
		return err
	}
	s.publish(ctx, events.Event{
		Type:       events.EventSLABreached,
		EntityKind: domain.KindSupportTicket,
		EntityID:   ticket.ID,
		Actor:      domain.SystemActor("sla"),
		Payload:    events.SLABreachedPayload{Deadline: due, Severity: string(ticket.Priority)},
	})
	return nil
}

func sourceFor(actor domain.Actor) domain.TicketSource {
	if actor.Role == domain.StaffRoleSystem {
		return domain.TicketSourceSystem
	}
	return domain.TicketSourceAgent
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
