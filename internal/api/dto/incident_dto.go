package dto

import (
	"time"

	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/service"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
)

// CreateIncidentRequest payload for POST /incidents.
type CreateIncidentRequest struct {
	Title            string                       `json:"title" validate:"required,max=200"`
	Description      string                       `json:"description" validate:"max=4000"`
	Severity         domain.IncidentSeverity      `json:"severity" validate:"required,oneof=critical high medium low"`
	DetectedAt       time.Time                    `json:"detectedAt" validate:"required"`
	AffectedServices []string                     `json:"affectedServices" validate:"max=50,dive,required"`
	SLABreachAt      nullable.Nullable[time.Time] `json:"slaBreachAt"`
}

// ToInput converts the request for the service layer.
func (r CreateIncidentRequest) ToInput() service.CreateIncidentInput {
	return service.CreateIncidentInput{
		Title:            r.Title,
		Description:      r.Description,
		Severity:         r.Severity,
		DetectedAt:       r.DetectedAt,
		AffectedServices: r.AffectedServices,
		SLABreachAt:      r.SLABreachAt,
	}
}

// IncidentTransitionRequest payload for POST /incidents/:id/transitions.
type IncidentTransitionRequest struct {
	To         domain.IncidentStatus        `json:"to" validate:"required,oneof=new acknowledged investigating mitigated resolved closed"`
	ResolvedAt nullable.Nullable[time.Time] `json:"resolvedAt"`
	Comment    string                       `json:"comment" validate:"max=2000"`
}

// ToInput converts the request for the service layer.
func (r IncidentTransitionRequest) ToInput() service.IncidentTransitionInput {
	return service.IncidentTransitionInput{To: r.To, ResolvedAt: r.ResolvedAt, Comment: r.Comment}
}

// CommentRequest carries an optional comment for single-purpose transitions.
type CommentRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

// RCARequest payload for POST /incidents/:id/rca.
type RCARequest struct {
	RootCause   string                 `json:"rootCause" validate:"required,max=8000"`
	ActionItems []RCAActionItemRequest `json:"actionItems" validate:"dive"`
}

// RCAActionItemRequest is one corrective action.
type RCAActionItemRequest struct {
	Description string                       `json:"description" validate:"required,max=2000"`
	Owner       string                       `json:"owner"`
	DueAt       nullable.Nullable[time.Time] `json:"dueAt"`
}

// ToInput converts the request for the service layer.
func (r RCARequest) ToInput() service.RCAInput {
	items := make([]service.RCAActionItemInput, 0, len(r.ActionItems))
	for _, item := range r.ActionItems {
		items = append(items, service.RCAActionItemInput{Description: item.Description, Owner: item.Owner, DueAt: item.DueAt})
	}
	return service.RCAInput{RootCause: r.RootCause, ActionItems: items}
}

// RCAActionItemPatch payload for PATCH /incidents/:id/rca/items/:itemId.
type RCAActionItemPatch struct {
	Status nullable.Nullable[domain.RCAActionStatus] `json:"status"`
	Owner  nullable.Nullable[string]                 `json:"owner"`
	DueAt  nullable.Nullable[time.Time]              `json:"dueAt"`
}

// ToUpdate converts the patch for the service layer.
func (r RCAActionItemPatch) ToUpdate() service.RCAActionItemUpdate {
	return service.RCAActionItemUpdate{Status: r.Status, Owner: r.Owner, DueAt: r.DueAt}
}

// IncidentDetailResponse bundles an incident with its transition history.
type IncidentDetailResponse struct {
	Incident *domain.Incident          `json:"incident"`
	History  []domain.TransitionRecord `json:"history"`
}
