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
	"github.com/spec-kit/admin-ops-service/internal/sla"
	"github.com/spec-kit/admin-ops-service/internal/statemachine"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// IncidentService drives the incident lifecycle and its SLA.
type IncidentService struct {
	workflow
}

// CreateIncidentInput describes a new incident.
type CreateIncidentInput struct {
	Title            string
	Description      string
	Severity         domain.IncidentSeverity
	DetectedAt       time.Time
	AffectedServices []string
	// SLABreachAt overrides the severity default; explicit null disables the SLA.
	SLABreachAt nullable.Nullable[time.Time]
}

// IncidentTransitionInput moves an incident to another status.
type IncidentTransitionInput struct {
	To         domain.IncidentStatus
	ResolvedAt nullable.Nullable[time.Time]
	Comment    string
}

// IncidentFilter narrows incident listings.
type IncidentFilter struct {
	Statuses   []domain.IncidentStatus
	Severities []domain.IncidentSeverity
	Limit      int
	Offset     int
}

// RCAInput creates a root cause analysis.
type RCAInput struct {
	RootCause   string
	ActionItems []RCAActionItemInput
}

// RCAActionItemInput is one corrective action.
type RCAActionItemInput struct {
	Description string
	Owner       string
	DueAt       nullable.Nullable[time.Time]
}

// RCAActionItemUpdate patches one action item. Absent fields are unchanged;
// null clears Owner or DueAt.
type RCAActionItemUpdate struct {
	Status nullable.Nullable[domain.RCAActionStatus]
	Owner  nullable.Nullable[string]
	DueAt  nullable.Nullable[time.Time]
}

var incidentCreators = []domain.StaffRole{domain.StaffRoleAdmin, domain.StaffRoleIncidentManager, domain.StaffRoleSystem}

// NewIncidentService constructs the service.
func NewIncidentService(deps Dependencies) *IncidentService {
	return &IncidentService{workflow{deps}}
}

// Create records a new incident in status new and arms its SLA timer.
func (s *IncidentService) Create(ctx context.Context, actor domain.Actor, input CreateIncidentInput) (*domain.Incident, error) {
	if err := requireRole(actor, "create incidents", incidentCreators...); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"title": "required"})
	}
	if !input.Severity.Valid() {
		return nil, apperrors.NewValidationError("invalid severity", map[string]any{"severity": input.Severity})
	}
	if input.DetectedAt.IsZero() {
		return nil, apperrors.NewValidationError("detectedAt is required", map[string]any{"detected_at": "required"})
	}

	deadline, err := s.Tracker.OnCreate(input.Severity, input.DetectedAt, input.SLABreachAt)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	inc := &domain.Incident{
		ID:               uuid.NewString(),
		Title:            strings.TrimSpace(input.Title),
		Description:      strings.TrimSpace(input.Description),
		Severity:         input.Severity,
		Status:           domain.IncidentStatusNew,
		DetectedAt:       input.DetectedAt,
		SLABreachAt:      deadline,
		AffectedServices: normalizeServices(input.AffectedServices),
		CreatedBy:        actor.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	record, err := s.Engine.Create(domain.KindIncident, inc.ID, string(inc.Status), actor)
	if err != nil {
		return nil, err
	}
	write, err := s.Store.Incidents.Put(inc.ID, 0, inc)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.commit(ctx, []repository.Write{write}, record); err != nil {
		return nil, apperrors.MapError(err)
	}

	if at, ok := deadline.Get(); ok {
		s.Tracker.Arm(domain.KindIncident, inc.ID, at)
	}
	s.publish(ctx, events.Event{
		Type:       events.EventIncidentCreated,
		EntityKind: domain.KindIncident,
		EntityID:   inc.ID,
		Actor:      actor,
		Payload:    inc,
	})
	return inc, nil
}

// Transition moves an incident along its lifecycle. The first move out of
// new stamps acknowledgedAt; entering resolved stamps resolvedAt and
// freezes MTTA/MTTR. Either disarms the breach timer.
func (s *IncidentService) Transition(ctx context.Context, actor domain.Actor, id string, input IncidentTransitionInput) (*domain.Incident, error) {
	var (
		updated *domain.Incident
		from    domain.IncidentStatus
	)
	err := s.retry(ctx, "incident.transition", func(ctx context.Context) error {
		inc, version, err := s.Store.Incidents.Get(ctx, id)
		if err != nil {
			return loadErr(err, "incident", id)
		}
		from = inc.Status

		record, err := s.Engine.Transition(statemachine.Request{
			Kind:     domain.KindIncident,
			EntityID: inc.ID,
			From:     string(inc.Status),
			To:       string(input.To),
			Actor:    actor,
			Data:     statemachine.IncidentResolution{DetectedAt: inc.DetectedAt, ResolvedAt: input.ResolvedAt},
			Comment:  input.Comment,
		})
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		if inc.Status == domain.IncidentStatusNew && !inc.AcknowledgedAt.IsSet() {
			inc.AcknowledgedAt = nullable.Of(now)
			s.Tracker.OnAcknowledge(inc)
		}
		if input.To == domain.IncidentStatusResolved {
			inc.ResolvedAt = input.ResolvedAt
			s.Tracker.OnResolve(inc)
		}
		inc.Status = input.To
		inc.UpdatedAt = now

		write, err := s.Store.Incidents.Put(inc.ID, version, inc)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := s.commit(ctx, []repository.Write{write}, record); err != nil {
			return err
		}
		updated = inc
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if from == domain.IncidentStatusNew || updated.Status.IsResolved() {
		s.Tracker.Disarm(domain.KindIncident, updated.ID)
	}
	s.publish(ctx, events.Event{
		Type:       events.EventIncidentStatusChanged,
		EntityKind: domain.KindIncident,
		EntityID:   updated.ID,
		Actor:      actor,
		Payload:    events.StatusChangedPayload{From: string(from), To: string(updated.Status), Comment: input.Comment},
	})
	return updated, nil
}

// Acknowledge is Transition to acknowledged.
func (s *IncidentService) Acknowledge(ctx context.Context, actor domain.Actor, id, comment string) (*domain.Incident, error) {
	return s.Transition(ctx, actor, id, IncidentTransitionInput{To: domain.IncidentStatusAcknowledged, Comment: comment})
}

// Get loads one incident.
func (s *IncidentService) Get(ctx context.Context, id string) (*domain.Incident, error) {
	inc, _, err := s.Store.Incidents.Get(ctx, id)
	if err != nil {
		return nil, loadErr(err, "incident", id)
	}
	return inc, nil
}

// List returns incidents matching filter, most recently detected first.
func (s *IncidentService) List(ctx context.Context, filter IncidentFilter) ([]*domain.Incident, error) {
	items, err := s.Store.Incidents.List(ctx, func(inc *domain.Incident) bool {
		return matchAny(filter.Statuses, inc.Status) && matchAny(filter.Severities, inc.Severity)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].DetectedAt.After(items[j].DetectedAt) })
	return page(items, filter.Limit, filter.Offset), nil
}

// History returns the transition records of an incident.
func (s *IncidentService) History(ctx context.Context, id string) ([]domain.TransitionRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Audit.List(ctx, repository.TransitionFilter{EntityKind: domain.KindIncident, EntityID: id, Limit: 1000})
}

// HandleBreach runs when an incident's SLA deadline passes. It emits
// sla_breached once per (incident, deadline) if the incident is still
// unacknowledged and unresolved; otherwise the timer was stale.
func (s *IncidentService) HandleBreach(ctx context.Context, check sla.BreachCheck) error {
	inc, _, err := s.Store.Incidents.Get(ctx, check.EntityID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	deadline, ok := inc.SLABreachAt.Get()
	if !ok || !deadline.Equal(check.Deadline) {
		return nil
	}
	if inc.Status != domain.IncidentStatusNew || inc.AcknowledgedAt.IsSet() || inc.ResolvedAt.IsSet() {
		return nil
	}

	first, err := s.Tracker.Breach(ctx, check)
	if err != nil || !first {
		return err
	}
	s.Logger.Warn("incident sla breached",
		zap.String("incident_id", inc.ID),
		zap.String("severity", string(inc.Severity)),
		zap.Time("deadline", deadline))
	s.publish(ctx, events.Event{
		Type:       events.EventSLABreached,
		EntityKind: domain.KindIncident,
		EntityID:   inc.ID,
		Actor:      domain.SystemActor("sla"),
		Payload:    events.SLABreachedPayload{Deadline: deadline, Severity: string(inc.Severity)},
	})
	return nil
}

// CreateRCA attaches the root cause analysis to a closed incident. An
// incident has at most one.
func (s *IncidentService) CreateRCA(ctx context.Context, actor domain.Actor, incidentID string, input RCAInput) (*domain.RcaRecord, error) {
	if err := requireRole(actor, "write root cause analyses", domain.StaffRoleAdmin, domain.StaffRoleIncidentManager); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.RootCause) == "" {
		return nil, apperrors.NewValidationError("rootCause is required", map[string]any{"root_cause": "required"})
	}
	inc, err := s.Get(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if inc.Status != domain.IncidentStatusClosed {
		return nil, apperrors.NewInvalidEdge("root cause analysis requires a closed incident", map[string]any{
			"incident_id": incidentID,
			"status":      inc.Status,
		})
	}

	now := s.Clock.Now()
	rca := &domain.RcaRecord{
		ID:          uuid.NewString(),
		IncidentID:  incidentID,
		RootCause:   strings.TrimSpace(input.RootCause),
		ActionItems: make([]domain.RCAActionItem, 0, len(input.ActionItems)),
		CreatedBy:   actor.ID,
		CreatedAt:   now,
	}
	for _, item := range input.ActionItems {
		if strings.TrimSpace(item.Description) == "" {
			return nil, apperrors.NewValidationError("action item description is required", nil)
		}
		rca.ActionItems = append(rca.ActionItems, domain.RCAActionItem{
			ID:          uuid.NewString(),
			Description: strings.TrimSpace(item.Description),
			Owner:       item.Owner,
			Status:      domain.RCAActionOpen,
			DueAt:       item.DueAt,
			UpdatedAt:   now,
		})
	}

	write, err := s.Store.RCAs.Put(incidentID, 0, rca)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.commit(ctx, []repository.Write{write}); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConflict("incident already has a root cause analysis", map[string]any{"incident_id": incidentID})
		}
		return nil, apperrors.MapError(err)
	}
	return rca, nil
}

// GetRCA loads the root cause analysis of an incident.
func (s *IncidentService) GetRCA(ctx context.Context, incidentID string) (*domain.RcaRecord, error) {
	rca, _, err := s.Store.RCAs.Get(ctx, incidentID)
	if err != nil {
		return nil, loadErr(err, "rca", incidentID)
	}
	return rca, nil
}

// UpdateRCAActionItem patches a single action item.
func (s *IncidentService) UpdateRCAActionItem(ctx context.Context, actor domain.Actor, incidentID, itemID string, update RCAActionItemUpdate) (*domain.RcaRecord, error) {
	if err := requireRole(actor, "update root cause analyses", domain.StaffRoleAdmin, domain.StaffRoleIncidentManager); err != nil {
		return nil, err
	}
	if status, ok := update.Status.Get(); ok && !status.Valid() {
		return nil, apperrors.NewValidationError("invalid action item status", map[string]any{"status": status})
	}
	if update.Status.IsNull() {
		return nil, apperrors.NewValidationError("status cannot be null", map[string]any{"status": "null"})
	}

	var updated *domain.RcaRecord
	err := s.retry(ctx, "rca.update_item", func(ctx context.Context) error {
		rca, version, err := s.Store.RCAs.Get(ctx, incidentID)
		if err != nil {
			return loadErr(err, "rca", incidentID)
		}
		idx := -1
		for i := range rca.ActionItems {
			if rca.ActionItems[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperrors.NewNotFound("action item", map[string]any{"id": itemID})
		}

		item := &rca.ActionItems[idx]
		if status, ok := update.Status.Get(); ok {
			item.Status = status
		}
		if update.Owner.Present() {
			item.Owner = update.Owner.OrElse("")
		}
		if update.DueAt.Present() {
			item.DueAt = update.DueAt
		}
		item.UpdatedAt = s.Clock.Now()

		write, err := s.Store.RCAs.Put(incidentID, version, rca)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := s.commit(ctx, []repository.Write{write}); err != nil {
			return err
		}
		updated = rca
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

func normalizeServices(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, svc := range in {
		svc = strings.TrimSpace(svc)
		if svc == "" {
			continue
		}
		if _, ok := seen[svc]; ok {
			continue
		}
		seen[svc] = struct{}{}
		out = append(out, svc)
	}
	sort.Strings(out)
	return out
}

func matchAny[T comparable](allowed []T, v T) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
