package service

import (
	"context"

	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// AuditService exposes the transition log.
type AuditService struct {
	log repository.TransitionLog
}

// NewAuditService constructs the service.
func NewAuditService(log repository.TransitionLog) *AuditService {
	return &AuditService{log: log}
}

// List returns transition records matching filter in commit order.
func (s *AuditService) List(ctx context.Context, filter repository.TransitionFilter) ([]domain.TransitionRecord, error) {
	if filter.EntityKind != "" && !knownKind(filter.EntityKind) {
		return nil, apperrors.NewValidationError("unknown entity kind", map[string]any{"entity_kind": filter.EntityKind})
	}
	records, err := s.log.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

func knownKind(kind domain.EntityKind) bool {
	switch kind {
	case domain.KindIncident, domain.KindBan, domain.KindAppeal, domain.KindCheatReport, domain.KindSupportTicket:
		return true
	}
	return false
}
