package statemachine

import (
	"time"

	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// IncidentResolution is the guard data for entering incident "resolved".
type IncidentResolution struct {
	DetectedAt time.Time
	ResolvedAt nullable.Nullable[time.Time]
}

// AppealDecision is the guard data for deciding an appeal.
type AppealDecision struct {
	ResolvedAt nullable.Nullable[time.Time]
	// BanLifted must be true when approving: the linked ban is lifted in the
	// same write as the appeal.
	BanLifted bool
}

// ReviewVerdict is the guard data for cheat report review edges.
type ReviewVerdict struct {
	Action          domain.ModerationAction
	BanDurationDays nullable.Nullable[int]
	EscalateTo      string
}

var (
	incidentOperators = []domain.StaffRole{domain.StaffRoleAdmin, domain.StaffRoleIncidentManager}
	moderators        = []domain.StaffRole{domain.StaffRoleAdmin, domain.StaffRoleModerator}
	supportStaff      = []domain.StaffRole{domain.StaffRoleAdmin, domain.StaffRoleSupportAgent}
	systemOnly        = []domain.StaffRole{domain.StaffRoleSystem}
	appealIntake      = []domain.StaffRole{domain.StaffRoleAdmin, domain.StaffRoleModerator, domain.StaffRoleSupportAgent, domain.StaffRoleSystem}
)

// DefaultGraphs returns the lifecycle tables of every entity kind.
func DefaultGraphs() []Graph {
	return []Graph{IncidentGraph(), BanGraph(), AppealGraph(), CheatReportGraph(), SupportTicketGraph()}
}

// IncidentGraph: new→acknowledged→investigating→{mitigated,resolved};
// mitigated→resolved; resolved→closed.
func IncidentGraph() Graph {
	resolve := Edge{Roles: incidentOperators, Guard: guardIncidentResolution}
	return Graph{
		Kind:    domain.KindIncident,
		Initial: []string{string(domain.IncidentStatusNew)},
		Edges: map[string]map[string]Edge{
			string(domain.IncidentStatusNew): {
				string(domain.IncidentStatusAcknowledged): {Roles: incidentOperators},
			},
			string(domain.IncidentStatusAcknowledged): {
				string(domain.IncidentStatusInvestigating): {Roles: incidentOperators},
			},
			string(domain.IncidentStatusInvestigating): {
				string(domain.IncidentStatusMitigated): {Roles: incidentOperators},
				string(domain.IncidentStatusResolved):  resolve,
			},
			string(domain.IncidentStatusMitigated): {
				string(domain.IncidentStatusResolved): resolve,
			},
			string(domain.IncidentStatusResolved): {
				string(domain.IncidentStatusClosed): {Roles: incidentOperators},
			},
		},
	}
}

// BanGraph: ACTIVE→{APPEALED,EXPIRED,LIFTED}; APPEALED→{ACTIVE,LIFTED,EXPIRED}.
func BanGraph() Graph {
	return Graph{
		Kind:    domain.KindBan,
		Initial: []string{string(domain.BanStatusActive)},
		Edges: map[string]map[string]Edge{
			string(domain.BanStatusActive): {
				string(domain.BanStatusAppealed): {Roles: appealIntake},
				string(domain.BanStatusExpired):  {Roles: systemOnly},
				string(domain.BanStatusLifted):   {Roles: []domain.StaffRole{domain.StaffRoleAdmin}},
			},
			string(domain.BanStatusAppealed): {
				string(domain.BanStatusActive):  {Roles: moderators},
				string(domain.BanStatusLifted):  {Roles: moderators},
				string(domain.BanStatusExpired): {Roles: append([]domain.StaffRole{domain.StaffRoleSystem}, moderators...)},
			},
		},
	}
}

// AppealGraph: PENDING→{UNDER_REVIEW,APPROVED,REJECTED}; UNDER_REVIEW→{APPROVED,REJECTED}.
func AppealGraph() Graph {
	approve := Edge{Roles: moderators, Guard: guardAppealApproval}
	reject := Edge{Roles: moderators, Guard: guardAppealRejection}
	return Graph{
		Kind:    domain.KindAppeal,
		Initial: []string{string(domain.AppealStatusPending)},
		Edges: map[string]map[string]Edge{
			string(domain.AppealStatusPending): {
				string(domain.AppealStatusUnderReview): {Roles: moderators},
				string(domain.AppealStatusApproved):    approve,
				string(domain.AppealStatusRejected):    reject,
			},
			string(domain.AppealStatusUnderReview): {
				string(domain.AppealStatusApproved): approve,
				string(domain.AppealStatusRejected): reject,
			},
		},
	}
}

// CheatReportGraph: PENDING|UNDER_REVIEW → CONFIRMED|DISMISSED; escalation
// keeps or enters UNDER_REVIEW.
func CheatReportGraph() Graph {
	confirm := Edge{Roles: moderators, Guard: guardConfirm}
	dismiss := Edge{Roles: moderators}
	escalate := Edge{Roles: moderators, Guard: guardEscalate}
	return Graph{
		Kind:    domain.KindCheatReport,
		Initial: []string{string(domain.CheatReportPending)},
		Edges: map[string]map[string]Edge{
			string(domain.CheatReportPending): {
				string(domain.CheatReportUnderReview): escalate,
				string(domain.CheatReportConfirmed):   confirm,
				string(domain.CheatReportDismissed):   dismiss,
			},
			string(domain.CheatReportUnderReview): {
				string(domain.CheatReportUnderReview): escalate,
				string(domain.CheatReportConfirmed):   confirm,
				string(domain.CheatReportDismissed):   dismiss,
			},
		},
	}
}

// SupportTicketGraph is the five-state ticket lifecycle.
func SupportTicketGraph() Graph {
	staff := Edge{Roles: supportStaff}
	return Graph{
		Kind:    domain.KindSupportTicket,
		Initial: []string{string(domain.TicketStatusOpen)},
		Edges: map[string]map[string]Edge{
			string(domain.TicketStatusOpen): {
				string(domain.TicketStatusPending):  staff,
				string(domain.TicketStatusOnHold):   staff,
				string(domain.TicketStatusResolved): staff,
			},
			string(domain.TicketStatusPending): {
				string(domain.TicketStatusOpen):     staff,
				string(domain.TicketStatusOnHold):   staff,
				string(domain.TicketStatusResolved): staff,
			},
			string(domain.TicketStatusOnHold): {
				string(domain.TicketStatusOpen):     staff,
				string(domain.TicketStatusPending):  staff,
				string(domain.TicketStatusResolved): staff,
			},
			string(domain.TicketStatusResolved): {
				string(domain.TicketStatusOpen):   staff,
				string(domain.TicketStatusClosed): {Roles: append([]domain.StaffRole{domain.StaffRoleSystem}, supportStaff...)},
			},
		},
	}
}

func guardIncidentResolution(data any) error {
	res, ok := data.(IncidentResolution)
	if !ok {
		return apperrors.NewMissingGuardData("resolvedAt is required to resolve an incident", nil)
	}
	resolvedAt, ok := res.ResolvedAt.Get()
	if !ok {
		return apperrors.NewMissingGuardData("resolvedAt is required to resolve an incident", nil)
	}
	if resolvedAt.Before(res.DetectedAt) {
		return apperrors.NewInvalidDeadline("resolvedAt must not precede detectedAt", map[string]any{
			"detected_at": res.DetectedAt,
			"resolved_at": resolvedAt,
		})
	}
	return nil
}

func guardAppealApproval(data any) error {
	decision, ok := data.(AppealDecision)
	if !ok || !decision.ResolvedAt.IsSet() {
		return apperrors.NewMissingGuardData("resolvedAt is required to decide an appeal", nil)
	}
	if !decision.BanLifted {
		return apperrors.NewMissingGuardData("approving an appeal requires lifting the linked ban", nil)
	}
	return nil
}

func guardAppealRejection(data any) error {
	decision, ok := data.(AppealDecision)
	if !ok || !decision.ResolvedAt.IsSet() {
		return apperrors.NewMissingGuardData("resolvedAt is required to decide an appeal", nil)
	}
	return nil
}

func guardConfirm(data any) error {
	verdict, ok := data.(ReviewVerdict)
	if !ok {
		return apperrors.NewMissingGuardData("confirming a report requires an action", nil)
	}
	switch verdict.Action {
	case domain.ActionNone, domain.ActionWarning, domain.ActionPermanentBan:
		return nil
	case domain.ActionTemporaryBan:
		days, ok := verdict.BanDurationDays.Get()
		if !ok {
			return apperrors.NewMissingGuardData("banDurationDays is required for TEMPORARY_BAN", nil)
		}
		if days <= 0 {
			return apperrors.NewMissingGuardData("banDurationDays must be positive", map[string]any{"ban_duration_days": days})
		}
		return nil
	default:
		return apperrors.NewMissingGuardData("confirming a report requires an action", map[string]any{"action": verdict.Action})
	}
}

func guardEscalate(data any) error {
	verdict, ok := data.(ReviewVerdict)
	if !ok || verdict.EscalateTo == "" {
		return apperrors.NewMissingGuardData("escalation requires a reviewer to escalate to", nil)
	}
	return nil
}
