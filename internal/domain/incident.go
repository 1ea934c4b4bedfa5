package domain

import (
	"time"

	"github.com/spec-kit/admin-ops-service/pkg/nullable"
)

// IncidentSeverity drives the SLA deadline.
type IncidentSeverity string

const (
	SeverityCritical IncidentSeverity = "critical"
	SeverityHigh     IncidentSeverity = "high"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityLow      IncidentSeverity = "low"
)

// Valid reports whether s is a known severity.
func (s IncidentSeverity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// IncidentStatus enumerates lifecycle states for incidents.
type IncidentStatus string

const (
	IncidentStatusNew           IncidentStatus = "new"
	IncidentStatusAcknowledged  IncidentStatus = "acknowledged"
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusMitigated     IncidentStatus = "mitigated"
	IncidentStatusResolved      IncidentStatus = "resolved"
	IncidentStatusClosed        IncidentStatus = "closed"
)

// IsResolved reports whether the status implies a resolution timestamp.
func (s IncidentStatus) IsResolved() bool {
	return s == IncidentStatusResolved || s == IncidentStatusClosed
}

// Incident is the aggregate for production incidents.
type Incident struct {
	ID               string                       `json:"id"`
	Title            string                       `json:"title"`
	Description      string                       `json:"description,omitempty"`
	Severity         IncidentSeverity             `json:"severity"`
	Status           IncidentStatus               `json:"status"`
	DetectedAt       time.Time                    `json:"detectedAt"`
	AcknowledgedAt   nullable.Nullable[time.Time] `json:"acknowledgedAt,omitzero"`
	ResolvedAt       nullable.Nullable[time.Time] `json:"resolvedAt,omitzero"`
	SLABreachAt      nullable.Nullable[time.Time] `json:"slaBreachAt,omitzero"`
	AffectedServices []string                     `json:"affectedServices"`
	MTTAMinutes      nullable.Nullable[int64]     `json:"mttaMinutes,omitzero"`
	MTTRMinutes      nullable.Nullable[int64]     `json:"mttrMinutes,omitzero"`
	CreatedBy        string                       `json:"createdBy"`
	CreatedAt        time.Time                    `json:"createdAt"`
	UpdatedAt        time.Time                    `json:"updatedAt"`
	Version          int64                        `json:"version"`
}

// RCAActionStatus tracks a corrective action item.
type RCAActionStatus string

const (
	RCAActionOpen       RCAActionStatus = "open"
	RCAActionInProgress RCAActionStatus = "in_progress"
	RCAActionDone       RCAActionStatus = "done"
)

// Valid reports whether s is a known action status.
func (s RCAActionStatus) Valid() bool {
	return s == RCAActionOpen || s == RCAActionInProgress || s == RCAActionDone
}

// RCAActionItem is one corrective action of a root cause analysis.
type RCAActionItem struct {
	ID          string                       `json:"id"`
	Description string                       `json:"description"`
	Owner       string                       `json:"owner,omitempty"`
	Status      RCAActionStatus              `json:"status"`
	DueAt       nullable.Nullable[time.Time] `json:"dueAt,omitzero"`
	UpdatedAt   time.Time                    `json:"updatedAt"`
}

// RcaRecord belongs to exactly one closed incident.
type RcaRecord struct {
	ID          string          `json:"id"`
	IncidentID  string          `json:"incidentId"`
	RootCause   string          `json:"rootCause"`
	ActionItems []RCAActionItem `json:"actionItems"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	Version     int64           `json:"version"`
}
