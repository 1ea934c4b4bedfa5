// Package sla computes deadlines and response metrics and arms breach timers.
package sla

import (
	"time"

	"github.com/spec-kit/admin-ops-service/internal/config"
	"github.com/spec-kit/admin-ops-service/internal/domain"
)

// Policy maps severities and ticket priorities to response windows.
type Policy struct {
	Incident map[domain.IncidentSeverity]time.Duration
	Ticket   map[domain.TicketPriority]time.Duration
}

// DefaultPolicy returns the built-in SLA table.
func DefaultPolicy() Policy {
	return Policy{
		Incident: map[domain.IncidentSeverity]time.Duration{
			domain.SeverityCritical: 15 * time.Minute,
			domain.SeverityHigh:     time.Hour,
			domain.SeverityMedium:   4 * time.Hour,
			domain.SeverityLow:      24 * time.Hour,
		},
		Ticket: map[domain.TicketPriority]time.Duration{
			domain.TicketPriorityCritical: time.Hour,
			domain.TicketPriorityHigh:     4 * time.Hour,
			domain.TicketPriorityMedium:   24 * time.Hour,
			domain.TicketPriorityLow:      72 * time.Hour,
		},
	}
}

// PolicyFromConfig builds a policy from configuration, keeping defaults for
// non-positive values.
func PolicyFromConfig(cfg config.SLAConfig) Policy {
	p := DefaultPolicy()
	setMinutes := func(sev domain.IncidentSeverity, minutes int) {
		if minutes > 0 {
			p.Incident[sev] = time.Duration(minutes) * time.Minute
		}
	}
	setHours := func(pr domain.TicketPriority, hours int) {
		if hours > 0 {
			p.Ticket[pr] = time.Duration(hours) * time.Hour
		}
	}
	setMinutes(domain.SeverityCritical, cfg.CriticalMinutes)
	setMinutes(domain.SeverityHigh, cfg.HighMinutes)
	setMinutes(domain.SeverityMedium, cfg.MediumMinutes)
	setMinutes(domain.SeverityLow, cfg.LowMinutes)
	setHours(domain.TicketPriorityCritical, cfg.TicketCriticalHours)
	setHours(domain.TicketPriorityHigh, cfg.TicketHighHours)
	setHours(domain.TicketPriorityMedium, cfg.TicketMediumHours)
	setHours(domain.TicketPriorityLow, cfg.TicketLowHours)
	return p
}
