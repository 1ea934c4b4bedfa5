package domain

import "time"

// StaffRole enumerates operator roles allowed to drive lifecycle transitions.
type StaffRole string

const (
	StaffRoleAdmin           StaffRole = "ADMIN"
	StaffRoleIncidentManager StaffRole = "INCIDENT_MANAGER"
	StaffRoleModerator       StaffRole = "MODERATOR"
	StaffRoleSupportAgent    StaffRole = "SUPPORT_AGENT"
	// StaffRoleSystem is used by timers and automated detectors.
	StaffRoleSystem StaffRole = "SYSTEM"
)

// Valid reports whether r is a known role.
func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleAdmin, StaffRoleIncidentManager, StaffRoleModerator, StaffRoleSupportAgent, StaffRoleSystem:
		return true
	}
	return false
}

// Actor identifies who requested a transition.
type Actor struct {
	ID   string    `json:"id"`
	Role StaffRole `json:"role"`
}

// SystemActor is the actor recorded for timer-driven transitions.
func SystemActor(component string) Actor {
	return Actor{ID: "system:" + component, Role: StaffRoleSystem}
}

// StaffMember is an operator account. Accounts are keyed by normalized email.
type StaffMember struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         StaffRole `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Version      int64     `json:"version"`
}

// Actor returns the actor the member acts as.
func (s *StaffMember) Actor() Actor {
	return Actor{ID: s.ID, Role: s.Role}
}
