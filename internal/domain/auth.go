package domain

import "time"

// SubjectType differentiates human operators from service accounts.
type SubjectType string

const (
	SubjectTypeStaff   SubjectType = "STAFF"
	SubjectTypeService SubjectType = "SERVICE"
)

// Token represents issued authentication token metadata.
type Token struct {
	SubjectID string
	Subject   SubjectType
	Role      StaffRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
