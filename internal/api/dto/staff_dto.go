package dto

import (
	"time"

	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/service"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	Email           string `json:"email" validate:"required,email"`
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// CreateStaffRequest payload.
type CreateStaffRequest struct {
	Name     string           `json:"name" validate:"max=200"`
	Email    string           `json:"email" validate:"required,email"`
	Password string           `json:"password" validate:"required,min=8"`
	Role     domain.StaffRole `json:"role" validate:"required,oneof=ADMIN INCIDENT_MANAGER MODERATOR SUPPORT_AGENT"`
}

// ToInput converts the request for the service layer.
func (r CreateStaffRequest) ToInput() service.CreateStaffInput {
	return service.CreateStaffInput{Name: r.Name, Email: r.Email, Password: r.Password, Role: r.Role}
}

// UpdateStaffRequest payload. Absent fields are left unchanged.
type UpdateStaffRequest struct {
	Name   nullable.Nullable[string]           `json:"name"`
	Role   nullable.Nullable[domain.StaffRole] `json:"role"`
	Active nullable.Nullable[bool]             `json:"active"`
}

// ToInput converts the request for the service layer.
func (r UpdateStaffRequest) ToInput() service.UpdateStaffInput {
	return service.UpdateStaffInput{Name: r.Name, Role: r.Role, Active: r.Active}
}

// StaffResponse is the public view of a staff account.
type StaffResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      domain.StaffRole `json:"role"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// NewStaffResponse hides credentials from the stored account.
func NewStaffResponse(staff *domain.StaffMember) StaffResponse {
	return StaffResponse{
		ID:        staff.ID,
		Name:      staff.Name,
		Email:     staff.Email,
		Role:      staff.Role,
		Active:    staff.Active,
		CreatedAt: staff.CreatedAt,
		UpdatedAt: staff.UpdatedAt,
	}
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
