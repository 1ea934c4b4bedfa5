package service

import (
	"context"
	"strings"

	"github.com/spec-kit/admin-ops-service/internal/auth"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// AuthService coordinates staff login.
type AuthService struct {
	staff    *StaffService
	tokenMgr *auth.TokenManager
}

// LoginResult carries the signed token and its metadata.
type LoginResult struct {
	Staff       *domain.StaffMember
	AccessToken string
	Token       domain.Token
}

// NewAuthService builds the service.
func NewAuthService(staff *StaffService, tokens *auth.TokenManager) *AuthService {
	return &AuthService{staff: staff, tokenMgr: tokens}
}

// LoginStaff authenticates staff and returns a role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*LoginResult, error) {
	staff, _, err := s.staff.store.Staff.Get(ctx, staffKey(email))
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !staff.Active {
		return nil, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	signed, token, err := s.tokenMgr.GenerateToken(staff.Actor(), domain.SubjectTypeStaff)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Staff: staff, AccessToken: signed, Token: token}, nil
}

// ChangePassword verifies the current password before storing the new one.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Actor, email, currentPassword, newPassword string) error {
	staff, _, err := s.staff.store.Staff.Get(ctx, staffKey(email))
	if err != nil || staff.ID != actor.ID {
		return apperrors.NewForbidden("can only change your own password")
	}
	if err := auth.ComparePassword(staff.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if len(strings.TrimSpace(newPassword)) < 8 {
		return apperrors.NewValidationError("password must have at least 8 characters", map[string]any{"new_password": "min=8"})
	}
	return s.staff.setPassword(ctx, email, newPassword)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
