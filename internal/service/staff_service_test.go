package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/admin-ops-service/internal/auth"
	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

func newStaffFixture() (*StaffService, *AuthService) {
	clk := clock.Fake(t0)
	staff := NewStaffService(repository.NewStore(repository.NewMemoryBackend()), clk, 4)
	return staff, NewAuthService(staff, auth.NewTokenManager("secret", 30, clk))
}

func TestStaff_BootstrapAndLogin(t *testing.T) {
	ctx := context.Background()
	staff, authSvc := newStaffFixture()

	created, err := staff.EnsureBootstrapAdmin(ctx, "Root@Example.com", "correct horse")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = staff.EnsureBootstrapAdmin(ctx, "root@example.com", "other password")
	require.NoError(t, err)
	assert.False(t, created)

	res, err := authSvc.LoginStaff(ctx, "root@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, domain.StaffRoleAdmin, res.Token.Role)

	claims, err := authSvc.TokenManager().ParseToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Staff.ID, claims.SubjectID)

	_, err = authSvc.LoginStaff(ctx, "root@example.com", "wrong")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))
}

func TestStaff_CreateUpdateDisable(t *testing.T) {
	ctx := context.Background()
	staff, authSvc := newStaffFixture()

	_, err := staff.CreateStaffMember(ctx, moderator, CreateStaffInput{Email: "x@example.com", Password: "12345678", Role: domain.StaffRoleModerator})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, err = staff.CreateStaffMember(ctx, admin, CreateStaffInput{Email: "bot@example.com", Password: "12345678", Role: domain.StaffRoleSystem})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidationFailed))

	m, err := staff.CreateStaffMember(ctx, admin, CreateStaffInput{Name: "Mo", Email: "mo@example.com", Password: "12345678", Role: domain.StaffRoleModerator})
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Version)

	_, err = staff.CreateStaffMember(ctx, admin, CreateStaffInput{Email: "MO@example.com", Password: "12345678", Role: domain.StaffRoleAdmin})
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))

	m, err = staff.UpdateStaffMember(ctx, admin, "mo@example.com", UpdateStaffInput{
		Role:   nullable.Of(domain.StaffRoleIncidentManager),
		Active: nullable.Of(false),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StaffRoleIncidentManager, m.Role)
	assert.Equal(t, "Mo", m.Name)

	_, err = authSvc.LoginStaff(ctx, "mo@example.com", "12345678")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))

	inactive, err := staff.ListStaffMembers(ctx, admin, StaffListFilters{Active: nullable.Of(false)})
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "mo@example.com", inactive[0].Email)
}

func TestAuth_ChangePassword(t *testing.T) {
	ctx := context.Background()
	staff, authSvc := newStaffFixture()
	m, err := staff.CreateStaffMember(ctx, admin, CreateStaffInput{Email: "a@example.com", Password: "first-pass", Role: domain.StaffRoleSupportAgent})
	require.NoError(t, err)

	err = authSvc.ChangePassword(ctx, domain.Actor{ID: "someone-else", Role: domain.StaffRoleAdmin}, "a@example.com", "first-pass", "second-pass")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	require.NoError(t, authSvc.ChangePassword(ctx, m.Actor(), "a@example.com", "first-pass", "second-pass"))
	_, err = authSvc.LoginStaff(ctx, "a@example.com", "second-pass")
	assert.NoError(t, err)
}
