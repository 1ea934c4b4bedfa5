package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/admin-ops-service/internal/auth"
	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// StaffService manages operator accounts.
type StaffService struct {
	store      *repository.Store
	clock      clock.Clock
	bcryptCost int
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Role   domain.StaffRole
	Active nullable.Nullable[bool]
	Limit  int
	Offset int
}

// CreateStaffInput describes a new account.
type CreateStaffInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.StaffRole
}

// UpdateStaffInput patches an account. Absent fields are unchanged.
type UpdateStaffInput struct {
	Name   nullable.Nullable[string]
	Role   nullable.Nullable[domain.StaffRole]
	Active nullable.Nullable[bool]
}

// NewStaffService constructs the service.
func NewStaffService(store *repository.Store, clk clock.Clock, bcryptCost int) *StaffService {
	return &StaffService{store: store, clock: clk, bcryptCost: bcryptCost}
}

func requireAdmin(actor domain.Actor) error {
	if actor.Role != domain.StaffRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

func staffKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateStaffMember adds a new staff account.
func (s *StaffService) CreateStaffMember(ctx context.Context, actor domain.Actor, input CreateStaffInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.create(ctx, input)
}

// EnsureBootstrapAdmin creates the initial ADMIN account unless an account
// with that email already exists. It reports whether one was created.
func (s *StaffService) EnsureBootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	if staffKey(email) == "" || password == "" {
		return false, nil
	}
	_, err := s.create(ctx, CreateStaffInput{Name: "bootstrap admin", Email: email, Password: password, Role: domain.StaffRoleAdmin})
	if apperrors.Is(err, apperrors.CodeConflict) {
		return false, nil
	}
	return err == nil, err
}

func (s *StaffService) create(ctx context.Context, input CreateStaffInput) (*domain.StaffMember, error) {
	key := staffKey(input.Email)
	if key == "" || !strings.Contains(key, "@") {
		return nil, apperrors.NewValidationError("valid email is required", map[string]any{"email": input.Email})
	}
	if !input.Role.Valid() || input.Role == domain.StaffRoleSystem {
		return nil, apperrors.NewValidationError("invalid staff role", map[string]any{"role": input.Role})
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must have at least 8 characters", map[string]any{"password": "min=8"})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.clock.Now()
	staff := &domain.StaffMember{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Email:        key,
		PasswordHash: hash,
		Role:         input.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	write, err := s.store.Staff.Put(key, 0, staff)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.store.Backend.CompareAndSwap(ctx, write); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": key})
		}
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// ListStaffMembers lists staff with filters, ordered by email.
func (s *StaffService) ListStaffMembers(ctx context.Context, actor domain.Actor, filters StaffListFilters) ([]*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.store.Staff.List(ctx, func(m *domain.StaffMember) bool {
		if filters.Role != "" && m.Role != filters.Role {
			return false
		}
		if active, ok := filters.Active.Get(); ok && m.Active != active {
			return false
		}
		return true
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Email < items[j].Email })
	return page(items, filters.Limit, filters.Offset), nil
}

// GetStaffMember fetches an account by email.
func (s *StaffService) GetStaffMember(ctx context.Context, actor domain.Actor, email string) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, _, err := s.store.Staff.Get(ctx, staffKey(email))
	if err != nil {
		return nil, loadErr(err, "staff member", email)
	}
	return staff, nil
}

// UpdateStaffMember changes name, role or active flag.
func (s *StaffService) UpdateStaffMember(ctx context.Context, actor domain.Actor, email string, input UpdateStaffInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if role, ok := input.Role.Get(); ok && (!role.Valid() || role == domain.StaffRoleSystem) {
		return nil, apperrors.NewValidationError("invalid staff role", map[string]any{"role": role})
	}

	var updated *domain.StaffMember
	err := repository.WithRetry(ctx, repository.DefaultAttempts, "staff.update", func(ctx context.Context) error {
		staff, version, err := s.store.Staff.Get(ctx, staffKey(email))
		if err != nil {
			return loadErr(err, "staff member", email)
		}
		if name, ok := input.Name.Get(); ok {
			staff.Name = strings.TrimSpace(name)
		}
		if role, ok := input.Role.Get(); ok {
			staff.Role = role
		}
		if active, ok := input.Active.Get(); ok {
			staff.Active = active
		}
		staff.UpdatedAt = s.clock.Now()
		write, err := s.store.Staff.Put(staffKey(email), version, staff)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := s.store.Backend.CompareAndSwap(ctx, write); err != nil {
			return err
		}
		updated = staff
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

// setPassword replaces the password hash of the account at email.
func (s *StaffService) setPassword(ctx context.Context, email, password string) error {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return repository.WithRetry(ctx, repository.DefaultAttempts, "staff.password", func(ctx context.Context) error {
		staff, version, err := s.store.Staff.Get(ctx, staffKey(email))
		if err != nil {
			return loadErr(err, "staff member", email)
		}
		staff.PasswordHash = hash
		staff.UpdatedAt = s.clock.Now()
		write, err := s.store.Staff.Put(staffKey(email), version, staff)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		return s.store.Backend.CompareAndSwap(ctx, write)
	})
}
