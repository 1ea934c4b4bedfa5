package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admin-ops-service/internal/api/dto"
	"github.com/spec-kit/admin-ops-service/internal/auth"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/service"
	"github.com/spec-kit/admin-ops-service/pkg/nullable"
)

// StaffHandler exposes staff/auth endpoints.
type StaffHandler struct {
	authService  *service.AuthService
	staffService *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{authService: authService, staffService: staffService}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.authService.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": dto.NewStaffResponse(res.Staff),
			"auth":  dto.AuthResponse{Token: res.AccessToken, ExpiresAt: res.Token.ExpiresAt},
		},
	})
}

// ChangePassword handles POST /auth/password/change.
func (h *StaffHandler) ChangePassword(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.authService.ChangePassword(c.UserContext(), actor, req.Email, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_changed"}})
}

// CreateStaff handles POST /staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateStaffRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	staff, err := h.staffService.CreateStaffMember(c.UserContext(), actor, req.ToInput())
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewStaffResponse(staff))
}

// ListStaff handles GET /staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	staff, err := h.staffService.ListStaffMembers(c.UserContext(), actor, parseStaffListFilters(c))
	if err != nil {
		return err
	}
	items := make([]dto.StaffResponse, 0, len(staff))
	for _, member := range staff {
		items = append(items, dto.NewStaffResponse(member))
	}
	return data(c, http.StatusOK, items)
}

// GetStaff handles GET /staff/:email.
func (h *StaffHandler) GetStaff(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	staff, err := h.staffService.GetStaffMember(c.UserContext(), actor, c.Params("email"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewStaffResponse(staff))
}

// UpdateStaff handles PATCH /staff/:email.
func (h *StaffHandler) UpdateStaff(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStaffRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	staff, err := h.staffService.UpdateStaffMember(c.UserContext(), actor, c.Params("email"), req.ToInput())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewStaffResponse(staff))
}

func parseStaffListFilters(c *fiber.Ctx) service.StaffListFilters {
	var filters service.StaffListFilters
	if role := c.Query("role"); role != "" {
		filters.Role = domain.StaffRole(role)
	}
	if active := c.Query("active"); active != "" {
		if parsed, err := strconv.ParseBool(active); err == nil {
			filters.Active = nullable.Of(parsed)
		}
	}
	filters.Limit, filters.Offset = pageQuery(c)
	return filters
}
