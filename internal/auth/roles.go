package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admin-ops-service/internal/domain"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

// RequireRole ensures the caller has one of the allowed roles. With no roles
// any authenticated caller passes. Fine-grained edge permissions are still
// enforced by the workflows.
func RequireRole(allowed ...domain.StaffRole) fiber.Handler {
	allowedSet := make(map[domain.StaffRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Actor.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff rejects service accounts.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.SubjectType != domain.SubjectTypeStaff {
			return apperrors.NewForbidden("staff account required")
		}
		return c.Next()
	}
}
