package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admin-ops-service/internal/api/dto"
	apperrors "github.com/spec-kit/admin-ops-service/pkg/util/errorutil"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// bind decodes the JSON body into req and runs its validation tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"body": err.Error()})
	}
	return dto.Validate(req)
}

func data(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(fiber.Map{"data": payload})
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultVal
}

// pageQuery reads limit/offset, capping the limit.
func pageQuery(c *fiber.Ctx) (limit, offset int) {
	limit = parseIntQuery(c, "limit", defaultLimit)
	if limit == 0 || limit > maxLimit {
		limit = maxLimit
	}
	return limit, parseIntQuery(c, "offset", 0)
}

// csvQuery splits a comma separated query value into typed values.
func csvQuery[T ~string](c *fiber.Ctx, key string) []T {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]T, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, T(p))
		}
	}
	return out
}
