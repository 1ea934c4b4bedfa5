package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admin-ops-service/internal/persistence"
	"github.com/spec-kit/admin-ops-service/internal/scheduler"
)

const readinessTimeout = 2 * time.Second

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	checks      []dependencyCheck
	timers      *scheduler.Scheduler
}

type dependencyCheck struct {
	name    string
	enabled bool
	ping    func(ctx context.Context) error
}

// NewHealthHandler returns a new handler instance. Nil backends are reported
// as disabled; the service then runs on its in-process stores.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis, timers *scheduler.Scheduler) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		timers:      timers,
		checks: []dependencyCheck{
			{name: "postgres", enabled: postgres.PoolHandle() != nil, ping: postgres.Ping},
			{name: "redis", enabled: redis != nil, ping: redis.Ping},
		},
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready pings every configured backend. Pending timer count is informational.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	deps := fiber.Map{}
	ready := true
	for _, check := range h.checks {
		switch {
		case !check.enabled:
			deps[check.name] = "disabled"
		case check.ping(ctx) != nil:
			deps[check.name] = "unreachable"
			ready = false
		default:
			deps[check.name] = "ok"
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": deps,
			},
		})
	}

	body := fiber.Map{"status": "ready", "dependencies": deps}
	if h.timers != nil {
		body["pending_timers"] = h.timers.PendingCount()
	}
	return c.JSON(body)
}
