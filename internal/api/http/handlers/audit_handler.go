package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	"github.com/spec-kit/admin-ops-service/internal/service"
)

// AuditHandler serves the transition log.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{service: audit}
}

// List GET /audit/transitions?entityKind=&entityId=&actorId=.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	limit, offset := pageQuery(c)
	records, err := h.service.List(c.UserContext(), repository.TransitionFilter{
		EntityKind: domain.EntityKind(c.Query("entityKind")),
		EntityID:   c.Query("entityId"),
		ActorID:    c.Query("actorId"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, records)
}
