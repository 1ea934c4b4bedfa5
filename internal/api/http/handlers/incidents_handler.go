package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admin-ops-service/internal/api/dto"
	"github.com/spec-kit/admin-ops-service/internal/auth"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/service"
)

// IncidentsHandler exposes incident lifecycle and RCA endpoints.
type IncidentsHandler struct {
	service *service.IncidentService
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(incidents *service.IncidentService) *IncidentsHandler {
	return &IncidentsHandler{service: incidents}
}

// Create POST /incidents.
func (h *IncidentsHandler) Create(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateIncidentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	inc, err := h.service.Create(c.UserContext(), actor, req.ToInput())
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, inc)
}

// List GET /incidents?status=new,acknowledged&severity=critical.
func (h *IncidentsHandler) List(c *fiber.Ctx) error {
	limit, offset := pageQuery(c)
	items, err := h.service.List(c.UserContext(), service.IncidentFilter{
		Statuses:   csvQuery[domain.IncidentStatus](c, "status"),
		Severities: csvQuery[domain.IncidentSeverity](c, "severity"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, items)
}

// Get GET /incidents/:id, including transition history.
func (h *IncidentsHandler) Get(c *fiber.Ctx) error {
	inc, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.service.History(c.UserContext(), inc.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.IncidentDetailResponse{Incident: inc, History: history})
}

// Transition POST /incidents/:id/transitions.
func (h *IncidentsHandler) Transition(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.IncidentTransitionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	inc, err := h.service.Transition(c.UserContext(), actor, c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, inc)
}

// Acknowledge POST /incidents/:id/acknowledge.
func (h *IncidentsHandler) Acknowledge(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	inc, err := h.service.Acknowledge(c.UserContext(), actor, c.Params("id"), req.Comment)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, inc)
}

// CreateRCA POST /incidents/:id/rca.
func (h *IncidentsHandler) CreateRCA(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.RCARequest
	if err := bind(c, &req); err != nil {
		return err
	}
	rca, err := h.service.CreateRCA(c.UserContext(), actor, c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, rca)
}

// GetRCA GET /incidents/:id/rca.
func (h *IncidentsHandler) GetRCA(c *fiber.Ctx) error {
	rca, err := h.service.GetRCA(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, rca)
}

// UpdateRCAActionItem PATCH /incidents/:id/rca/items/:itemId.
func (h *IncidentsHandler) UpdateRCAActionItem(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.RCAActionItemPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	rca, err := h.service.UpdateRCAActionItem(c.UserContext(), actor, c.Params("id"), c.Params("itemId"), req.ToUpdate())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, rca)
}
