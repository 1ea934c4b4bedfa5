package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admin-ops-service/internal/api/dto"
	"github.com/spec-kit/admin-ops-service/internal/auth"
	"github.com/spec-kit/admin-ops-service/internal/service"
)

// AutotuneHandler exposes balance adjustment endpoints.
type AutotuneHandler struct {
	service *service.AutotuneService
}

// NewAutotuneHandler constructs handler.
func NewAutotuneHandler(autotune *service.AutotuneService) *AutotuneHandler {
	return &AutotuneHandler{service: autotune}
}

// Apply POST /autotune/batches.
func (h *AutotuneHandler) Apply(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ApplyBatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.service.Apply(c.UserContext(), actor, req.ToInput())
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, result)
}

// Get GET /autotune/batches/:batchId.
func (h *AutotuneHandler) Get(c *fiber.Ctx) error {
	result, err := h.service.Get(c.UserContext(), c.Params("batchId"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, result)
}

// CancelRollback DELETE /autotune/rollbacks/:actionId.
func (h *AutotuneHandler) CancelRollback(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	rollback, err := h.service.CancelRollback(c.UserContext(), actor, c.Params("actionId"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, rollback)
}

// ManualReviews GET /autotune/reviews.
func (h *AutotuneHandler) ManualReviews(c *fiber.Ctx) error {
	items, err := h.service.ManualReviews(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, items)
}

// Parameter GET /autotune/parameters/:name.
func (h *AutotuneHandler) Parameter(c *fiber.Ctx) error {
	name := c.Params("name")
	value, err := h.service.Parameter(c.UserContext(), name)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.ParameterResponse{Name: name, Value: value})
}
