package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admin-ops-service/internal/api/dto"
	"github.com/spec-kit/admin-ops-service/internal/auth"
	"github.com/spec-kit/admin-ops-service/internal/domain"
	"github.com/spec-kit/admin-ops-service/internal/service"
)

// ModerationHandler exposes cheat report, ban and appeal endpoints.
type ModerationHandler struct {
	service *service.ModerationService
}

// NewModerationHandler constructs handler.
func NewModerationHandler(moderation *service.ModerationService) *ModerationHandler {
	return &ModerationHandler{service: moderation}
}

// SubmitReport POST /moderation/reports.
func (h *ModerationHandler) SubmitReport(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.SubmitReportRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	report, err := h.service.SubmitCheatReport(c.UserContext(), actor, req.ToInput())
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, report)
}

// ListReports GET /moderation/reports?playerId=&status=.
func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	limit, offset := pageQuery(c)
	reports, err := h.service.ListReports(c.UserContext(), service.ReportFilter{
		PlayerID: c.Query("playerId"),
		Statuses: csvQuery[domain.CheatReportStatus](c, "status"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, reports)
}

// GetReport GET /moderation/reports/:id.
func (h *ModerationHandler) GetReport(c *fiber.Ctx) error {
	report, err := h.service.GetReport(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, report)
}

// Review POST /moderation/reports/:id/review.
func (h *ModerationHandler) Review(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ReviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.service.Review(c.UserContext(), actor, c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.ReviewResponse{Report: res.Report, Ban: res.Ban})
}

// IssueBan POST /moderation/bans.
func (h *ModerationHandler) IssueBan(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.IssueBanRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ban, err := h.service.IssueBan(c.UserContext(), actor, req.ToInput())
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, ban)
}

// ListBans GET /moderation/bans?playerId=&status=.
func (h *ModerationHandler) ListBans(c *fiber.Ctx) error {
	limit, offset := pageQuery(c)
	bans, err := h.service.ListBans(c.UserContext(), service.BanFilter{
		PlayerID: c.Query("playerId"),
		Statuses: csvQuery[domain.BanStatus](c, "status"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, bans)
}

// GetBan GET /moderation/bans/:id.
func (h *ModerationHandler) GetBan(c *fiber.Ctx) error {
	ban, err := h.service.GetBan(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, ban)
}

// LiftBan POST /moderation/bans/:id/lift.
func (h *ModerationHandler) LiftBan(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.LiftBanRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ban, err := h.service.LiftBan(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, ban)
}

// SubmitAppeal POST /moderation/bans/:id/appeals.
func (h *ModerationHandler) SubmitAppeal(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.SubmitAppealRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	appeal, err := h.service.SubmitAppeal(c.UserContext(), actor, c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, appeal)
}

// GetAppeal GET /moderation/appeals/:id.
func (h *ModerationHandler) GetAppeal(c *fiber.Ctx) error {
	appeal, err := h.service.GetAppeal(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, appeal)
}

// StartAppealReview POST /moderation/appeals/:id/review.
func (h *ModerationHandler) StartAppealReview(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	appeal, err := h.service.StartAppealReview(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, appeal)
}

// ResolveAppeal POST /moderation/appeals/:id/resolve.
func (h *ModerationHandler) ResolveAppeal(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ResolveAppealRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.service.ResolveAppeal(c.UserContext(), actor, c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.AppealResponse{Appeal: res.Appeal, Ban: res.Ban})
}
