package server

import (
	"minbar/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SetRecitationStatus handles PUT /api/admin/recitations/:id/status.
func (s *Server) SetRecitationStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	status, err := models.ParseStatus(req.Status)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	recitation, err := s.recitationService.SetStatus(ctx, id, status, req.Reason)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(recitation)
}

// GetAdminRecitations handles GET /api/admin/recitations?status&page&limit.
// The review queue defaults to pending.
func (s *Server) GetAdminRecitations(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page := parsePagination(c, 20)

	raw := c.Query("status", string(models.StatusPending))
	status, err := models.ParseStatus(raw)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	recitations, err := s.recitationService.ListByStatus(ctx, status, page.Page, page.Limit)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(recitations)
}
