package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/studydeck/studydeck/internal/services"
	"github.com/studydeck/studydeck/internal/utils"
	"gorm.io/gorm"
)

// StatsHandler serves the aggregate statistics view
type StatsHandler struct {
	DB *gorm.DB
}

// GetStats handles GET /api/stats
// @Summary Get user statistics
// @Description Deck and card totals plus recent study session history for the caller
// @Tags Stats
// @Produce json
// @Success 200 {object} services.UserStats
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /stats [get]
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	stats, serr := services.GetUserStats(h.DB, user.ID)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}
