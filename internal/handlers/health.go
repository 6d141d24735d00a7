package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/studydeck/studydeck/internal/config"
	"github.com/studydeck/studydeck/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports service health
type HealthHandler struct {
	Cfg *config.Config
	DB  *gorm.DB
}

// GetHealth handles GET /api/health
// @Summary Health check
// @Description Check database and authorizer connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Cfg, h.DB)

	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(result)
}
