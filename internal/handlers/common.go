package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/studydeck/studydeck/internal/middleware"
	"github.com/studydeck/studydeck/internal/services"
)

// callerIdentity extracts the identity attached by the auth middleware
func callerIdentity(c *fiber.Ctx) (*services.Identity, error) {
	v := c.Locals(middleware.IdentityKey)
	if v == nil {
		return nil, fmt.Errorf("identity not found in context")
	}

	ident, ok := v.(*services.Identity)
	if !ok || ident.ExternalID == "" {
		return nil, fmt.Errorf("invalid identity data")
	}

	return ident, nil
}
