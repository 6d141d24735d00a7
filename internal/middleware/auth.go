package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/studydeck/studydeck/internal/config"
	"github.com/studydeck/studydeck/internal/services"
	"github.com/studydeck/studydeck/internal/types"
)

// IdentityKey is the request-local key carrying the resolved caller identity
const IdentityKey = "identity"

// AuthUser validates that the request carries a valid user session and
// attaches the resolved identity to the request context.
func AuthUser(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, cfg, []string{"user"}, "authorization.user")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, cfg *config.Config, roles []string, errorType string) error {
	// The Authorizer client needs the request host for its redirect URL,
	// so initialization is deferred to the first authenticated request.
	if !services.IsAuthorizerInitialized() {
		if err := services.InitAuthorizer(cfg, c.Protocol(), c.Hostname()); err != nil {
			return &types.CustomError{
				Code:    fiber.StatusServiceUnavailable,
				Message: fmt.Sprintf("Authorizer unavailable: %v", err),
				Type:    errorType,
			}
		}
	}

	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusUnauthorized,
			Message: "Authorizer cookie \"cookie_session\" not found",
			Type:    errorType,
		}
	}

	ident, err := services.ValidateSession(session, roles)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusUnauthorized,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	c.Locals(IdentityKey, ident)

	return c.Next()
}
