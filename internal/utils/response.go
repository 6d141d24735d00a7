package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studydeck/studydeck/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response envelope
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

// ServiceErrorResponse maps a service failure kind onto an HTTP status
// and the standard error envelope. Limit-reached failures carry a
// limitReached flag so the client can offer an upgrade path; validation
// failures carry every violated field.
func ServiceErrorResponse(c *fiber.Ctx, serr *types.ServiceError) error {
	status := fiber.StatusInternalServerError
	message := serr.Message

	switch serr.Kind {
	case types.ErrValidation, types.ErrEmptyDeck:
		status = fiber.StatusBadRequest
	case types.ErrUnauthenticated:
		status = fiber.StatusUnauthorized
	case types.ErrUserNotFound, types.ErrNotFoundOrDenied:
		status = fiber.StatusNotFound
	case types.ErrOwnership:
		status = fiber.StatusForbidden
	case types.ErrLimitReached:
		status = fiber.StatusPaymentRequired
	case types.ErrPrematureAnswer:
		status = fiber.StatusConflict
	case types.ErrOperationFailed, types.ErrPersistence:
		// Never leak internal detail for unexpected failures
		message = "Something went wrong. Please try again."
	}

	body := fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      string(serr.Kind),
	}
	if serr.Kind == types.ErrValidation && len(serr.Fields) > 0 {
		body["fields"] = serr.Fields
	}
	if serr.Kind == types.ErrLimitReached {
		body["limitReached"] = true
	}

	return c.Status(status).JSON(body)
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status       int                 `json:"status"`
	Message      string              `json:"message"`
	Ok           bool                `json:"ok"`
	Timestamp    string              `json:"timestamp"`
	URL          string              `json:"url"`
	Type         string              `json:"type,omitempty"`
	Fields       map[string][]string `json:"fields,omitempty"`
	LimitReached bool                `json:"limitReached,omitempty"`
}
