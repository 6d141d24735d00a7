package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/studydeck/studydeck/internal/models"
	"github.com/studydeck/studydeck/internal/services"
	"github.com/studydeck/studydeck/internal/utils"
	svix "github.com/svix/svix-webhooks/go"
	"gorm.io/gorm"
)

// WebhookHandler receives identity-provider lifecycle events. The
// endpoint is unauthenticated; authenticity comes from the svix
// signature over the raw body.
type WebhookHandler struct {
	DB     *gorm.DB
	Secret string
}

// webhookEnvelope is the provider's event shape
type webhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		ID           string `json:"id"`
		PrimaryEmail string `json:"primaryEmail"`
		FirstName    string `json:"firstName"`
		LastName     string `json:"lastName"`
		Plan         string `json:"plan"`
	} `json:"data"`
}

// HandleIdentityEvent handles POST /api/webhooks/identity
// @Summary Receive an identity provider event
// @Description Verify the svix signature and apply user.created, user.updated, or user.deleted
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /webhooks/identity [post]
func (h *WebhookHandler) HandleIdentityEvent(c *fiber.Ctx) error {
	wh, err := svix.NewWebhook(h.Secret)
	if err != nil {
		log.Printf("Webhook secret rejected: %v", err)
		return utils.ErrorResponse(c, "Something went wrong. Please try again.",
			fiber.StatusInternalServerError, "webhook.config")
	}

	headers := http.Header{}
	for _, key := range []string{"svix-id", "svix-timestamp", "svix-signature"} {
		headers.Set(key, c.Get(key))
	}

	body := c.Body()
	if err := wh.Verify(body, headers); err != nil {
		return utils.ErrorResponse(c, "Invalid webhook signature",
			fiber.StatusBadRequest, "webhook.signature")
	}

	var event webhookEnvelope
	if err := json.Unmarshal(body, &event); err != nil {
		return utils.ErrorResponse(c, "Invalid webhook payload",
			fiber.StatusBadRequest, "webhook.payload")
	}
	if event.Data.ID == "" {
		return utils.ErrorResponse(c, "Webhook payload missing user id",
			fiber.StatusBadRequest, "webhook.payload")
	}

	// The delivery id's unique index makes redelivered events no-ops
	audit := models.WebhookEvent{
		EventID:   c.Get("svix-id"),
		EventType: event.Type,
		Payload:   body,
	}
	if err := h.DB.Create(&audit).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
		}
		var existing int64
		h.DB.Model(&models.WebhookEvent{}).Where("event_id = ?", audit.EventID).Count(&existing)
		if existing > 0 {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
		}
		log.Printf("Failed to record webhook event %s: %v", audit.EventID, err)
		return utils.ErrorResponse(c, "Something went wrong. Please try again.",
			fiber.StatusInternalServerError, "webhook.persistence")
	}

	switch event.Type {
	case "user.created", "user.updated":
		_, serr := services.UpsertUserByExternalID(h.DB, services.UserUpsertInput{
			ExternalID: event.Data.ID,
			Email:      event.Data.PrimaryEmail,
			FirstName:  event.Data.FirstName,
			LastName:   event.Data.LastName,
			Plan:       event.Data.Plan,
		})
		if serr != nil {
			return utils.ServiceErrorResponse(c, serr)
		}

	case "user.deleted":
		if serr := services.DeleteUserByExternalID(h.DB, event.Data.ID); serr != nil {
			return utils.ServiceErrorResponse(c, serr)
		}

	default:
		// Unknown event types are acknowledged so the provider stops
		// retrying; the audit row keeps them inspectable.
		log.Printf("Ignoring webhook event type %q", event.Type)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
