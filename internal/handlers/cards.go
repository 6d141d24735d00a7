package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/studydeck/studydeck/internal/services"
	"github.com/studydeck/studydeck/internal/utils"
	"gorm.io/gorm"
)

// CardHandler handles card routes nested under a deck
type CardHandler struct {
	DB *gorm.DB
}

// ListCards handles GET /api/decks/:deckId/cards
// @Summary List cards
// @Tags Cards
// @Produce json
// @Param deckId path string true "Deck ID"
// @Success 200 {array} models.Card
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /decks/{deckId}/cards [get]
func (h *CardHandler) ListCards(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	cards, serr := services.ListCards(h.DB, user.ID, c.Params("deckId"))
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusOK).JSON(cards)
}

// CreateCard handles POST /api/decks/:deckId/cards
// @Summary Create a card
// @Tags Cards
// @Accept json
// @Produce json
// @Param deckId path string true "Deck ID"
// @Param body body services.CardInput true "Card to create"
// @Success 201 {object} models.Card
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /decks/{deckId}/cards [post]
func (h *CardHandler) CreateCard(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	var input services.CardInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	card, serr := services.CreateCard(h.DB, user.ID, c.Params("deckId"), input)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusCreated).JSON(card)
}

// UpdateCard handles PUT /api/decks/:deckId/cards/:cardId
// @Summary Update a card
// @Tags Cards
// @Accept json
// @Produce json
// @Param deckId path string true "Deck ID"
// @Param cardId path string true "Card ID"
// @Param body body services.CardInput true "New front and back"
// @Success 200 {object} models.Card
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /decks/{deckId}/cards/{cardId} [put]
func (h *CardHandler) UpdateCard(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	var input services.CardInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	card, serr := services.UpdateCard(h.DB, user.ID, c.Params("deckId"), c.Params("cardId"), input)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusOK).JSON(card)
}

// DeleteCard handles DELETE /api/decks/:deckId/cards/:cardId
// @Summary Delete a card
// @Tags Cards
// @Produce json
// @Param deckId path string true "Deck ID"
// @Param cardId path string true "Card ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /decks/{deckId}/cards/{cardId} [delete]
func (h *CardHandler) DeleteCard(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	if serr := services.DeleteCard(h.DB, user.ID, c.Params("deckId"), c.Params("cardId")); serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
