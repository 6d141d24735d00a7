package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/studydeck/studydeck/internal/services"
	"github.com/studydeck/studydeck/internal/utils"
	"gorm.io/gorm"
)

// DeckHandler handles deck CRUD and card generation routes
type DeckHandler struct {
	DB           *gorm.DB
	Entitlements services.EntitlementResolver
	Generator    services.CardGenerator
	FreeLimit    int
}

// ListDecks handles GET /api/decks
// @Summary List decks
// @Description List the caller's decks with card counts
// @Tags Decks
// @Produce json
// @Success 200 {array} services.DeckSummary
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /decks [get]
func (h *DeckHandler) ListDecks(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	decks, serr := services.ListDecks(h.DB, user.ID)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusOK).JSON(decks)
}

// GetDeck handles GET /api/decks/:deckId
// @Summary Get a deck
// @Description Get one owned deck with its cards
// @Tags Decks
// @Produce json
// @Param deckId path string true "Deck ID"
// @Success 200 {object} models.Deck
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /decks/{deckId} [get]
func (h *DeckHandler) GetDeck(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	deck, serr := services.GetDeck(h.DB, user.ID, c.Params("deckId"))
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusOK).JSON(deck)
}

// CreateDeck handles POST /api/decks
// @Summary Create a deck
// @Description Create a deck; free accounts are capped at the configured deck limit
// @Tags Decks
// @Accept json
// @Produce json
// @Param body body services.DeckInput true "Deck to create"
// @Success 201 {object} models.Deck
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 402 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /decks [post]
func (h *DeckHandler) CreateDeck(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	var input services.DeckInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	deck, serr := services.CreateDeck(h.DB, user, h.Entitlements, h.FreeLimit, input)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusCreated).JSON(deck)
}

// UpdateDeck handles PUT /api/decks/:deckId
// @Summary Update a deck
// @Tags Decks
// @Accept json
// @Produce json
// @Param deckId path string true "Deck ID"
// @Param body body services.DeckInput true "New name and description"
// @Success 200 {object} models.Deck
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /decks/{deckId} [put]
func (h *DeckHandler) UpdateDeck(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	var input services.DeckInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	deck, serr := services.UpdateDeck(h.DB, user.ID, c.Params("deckId"), input)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusOK).JSON(deck)
}

// DeleteDeck handles DELETE /api/decks/:deckId
// @Summary Delete a deck
// @Description Delete an owned deck; its cards and sessions cascade
// @Tags Decks
// @Produce json
// @Param deckId path string true "Deck ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /decks/{deckId} [delete]
func (h *DeckHandler) DeleteDeck(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	if serr := services.DeleteDeck(h.DB, user.ID, c.Params("deckId")); serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// GenerateCards handles POST /api/decks/:deckId/generate
// @Summary Generate cards
// @Description Generate cards for an owned deck from its name and description (Pro feature)
// @Tags Decks
// @Produce json
// @Param deckId path string true "Deck ID"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 402 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /decks/{deckId}/generate [post]
func (h *DeckHandler) GenerateCards(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	cards, serr := services.GenerateDeckCards(h.DB, user, h.Entitlements, h.Generator, c.Params("deckId"))
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":    true,
		"count": len(cards),
		"cards": cards,
	})
}
