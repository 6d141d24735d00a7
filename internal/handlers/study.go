package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/studydeck/studydeck/internal/services"
	"github.com/studydeck/studydeck/internal/study"
	"github.com/studydeck/studydeck/internal/types"
	"github.com/studydeck/studydeck/internal/utils"
	"gorm.io/gorm"
)

// StudyHandler drives server-held study sittings over HTTP. Each
// sitting wraps one engine instance owned by the authenticated user.
type StudyHandler struct {
	DB       *gorm.DB
	Sessions *study.Manager
}

// studyState renders the engine state for the client. The back of the
// current card is only included once revealed.
func studyState(id string, s *study.Session) fiber.Map {
	state := fiber.Map{
		"sessionId": id,
		"deckId":    s.DeckID(),
		"index":     s.Index(),
		"total":     s.Size(),
		"progress":  s.Progress(),
		"revealed":  s.IsRevealed(),
		"complete":  s.IsComplete(),
	}

	if s.IsComplete() {
		state["tally"] = s.Tally()
		return state
	}

	card := fiber.Map{
		"id":    s.Current().ID,
		"front": s.Current().Front,
	}
	if s.IsRevealed() {
		card["back"] = s.Current().Back
	}
	state["card"] = card

	return state
}

// session looks up the caller's sitting; a wrong owner looks identical
// to a missing session.
func (h *StudyHandler) session(c *fiber.Ctx) (string, *study.Session, *services.Identity, error) {
	ident, err := callerIdentity(c)
	if err != nil {
		return "", nil, nil, utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return "", nil, nil, utils.ServiceErrorResponse(c, serr)
	}

	id := c.Params("sessionId")
	s, ok := h.Sessions.Get(id, user.ID)
	if !ok {
		return "", nil, nil, utils.ServiceErrorResponse(c,
			types.NewServiceError(types.ErrNotFoundOrDenied, "Study session not found or access denied"))
	}

	return id, s, ident, nil
}

// StartStudy handles POST /api/decks/:deckId/study
// @Summary Start a study session
// @Description Load an owned deck's cards into a new server-held sitting
// @Tags Study
// @Accept json
// @Produce json
// @Param deckId path string true "Deck ID"
// @Param body body object false "Options: {shuffle: bool}"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /decks/{deckId}/study [post]
func (h *StudyHandler) StartStudy(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	var body struct {
		Shuffle bool `json:"shuffle"`
	}
	// Body is optional; ignore parse failures on an empty body
	_ = c.BodyParser(&body)

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	deckID := c.Params("deckId")
	cards, serr := services.ListCards(h.DB, user.ID, deckID)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	recorder := &services.SessionRecorder{DB: h.DB, ExternalID: ident.ExternalID}
	s, err := study.NewSession(deckID, cards, recorder)
	if err != nil {
		if errors.Is(err, study.ErrEmptyDeck) {
			return utils.ServiceErrorResponse(c,
				types.NewServiceError(types.ErrEmptyDeck, "This deck has no cards to study"))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "study.start")
	}

	if body.Shuffle {
		_ = s.Shuffle()
	}

	id := h.Sessions.Put(user.ID, s)

	return c.Status(fiber.StatusCreated).JSON(studyState(id, s))
}

// GetStudy handles GET /api/study/:sessionId
// @Summary Get study session state
// @Tags Study
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /study/{sessionId} [get]
func (h *StudyHandler) GetStudy(c *fiber.Ctx) error {
	id, s, _, err := h.session(c)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(studyState(id, s))
}

// Reveal handles POST /api/study/:sessionId/reveal
func (h *StudyHandler) Reveal(c *fiber.Ctx) error {
	id, s, _, err := h.session(c)
	if err != nil {
		return err
	}
	s.Reveal()
	return c.Status(fiber.StatusOK).JSON(studyState(id, s))
}

// Hide handles POST /api/study/:sessionId/hide. Hiding an already
// hidden card is a no-op.
func (h *StudyHandler) Hide(c *fiber.Ctx) error {
	id, s, _, err := h.session(c)
	if err != nil {
		return err
	}
	s.Hide()
	return c.Status(fiber.StatusOK).JSON(studyState(id, s))
}

// Answer handles POST /api/study/:sessionId/answer
// @Summary Grade the current card
// @Description Record correct/incorrect for the revealed card and advance; grading the last card completes the sitting and persists its result
// @Tags Study
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param body body object true "Outcome: {outcome: correct|incorrect}"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /study/{sessionId}/answer [post]
func (h *StudyHandler) Answer(c *fiber.Ctx) error {
	id, s, _, err := h.session(c)
	if err != nil {
		return err
	}

	var body struct {
		Outcome string `json:"outcome"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	var outcome study.Outcome
	switch body.Outcome {
	case "correct":
		outcome = study.OutcomeCorrect
	case "incorrect":
		outcome = study.OutcomeIncorrect
	default:
		return utils.ErrorResponse(c, "Outcome must be \"correct\" or \"incorrect\"",
			fiber.StatusBadRequest, "validation.input")
	}

	recordErr := s.RecordOutcome(outcome)

	var recorderErr *study.RecorderError
	switch {
	case recordErr == nil:
		return c.Status(fiber.StatusOK).JSON(studyState(id, s))

	case errors.As(recordErr, &recorderErr):
		// The sitting completed; persistence failed. Surface a warning
		// without blocking the completion screen, and do not retry.
		state := studyState(id, s)
		state["warning"] = "Your results could not be saved"
		return c.Status(fiber.StatusOK).JSON(state)

	case errors.Is(recordErr, study.ErrPrematureAnswer):
		return utils.ServiceErrorResponse(c,
			types.NewServiceError(types.ErrPrematureAnswer, "Reveal the answer before grading"))

	default:
		return utils.ErrorResponse(c, recordErr.Error(), fiber.StatusConflict, "study.answer")
	}
}

// Next handles POST /api/study/:sessionId/next, skipping the current
// card without grading it. Skipping the last card completes the sitting.
func (h *StudyHandler) Next(c *fiber.Ctx) error {
	id, s, _, err := h.session(c)
	if err != nil {
		return err
	}

	nextErr := s.GoToNext()

	var recorderErr *study.RecorderError
	switch {
	case nextErr == nil:
		return c.Status(fiber.StatusOK).JSON(studyState(id, s))
	case errors.As(nextErr, &recorderErr):
		state := studyState(id, s)
		state["warning"] = "Your results could not be saved"
		return c.Status(fiber.StatusOK).JSON(state)
	default:
		return utils.ErrorResponse(c, nextErr.Error(), fiber.StatusConflict, "study.next")
	}
}

// Previous handles POST /api/study/:sessionId/previous. A no-op on the
// first card; the outcome of the card being left is kept.
func (h *StudyHandler) Previous(c *fiber.Ctx) error {
	id, s, _, err := h.session(c)
	if err != nil {
		return err
	}
	s.GoToPrevious()
	return c.Status(fiber.StatusOK).JSON(studyState(id, s))
}

// Shuffle handles POST /api/study/:sessionId/shuffle, discarding
// in-progress outcomes for the new ordering.
func (h *StudyHandler) Shuffle(c *fiber.Ctx) error {
	id, s, _, err := h.session(c)
	if err != nil {
		return err
	}

	if err := s.Shuffle(); err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, "study.shuffle")
	}
	return c.Status(fiber.StatusOK).JSON(studyState(id, s))
}

// Restart handles POST /api/study/:sessionId/restart, keeping the
// current card order.
func (h *StudyHandler) Restart(c *fiber.Ctx) error {
	id, s, _, err := h.session(c)
	if err != nil {
		return err
	}
	s.Restart()
	return c.Status(fiber.StatusOK).JSON(studyState(id, s))
}

// EndStudy handles DELETE /api/study/:sessionId, disposing the sitting
func (h *StudyHandler) EndStudy(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	user, serr := services.EnsureUser(h.DB, ident)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	if !h.Sessions.Remove(c.Params("sessionId"), user.ID) {
		return utils.ServiceErrorResponse(c,
			types.NewServiceError(types.ErrNotFoundOrDenied, "Study session not found or access denied"))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// SaveSession handles POST /api/study-sessions, the direct recorder
// surface for client-computed tallies.
// @Summary Record a completed study session
// @Tags Study
// @Accept json
// @Produce json
// @Param body body services.SaveSessionInput true "Completed session tallies"
// @Success 201 {object} models.StudySession
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /study-sessions [post]
func (h *StudyHandler) SaveSession(c *fiber.Ctx) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized, "authorization.user")
	}

	var input services.SaveSessionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	if _, serr := services.EnsureUser(h.DB, ident); serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	session, serr := services.SaveStudySession(h.DB, ident.ExternalID, input)
	if serr != nil {
		return utils.ServiceErrorResponse(c, serr)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}
