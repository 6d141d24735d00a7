package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/studydeck/studydeck/internal/models"
	"github.com/studydeck/studydeck/internal/types"
	"gorm.io/gorm"
)

// CardInput is the user-supplied shape for card create and update
type CardInput struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

func validateCardInput(in CardInput) map[string][]string {
	fields := make(map[string][]string)

	if strings.TrimSpace(in.Front) == "" {
		fields["front"] = append(fields["front"], "Front content is required")
	}
	if len(in.Front) > models.CardSideMaxLen {
		fields["front"] = append(fields["front"],
			fmt.Sprintf("Front content must be at most %d characters", models.CardSideMaxLen))
	}
	if strings.TrimSpace(in.Back) == "" {
		fields["back"] = append(fields["back"], "Back content is required")
	}
	if len(in.Back) > models.CardSideMaxLen {
		fields["back"] = append(fields["back"],
			fmt.Sprintf("Back content must be at most %d characters", models.CardSideMaxLen))
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// cardInDeck checks the card belongs to the path-supplied deck. This is
// independent of the deck-ownership check so a card cannot be reached
// through a sibling deck id.
func cardInDeck(db *gorm.DB, deckID, cardID string) (*models.Card, *types.ServiceError) {
	var card models.Card
	err := db.Where("id = ? AND deck_id = ?", cardID, deckID).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewServiceError(types.ErrNotFoundOrDenied, "Card not found or access denied")
		}
		log.Printf("Card lookup failed: %v", err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to load card")
	}
	return &card, nil
}

// CreateCard adds a card to an owned deck
func CreateCard(db *gorm.DB, userID, deckID string, in CardInput) (*models.Card, *types.ServiceError) {
	if fields := validateCardInput(in); fields != nil {
		return nil, types.NewValidationError(fields)
	}

	if _, serr := ownedDeck(db, userID, deckID); serr != nil {
		return nil, serr
	}

	card := models.Card{
		DeckID: deckID,
		Front:  in.Front,
		Back:   in.Back,
	}
	if err := db.Create(&card).Error; err != nil {
		log.Printf("Card create failed for deck %s: %v", deckID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to create card")
	}

	return &card, nil
}

// UpdateCard updates a card behind both the deck-ownership and the
// card-in-deck checks.
func UpdateCard(db *gorm.DB, userID, deckID, cardID string, in CardInput) (*models.Card, *types.ServiceError) {
	if fields := validateCardInput(in); fields != nil {
		return nil, types.NewValidationError(fields)
	}

	if _, serr := ownedDeck(db, userID, deckID); serr != nil {
		return nil, serr
	}

	card, serr := cardInDeck(db, deckID, cardID)
	if serr != nil {
		return nil, serr
	}

	updates := map[string]interface{}{
		"front": in.Front,
		"back":  in.Back,
	}
	if err := db.Model(card).Updates(updates).Error; err != nil {
		log.Printf("Card update failed for card %s: %v", cardID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to update card")
	}

	return card, nil
}

// DeleteCard removes a card behind both ownership checks
func DeleteCard(db *gorm.DB, userID, deckID, cardID string) *types.ServiceError {
	if _, serr := ownedDeck(db, userID, deckID); serr != nil {
		return serr
	}

	card, serr := cardInDeck(db, deckID, cardID)
	if serr != nil {
		return serr
	}

	if err := db.Delete(card).Error; err != nil {
		log.Printf("Card delete failed for card %s: %v", cardID, err)
		return types.NewServiceError(types.ErrOperationFailed, "Failed to delete card")
	}

	return nil
}

// ListCards returns an owned deck's cards, latest updated first
func ListCards(db *gorm.DB, userID, deckID string) ([]models.Card, *types.ServiceError) {
	if _, serr := ownedDeck(db, userID, deckID); serr != nil {
		return nil, serr
	}

	var cards []models.Card
	if err := db.Where("deck_id = ?", deckID).Order("updated_at DESC").Find(&cards).Error; err != nil {
		log.Printf("Card list failed for deck %s: %v", deckID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to list cards")
	}

	return cards, nil
}
