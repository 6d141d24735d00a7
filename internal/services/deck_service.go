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

// DeckInput is the user-supplied shape for deck create and update
type DeckInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DeckSummary is a deck row with its card count, for listings
type DeckSummary struct {
	models.Deck
	CardCount int64 `json:"cardCount"`
}

func validateDeckInput(in DeckInput) map[string][]string {
	fields := make(map[string][]string)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		fields["name"] = append(fields["name"], "Deck name is required")
	}
	if len(in.Name) > models.DeckNameMaxLen {
		fields["name"] = append(fields["name"],
			fmt.Sprintf("Deck name must be at most %d characters", models.DeckNameMaxLen))
	}
	if len(in.Description) > models.DeckDescriptionMaxLen {
		fields["description"] = append(fields["description"],
			fmt.Sprintf("Description must be at most %d characters", models.DeckDescriptionMaxLen))
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ownedDeck is the one authorization predicate for deck access. It
// deliberately does not distinguish a missing deck from someone else's
// deck, so existence never leaks across identities.
func ownedDeck(db *gorm.DB, userID, deckID string) (*models.Deck, *types.ServiceError) {
	var deck models.Deck
	err := db.Where("id = ? AND user_id = ?", deckID, userID).First(&deck).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewServiceError(types.ErrNotFoundOrDenied, "Deck not found or access denied")
		}
		log.Printf("Deck lookup failed: %v", err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to load deck")
	}
	return &deck, nil
}

// CreateDeck creates a deck for user. Free-plan accounts are capped at
// freeLimit decks; hitting the cap returns a distinguished limit_reached
// result so the caller can offer an upgrade path.
func CreateDeck(db *gorm.DB, user *models.User, ent EntitlementResolver, freeLimit int, in DeckInput) (*models.Deck, *types.ServiceError) {
	if fields := validateDeckInput(in); fields != nil {
		return nil, types.NewValidationError(fields)
	}

	if !ent.HasFeature(user, FeatureUnlimitedDecks) {
		var count int64
		if err := db.Model(&models.Deck{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
			log.Printf("Deck count failed for user %s: %v", user.ID, err)
			return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to create deck")
		}
		if count >= int64(freeLimit) {
			return nil, types.NewServiceError(types.ErrLimitReached,
				"Deck limit reached. Upgrade to Pro for unlimited decks.")
		}
	}

	deck := models.Deck{
		UserID:      user.ID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	}
	if err := db.Create(&deck).Error; err != nil {
		log.Printf("Deck create failed for user %s: %v", user.ID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to create deck")
	}

	return &deck, nil
}

// UpdateDeck updates an owned deck's name and description
func UpdateDeck(db *gorm.DB, userID, deckID string, in DeckInput) (*models.Deck, *types.ServiceError) {
	if fields := validateDeckInput(in); fields != nil {
		return nil, types.NewValidationError(fields)
	}

	deck, serr := ownedDeck(db, userID, deckID)
	if serr != nil {
		return nil, serr
	}

	updates := map[string]interface{}{
		"name":        strings.TrimSpace(in.Name),
		"description": in.Description,
	}
	if err := db.Model(deck).Updates(updates).Error; err != nil {
		log.Printf("Deck update failed for deck %s: %v", deckID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to update deck")
	}

	return deck, nil
}

// DeleteDeck deletes an owned deck. Cards and study sessions go with it
// through the store-level cascade.
func DeleteDeck(db *gorm.DB, userID, deckID string) *types.ServiceError {
	deck, serr := ownedDeck(db, userID, deckID)
	if serr != nil {
		return serr
	}

	if err := db.Delete(deck).Error; err != nil {
		log.Printf("Deck delete failed for deck %s: %v", deckID, err)
		return types.NewServiceError(types.ErrOperationFailed, "Failed to delete deck")
	}

	return nil
}

// ListDecks returns the caller's decks with card counts, most recently
// updated first.
func ListDecks(db *gorm.DB, userID string) ([]DeckSummary, *types.ServiceError) {
	var decks []models.Deck
	if err := db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&decks).Error; err != nil {
		log.Printf("Deck list failed for user %s: %v", userID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to list decks")
	}

	summaries := make([]DeckSummary, 0, len(decks))
	for _, deck := range decks {
		var count int64
		if err := db.Model(&models.Card{}).Where("deck_id = ?", deck.ID).Count(&count).Error; err != nil {
			log.Printf("Card count failed for deck %s: %v", deck.ID, err)
			return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to list decks")
		}
		summaries = append(summaries, DeckSummary{Deck: deck, CardCount: count})
	}

	return summaries, nil
}

// GetDeck returns an owned deck with its cards, latest updated first
func GetDeck(db *gorm.DB, userID, deckID string) (*models.Deck, *types.ServiceError) {
	deck, serr := ownedDeck(db, userID, deckID)
	if serr != nil {
		return nil, serr
	}

	if err := db.Where("deck_id = ?", deckID).Order("updated_at DESC").Find(&deck.Cards).Error; err != nil {
		log.Printf("Card load failed for deck %s: %v", deckID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to load deck")
	}

	return deck, nil
}
