package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/studydeck/studydeck/internal/models"
	"github.com/studydeck/studydeck/internal/types"
	"gorm.io/gorm"
)

// GeneratedCard is the fixed output shape of the external generator
type GeneratedCard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// CardGenerator is the opaque external text-generation boundary. The
// core only requires its output to be a non-empty list of front/back
// pairs.
type CardGenerator interface {
	GenerateCards(ctx context.Context, name, description string) ([]GeneratedCard, error)
}

// HTTPGenerator calls a generation service over HTTP
type HTTPGenerator struct {
	URL    string
	Client *http.Client
}

// NewHTTPGenerator builds a generator client for the given endpoint
func NewHTTPGenerator(url string) *HTTPGenerator {
	return &HTTPGenerator{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// GenerateCards requests front/back pairs for a deck's name and description
func (g *HTTPGenerator) GenerateCards(ctx context.Context, name, description string) ([]GeneratedCard, error) {
	payload, err := json.Marshal(map[string]string{
		"name":        name,
		"description": description,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("generator returned %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Cards []GeneratedCard `json:"cards"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode generator response: %w", err)
	}

	return out.Cards, nil
}

// GenerateDeckCards invokes the generator for an owned deck and inserts
// the returned cards. Requires the ai_generation entitlement and a
// non-empty deck description before the generator is called.
func GenerateDeckCards(db *gorm.DB, user *models.User, ent EntitlementResolver, gen CardGenerator, deckID string) ([]models.Card, *types.ServiceError) {
	if !ent.HasFeature(user, FeatureAIGeneration) {
		return nil, types.NewServiceError(types.ErrLimitReached,
			"Card generation requires a Pro subscription.")
	}

	deck, serr := ownedDeck(db, user.ID, deckID)
	if serr != nil {
		return nil, serr
	}

	if strings.TrimSpace(deck.Description) == "" {
		return nil, types.NewValidationError(map[string][]string{
			"description": {"Add a description to the deck before generating cards"},
		})
	}

	if gen == nil {
		return nil, types.NewServiceError(types.ErrOperationFailed, "Card generation is not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	generated, err := gen.GenerateCards(ctx, deck.Name, deck.Description)
	if err != nil {
		log.Printf("Card generation failed for deck %s: %v", deckID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to generate cards")
	}

	cards := make([]models.Card, 0, len(generated))
	for _, g := range generated {
		if strings.TrimSpace(g.Front) == "" || strings.TrimSpace(g.Back) == "" {
			continue
		}
		cards = append(cards, models.Card{
			DeckID: deckID,
			Front:  truncate(g.Front, models.CardSideMaxLen),
			Back:   truncate(g.Back, models.CardSideMaxLen),
		})
	}
	if len(cards) == 0 {
		return nil, types.NewServiceError(types.ErrOperationFailed, "Generator returned no usable cards")
	}

	if err := db.Create(&cards).Error; err != nil {
		log.Printf("Generated card insert failed for deck %s: %v", deckID, err)
		return nil, types.NewServiceError(types.ErrPersistence, "Failed to save generated cards")
	}

	return cards, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
