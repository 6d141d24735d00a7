package services

import "github.com/studydeck/studydeck/internal/models"

// Feature names resolved from a user's subscription plan.
const (
	FeatureUnlimitedDecks = "unlimited_decks"
	FeatureAIGeneration   = "ai_generation"
)

// EntitlementResolver is the opaque capability predicate injected into
// the deck and generation services, keeping them testable without a
// billing integration.
type EntitlementResolver interface {
	HasFeature(user *models.User, feature string) bool
}

// PlanResolver derives features from the entitlement plan stored on the
// user row (synced from the identity provider).
type PlanResolver struct{}

// HasFeature reports whether the user's plan grants the feature
func (PlanResolver) HasFeature(user *models.User, feature string) bool {
	if user == nil {
		return false
	}

	switch feature {
	case FeatureUnlimitedDecks, FeatureAIGeneration:
		return user.Plan == models.PlanPro
	default:
		return false
	}
}
