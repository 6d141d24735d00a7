package database_test

import (
	"testing"

	"github.com/studydeck/studydeck/internal/config"
	"github.com/studydeck/studydeck/internal/database"
	"github.com/studydeck/studydeck/internal/models"
	"github.com/studydeck/studydeck/internal/services"
	"github.com/studydeck/studydeck/internal/testenv"
	"gorm.io/gorm"
)

// TestWithMariaDB exercises the persistence layer against a real
// MariaDB container: auto-migration over the seeded schema, the deck
// and card services, and the store-level delete cascade.
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if !testenv.DockerAvailable() {
		t.Skip("Skipping integration test: docker not available")
	}

	stack, err := testenv.StartDatabase(t)
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer stack.Terminate(t)

	cfg := &config.Config{
		DBType:            "mysql",
		DBHost:            stack.DBHost,
		DBPort:            stack.DBPort,
		DBDatabase:        testenv.AppDatabase,
		DBUser:            "root",
		DBPassword:        testenv.RootPassword,
		DBConnectionLimit: 5,
	}

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Run("DeckAndCardRoundTrip", func(t *testing.T) {
		testDeckAndCardRoundTrip(t, db)
	})

	t.Run("DeleteCascade", func(t *testing.T) {
		testDeleteCascade(t, db)
	})

	t.Run("HealthCheck", func(t *testing.T) {
		cfg.AuthzURL = "http://localhost:9999" // Non-existent service
		result := services.HealthCheck(cfg, db)
		if result.Database != "ok" {
			t.Errorf("Expected database to be ok, got: %s", result.Database)
		}
		if result.Authorizer != "unreachable" {
			t.Errorf("Expected authorizer to be unreachable, got: %s", result.Authorizer)
		}
		if result.Status != "unhealthy" {
			t.Errorf("Expected status to be unhealthy, got: %s", result.Status)
		}
	})
}

func testDeckAndCardRoundTrip(t *testing.T, db *gorm.DB) {
	user, serr := services.UpsertUserByExternalID(db, services.UserUpsertInput{
		ExternalID: "ext-roundtrip",
		Email:      "roundtrip@example.com",
	})
	if serr != nil {
		t.Fatalf("Failed to provision user: %v", serr)
	}

	ent := &services.PlanResolver{}
	deck, serr := services.CreateDeck(db, user, ent, 3, services.DeckInput{
		Name:        "Spanish Verbs",
		Description: "Common irregular verbs",
	})
	if serr != nil {
		t.Fatalf("Failed to create deck: %v", serr)
	}

	card, serr := services.CreateCard(db, user.ID, deck.ID, services.CardInput{
		Front: "ser",
		Back:  "to be",
	})
	if serr != nil {
		t.Fatalf("Failed to create card: %v", serr)
	}

	got, serr := services.GetDeck(db, user.ID, deck.ID)
	if serr != nil {
		t.Fatalf("Failed to retrieve deck: %v", serr)
	}
	if len(got.Cards) != 1 || got.Cards[0].ID != card.ID {
		t.Errorf("Expected deck to contain card %s, got %+v", card.ID, got.Cards)
	}

	summaries, serr := services.ListDecks(db, user.ID)
	if serr != nil {
		t.Fatalf("Failed to list decks: %v", serr)
	}
	if len(summaries) != 1 || summaries[0].CardCount != 1 {
		t.Errorf("Expected one deck with one card, got %+v", summaries)
	}
}

func testDeleteCascade(t *testing.T, db *gorm.DB) {
	user, serr := services.UpsertUserByExternalID(db, services.UserUpsertInput{
		ExternalID: "ext-cascade",
		Email:      "cascade@example.com",
	})
	if serr != nil {
		t.Fatalf("Failed to provision user: %v", serr)
	}

	ent := &services.PlanResolver{}
	deck, serr := services.CreateDeck(db, user, ent, 3, services.DeckInput{Name: "Doomed"})
	if serr != nil {
		t.Fatalf("Failed to create deck: %v", serr)
	}
	if _, serr := services.CreateCard(db, user.ID, deck.ID, services.CardInput{
		Front: "q", Back: "a",
	}); serr != nil {
		t.Fatalf("Failed to create card: %v", serr)
	}
	if _, serr := services.SaveStudySession(db, user.ExternalID, services.SaveSessionInput{
		DeckID:             deck.ID,
		CorrectCount:       1,
		IncorrectCount:     0,
		TotalCards:         1,
		AccuracyPercentage: 100,
	}); serr != nil {
		t.Fatalf("Failed to save session: %v", serr)
	}

	if serr := services.DeleteDeck(db, user.ID, deck.ID); serr != nil {
		t.Fatalf("Failed to delete deck: %v", serr)
	}

	var cards int64
	db.Model(&models.Card{}).Where("deck_id = ?", deck.ID).Count(&cards)
	if cards != 0 {
		t.Errorf("Expected cards to cascade on deck delete, %d remain", cards)
	}

	var sessions int64
	db.Model(&models.StudySession{}).Where("deck_id = ?", deck.ID).Count(&sessions)
	if sessions != 0 {
		t.Errorf("Expected sessions to cascade on deck delete, %d remain", sessions)
	}
}
