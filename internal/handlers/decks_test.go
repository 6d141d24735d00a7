package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/studydeck/studydeck/internal/database"
	"github.com/studydeck/studydeck/internal/handlers"
	"github.com/studydeck/studydeck/internal/middleware"
	"github.com/studydeck/studydeck/internal/services"
	"github.com/studydeck/studydeck/internal/study"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database with foreign key
// enforcement.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?_pragma=foreign_keys(1)"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// stubAuth injects a fixed identity the way the session middleware would
func stubAuth(externalID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.IdentityKey, &services.Identity{
			ExternalID: externalID,
			Email:      externalID + "@example.com",
		})
		return c.Next()
	}
}

// newDeckApp wires the deck and card routes behind a stub identity
func newDeckApp(db *gorm.DB, externalID string) *fiber.App {
	app := fiber.New()
	auth := stubAuth(externalID)

	deckHandler := &handlers.DeckHandler{
		DB:           db,
		Entitlements: &services.PlanResolver{},
		FreeLimit:    3,
	}
	cardHandler := &handlers.CardHandler{DB: db}

	app.Get("/api/decks", auth, deckHandler.ListDecks)
	app.Post("/api/decks", auth, deckHandler.CreateDeck)
	app.Get("/api/decks/:deckId", auth, deckHandler.GetDeck)
	app.Put("/api/decks/:deckId", auth, deckHandler.UpdateDeck)
	app.Delete("/api/decks/:deckId", auth, deckHandler.DeleteDeck)
	app.Get("/api/decks/:deckId/cards", auth, cardHandler.ListCards)
	app.Post("/api/decks/:deckId/cards", auth, cardHandler.CreateCard)

	return app
}

// newStudyApp wires the study routes behind a stub identity
func newStudyApp(db *gorm.DB, sessions *study.Manager, externalID string) *fiber.App {
	app := fiber.New()
	auth := stubAuth(externalID)

	h := &handlers.StudyHandler{DB: db, Sessions: sessions}
	app.Post("/api/decks/:deckId/study", auth, h.StartStudy)
	app.Get("/api/study/:sessionId", auth, h.GetStudy)
	app.Delete("/api/study/:sessionId", auth, h.EndStudy)
	app.Post("/api/study/:sessionId/reveal", auth, h.Reveal)
	app.Post("/api/study/:sessionId/hide", auth, h.Hide)
	app.Post("/api/study/:sessionId/answer", auth, h.Answer)
	app.Post("/api/study/:sessionId/next", auth, h.Next)
	app.Post("/api/study/:sessionId/previous", auth, h.Previous)
	app.Post("/api/study/:sessionId/shuffle", auth, h.Shuffle)
	app.Post("/api/study/:sessionId/restart", auth, h.Restart)
	app.Post("/api/study-sessions", auth, h.SaveSession)

	return app
}

// doJSON issues a JSON request through the fiber test harness and
// returns the decoded body with the status code under __status.
func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) map[string]interface{} {
	t.Helper()

	var reqBody *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute %s %s: %v", method, path, err)
	}

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if result == nil {
		result = map[string]interface{}{}
	}
	result["__status"] = resp.StatusCode
	return result
}

func TestDeckRoutesCRUD(t *testing.T) {
	db := setupTestDB(t)
	app := newDeckApp(db, "ext-http")

	// Create
	created := doJSON(t, app, "POST", "/api/decks", map[string]string{
		"name":        "Spanish",
		"description": "Vocabulary",
	})
	if created["__status"] != 201 {
		t.Fatalf("Expected 201, got %v", created["__status"])
	}
	deckID, _ := created["ID"].(string)
	if deckID == "" {
		t.Fatalf("Expected deck id in response, got %v", created)
	}

	// List with card counts
	if _, ok := doJSON(t, app, "POST", "/api/decks/"+deckID+"/cards", map[string]string{
		"front": "hola", "back": "hello",
	})["ID"].(string); !ok {
		t.Fatal("Expected card created")
	}

	req := httptest.NewRequest("GET", "/api/decks", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to list decks: %v", err)
	}
	var list []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(list) != 1 || list[0]["cardCount"] != float64(1) {
		t.Errorf("Expected one deck with one card, got %v", list)
	}

	// Update
	updated := doJSON(t, app, "PUT", "/api/decks/"+deckID, map[string]string{
		"name": "Spanish 101", "description": "Vocabulary",
	})
	if updated["__status"] != 200 || updated["Name"] != "Spanish 101" {
		t.Errorf("Expected updated deck, got %v", updated)
	}

	// Delete
	deleted := doJSON(t, app, "DELETE", "/api/decks/"+deckID, nil)
	if deleted["__status"] != 200 || deleted["ok"] != true {
		t.Errorf("Expected ok delete, got %v", deleted)
	}
}

func TestDeckRouteValidationEnvelope(t *testing.T) {
	db := setupTestDB(t)
	app := newDeckApp(db, "ext-http-val")

	result := doJSON(t, app, "POST", "/api/decks", map[string]string{"name": "  "})
	if result["__status"] != 400 {
		t.Fatalf("Expected 400, got %v", result["__status"])
	}
	if result["ok"] != false || result["type"] != "validation" {
		t.Errorf("Expected validation envelope, got %v", result)
	}
	if result["fields"] == nil {
		t.Error("Expected violated fields in envelope")
	}
}

func TestDeckLimitEnvelope(t *testing.T) {
	db := setupTestDB(t)
	app := newDeckApp(db, "ext-http-limit")

	for i := 0; i < 3; i++ {
		created := doJSON(t, app, "POST", "/api/decks", map[string]string{
			"name": fmt.Sprintf("Deck %d", i),
		})
		if created["__status"] != 201 {
			t.Fatalf("Failed to create deck %d: %v", i, created)
		}
	}

	result := doJSON(t, app, "POST", "/api/decks", map[string]string{"name": "Overflow"})
	if result["__status"] != 402 {
		t.Fatalf("Expected 402, got %v", result["__status"])
	}
	if result["limitReached"] != true {
		t.Errorf("Expected limitReached flag, got %v", result)
	}
}

func TestDeckRoutesCrossUserDenied(t *testing.T) {
	db := setupTestDB(t)
	ownerApp := newDeckApp(db, "ext-http-owner")
	otherApp := newDeckApp(db, "ext-http-other")

	created := doJSON(t, ownerApp, "POST", "/api/decks", map[string]string{"name": "Private"})
	deckID, _ := created["ID"].(string)
	if deckID == "" {
		t.Fatalf("Expected deck id, got %v", created)
	}

	got := doJSON(t, otherApp, "GET", "/api/decks/"+deckID, nil)
	if got["__status"] != 404 {
		t.Errorf("Expected 404 for foreign deck, got %v", got["__status"])
	}
	if got["type"] != "not_found_or_denied" {
		t.Errorf("Expected not_found_or_denied type, got %v", got["type"])
	}
}
