package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/studydeck/studydeck/internal/config"
	"github.com/studydeck/studydeck/internal/database"
	"github.com/studydeck/studydeck/internal/handlers"
	"github.com/studydeck/studydeck/internal/middleware"
	"github.com/studydeck/studydeck/internal/services"
	"github.com/studydeck/studydeck/internal/study"
	"github.com/studydeck/studydeck/internal/types"

	_ "github.com/studydeck/studydeck/docs/api" // Swagger docs
)

// studySessionMaxAge bounds how long an untouched study sitting is kept
const studySessionMaxAge = 2 * time.Hour

// @title StudyDeck API
// @version 1.0.0
// @description Flashcard study service with deck management, study sessions, and statistics
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/studydeck/studydeck

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("studydeck")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	sessions := study.NewManager()
	entitlements := &services.PlanResolver{}
	var generator services.CardGenerator
	if cfg.GeneratorURL != "" {
		generator = services.NewHTTPGenerator(cfg.GeneratorURL)
	}

	deckHandler := &handlers.DeckHandler{
		DB:           db,
		Entitlements: entitlements,
		Generator:    generator,
		FreeLimit:    cfg.FreeDeckLimit,
	}
	cardHandler := &handlers.CardHandler{DB: db}
	studyHandler := &handlers.StudyHandler{DB: db, Sessions: sessions}
	statsHandler := &handlers.StatsHandler{DB: db}
	webhookHandler := &handlers.WebhookHandler{DB: db, Secret: cfg.WebhookSecret}
	healthHandler := &handlers.HealthHandler{Cfg: cfg, DB: db}

	// Health and webhook routes (no session required; the webhook is
	// authenticated by its signature)
	api.Get("/health", healthHandler.GetHealth)
	api.Post("/webhooks/identity", webhookHandler.HandleIdentityEvent)

	// Deck routes
	auth := middleware.AuthUser(cfg)
	api.Get("/decks", auth, deckHandler.ListDecks)
	api.Post("/decks", auth, deckHandler.CreateDeck)
	api.Get("/decks/:deckId", auth, deckHandler.GetDeck)
	api.Put("/decks/:deckId", auth, deckHandler.UpdateDeck)
	api.Delete("/decks/:deckId", auth, deckHandler.DeleteDeck)
	api.Post("/decks/:deckId/generate", auth, deckHandler.GenerateCards)

	// Card routes
	api.Get("/decks/:deckId/cards", auth, cardHandler.ListCards)
	api.Post("/decks/:deckId/cards", auth, cardHandler.CreateCard)
	api.Put("/decks/:deckId/cards/:cardId", auth, cardHandler.UpdateCard)
	api.Delete("/decks/:deckId/cards/:cardId", auth, cardHandler.DeleteCard)

	// Study routes
	api.Post("/decks/:deckId/study", auth, studyHandler.StartStudy)
	api.Get("/study/:sessionId", auth, studyHandler.GetStudy)
	api.Delete("/study/:sessionId", auth, studyHandler.EndStudy)
	api.Post("/study/:sessionId/reveal", auth, studyHandler.Reveal)
	api.Post("/study/:sessionId/hide", auth, studyHandler.Hide)
	api.Post("/study/:sessionId/answer", auth, studyHandler.Answer)
	api.Post("/study/:sessionId/next", auth, studyHandler.Next)
	api.Post("/study/:sessionId/previous", auth, studyHandler.Previous)
	api.Post("/study/:sessionId/shuffle", auth, studyHandler.Shuffle)
	api.Post("/study/:sessionId/restart", auth, studyHandler.Restart)

	// Session and stats routes
	api.Post("/study-sessions", auth, studyHandler.SaveSession)
	api.Get("/stats", auth, statsHandler.GetStats)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Abandoned study sittings are pruned on a timer
	pruneDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessions.Prune(studySessionMaxAge); n > 0 {
					log.Printf("Pruned %d abandoned study sessions", n)
				}
			case <-pruneDone:
				return
			}
		}
	}()

	log.Printf("Authorizer will be initialized on first authenticated request")

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		close(pruneDone)
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if e, ok := err.(*types.CustomError); ok {
		code = e.Code
		message = e.Message
		errorType = e.Type
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
