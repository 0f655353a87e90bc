package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/juris-labs/legal-assistant-backend/internal/config"
	"github.com/juris-labs/legal-assistant-backend/internal/handlers"
	"github.com/juris-labs/legal-assistant-backend/internal/ragclient"
	"github.com/juris-labs/legal-assistant-backend/internal/relay"
	"github.com/juris-labs/legal-assistant-backend/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	// Pick the store: MongoDB when configured, in-process otherwise.
	var db store.Store
	if cfg.MongoURI != "" {
		mongoStore, err := store.ConnectMongo(cfg.MongoURI, cfg.DBName)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer mongoStore.Close()
		db = mongoStore
		log.Println("Connected to MongoDB")
	} else {
		db = store.NewMemoryStore()
		log.Println("MONGODB_URI not set, using in-memory store")
	}

	gateway := ragclient.New(cfg.RAG.BaseURL, cfg.RAG.ForwardTimeout)
	health := ragclient.NewHealthCache(gateway, cfg.RAG.HealthInterval, cfg.RAG.ProbeTimeout)
	messageRelay := relay.New(db, gateway, health, cfg.RAG.RetryMax, cfg.RAG.RetryBackoff)

	authHandler := &handlers.AuthHandler{Store: db, JWTSecret: cfg.JWTSecret}
	chatHandler := &handlers.ChatHandler{Store: db, Relay: messageRelay}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		// RAG responses can be large once debug and evaluation payloads ride along.
		BodyLimit: 50 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.FrontendURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	// Routes
	app.Get("/health", handlers.Health)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Put("/language", authHandler.Middleware, authHandler.UpdateLanguage)

	chats := api.Group("/chats", authHandler.Middleware)
	chats.Get("/", chatHandler.ListChats)
	chats.Post("/", chatHandler.CreateChat)
	chats.Get("/:id", chatHandler.GetChat)
	chats.Post("/:id/messages", chatHandler.AddMessage)
	chats.Delete("/:id", chatHandler.DeleteChat)

	log.Printf("RAG service URL: %s", cfg.RAG.BaseURL)
	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
