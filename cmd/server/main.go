package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-chat-backend/internal/config"
	"ai-chat-backend/internal/database"
	"ai-chat-backend/internal/handlers"
	"ai-chat-backend/internal/middleware"
	"ai-chat-backend/internal/realtime"
	"ai-chat-backend/internal/repository"
	"ai-chat-backend/internal/router"
	"ai-chat-backend/internal/services"
)

func main() {
	log.Println("🚀 Starting AI Chat Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	conversationRepo := repository.NewConversationRepo(pool)
	messageRepo := repository.NewMessageRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	aiClient := services.NewAIClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, cfg.AITemperature, cfg.AIMaxTokens)
	publisher := realtime.NewPublisher(redisClients.Publisher)
	authService := services.NewAuthService(userRepo, jwtAuth)
	conversationService := services.NewConversationService(conversationRepo, messageRepo)
	chatService := services.NewChatService(conversationRepo, messageRepo, aiClient, publisher)
	log.Printf("✓ AI provider client ready (model %s)", cfg.AIModel)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	conversationHandler := handlers.NewConversationHandler(conversationService)
	chatHandler := handlers.NewChatHandler(chatService)

	// ──── Step 5: Start Realtime Hub ────
	hub := realtime.NewHub(redisClients.Subscriber, jwtAuth, conversationRepo)
	log.Println("✓ Realtime hub started")

	// ──── Step 6: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		conversationHandler,
		chatHandler,
		hub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // provider calls are synchronous
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ AI Chat Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/conversations/{id}/stream", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
