package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"ai-chat-backend/internal/handlers"
	"ai-chat-backend/internal/middleware"
	"ai-chat-backend/internal/realtime"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	conversationHandler *handlers.ConversationHandler,
	chatHandler *handlers.ChatHandler,
	hub *realtime.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// ──── Conversation Routes ────
		r.Route("/conversations", func(r chi.Router) {
			// The realtime stream authenticates via token query param
			r.Get("/{id}/stream", hub.HandleStream)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/", conversationHandler.Create)
				r.Get("/", conversationHandler.List)
				r.Get("/{id}/messages", conversationHandler.Messages)
				r.Delete("/{id}", conversationHandler.Delete)
			})
		})

		// ──── Chat Route ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/chat", chatHandler.SendMessage)
		})
	})

	return r
}
