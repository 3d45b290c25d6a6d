package realtime

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"ai-chat-backend/internal/middleware"
	"ai-chat-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type conversationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
}

// Hub relays inserted message rows to WebSocket subscribers, scoped per
// conversation. The first subscriber of a conversation starts the Redis
// subscription for its channel; the last one to leave tears it down, so a
// client that switches conversations stops receiving stale-scope events.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	cancelFuncs map[uuid.UUID]context.CancelFunc

	redisClient      *redis.Client
	jwt              *middleware.JWTAuth
	conversationRepo conversationStore
}

func NewHub(redisClient *redis.Client, jwt *middleware.JWTAuth, conversationRepo conversationStore) *Hub {
	return &Hub{
		connections:      make(map[uuid.UUID][]*websocket.Conn),
		cancelFuncs:      make(map[uuid.UUID]context.CancelFunc),
		redisClient:      redisClient,
		jwt:              jwt,
		conversationRepo: conversationRepo,
	}
}

// HandleStream upgrades GET /conversations/{id}/stream to a WebSocket that
// delivers every message row inserted into that conversation.
func (h *Hub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}

	// Browsers can't set headers on WebSocket requests, so the token rides
	// in a query param.
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwt.VerifyToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversation, err := h.conversationRepo.GetByID(r.Context(), conversationID)
	if err != nil {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	if conversation.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.subscribe(conversationID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unsubscribe(conversationID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) subscribe(conversationID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[conversationID] = append(h.connections[conversationID], conn)

	// First subscriber for this conversation starts the Redis subscription
	if len(h.connections[conversationID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[conversationID] = cancel
		go h.relay(ctx, conversationID)
	}

	log.Printf("Stream subscribed: conversation %s (subscribers: %d)", conversationID, len(h.connections[conversationID]))
}

func (h *Hub) unsubscribe(conversationID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[conversationID]
	for i, c := range conns {
		if c == conn {
			h.connections[conversationID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[conversationID]) == 0 {
		delete(h.connections, conversationID)
		if cancel, ok := h.cancelFuncs[conversationID]; ok {
			cancel()
			delete(h.cancelFuncs, conversationID)
		}
	}

	log.Printf("Stream unsubscribed: conversation %s", conversationID)
}

func (h *Hub) relay(ctx context.Context, conversationID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, MessageChannel(conversationID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(conversationID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(conversationID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[conversationID] {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}
