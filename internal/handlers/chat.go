package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"ai-chat-backend/internal/middleware"
	"ai-chat-backend/internal/models"
)

type exchanger interface {
	Exchange(ctx context.Context, conversationID, userID uuid.UUID, message string) (string, error)
}

type ChatHandler struct {
	chatService exchanger
}

func NewChatHandler(chatService exchanger) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// SendMessage runs one exchange: the user turn goes in, the assistant reply
// comes back, both are persisted. Unlike the rest of the API, every failure
// here collapses to a 500 with a flat {"error": "..."} body, matching what
// the chat UI expects.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeChatError(w, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeChatError(w, "Message is required")
		return
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		writeChatError(w, "Invalid conversation ID")
		return
	}

	userID := middleware.GetUserID(r.Context())

	reply, err := h.chatService.Exchange(r.Context(), conversationID, userID, req.Message)
	if err != nil {
		writeChatError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Message:        reply,
		ConversationID: req.ConversationID,
	})
}

func writeChatError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusInternalServerError, models.ChatError{Error: message})
}
