package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ai-chat-backend/internal/middleware"
	"ai-chat-backend/internal/models"
	"ai-chat-backend/internal/services"
)

type ConversationHandler struct {
	conversationService *services.ConversationService
}

func NewConversationHandler(conversationService *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	conversation, err := h.conversationService.Create(r.Context(), userID, req.Title)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, conversation)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conversations, err := h.conversationService.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if conversations == nil {
		conversations = []*models.Conversation{}
	}

	writeJSON(w, http.StatusOK, conversations)
}

func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	messages, err := h.conversationService.Messages(r.Context(), id, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	if err := h.conversationService.Delete(r.Context(), id, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted"})
}
