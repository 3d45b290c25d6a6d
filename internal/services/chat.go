package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ai-chat-backend/internal/models"
)

type conversationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	Touch(ctx context.Context, id uuid.UUID) error
}

type messageStore interface {
	Create(ctx context.Context, m *models.Message) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error)
}

type insertNotifier interface {
	MessageInserted(ctx context.Context, m *models.Message)
}

// ChatService owns the message-exchange round trip: load history, call the
// provider, persist both turns, refresh conversation metadata.
type ChatService struct {
	conversationRepo conversationStore
	messageRepo      messageStore
	ai               Completer
	notifier         insertNotifier
}

func NewChatService(conversationRepo conversationStore, messageRepo messageStore, ai Completer, notifier insertNotifier) *ChatService {
	return &ChatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		ai:               ai,
		notifier:         notifier,
	}
}

// Exchange runs one user turn through the AI provider and persists the
// resulting turn pair. Each external call is attempted exactly once; calling
// Exchange twice with the same arguments stores two independent turn pairs.
func (s *ChatService) Exchange(ctx context.Context, conversationID, userID uuid.UUID, message string) (string, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &NotFoundError{Message: "Conversation not found"}
		}
		return "", &StoreError{Message: "Failed to load conversation"}
	}
	if conversation.UserID != userID {
		return "", &ForbiddenError{Message: "Access denied"}
	}

	history, err := s.messageRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return "", &StoreError{Message: "Failed to load conversation history"}
	}

	// Full history plus the new user turn, oldest first. No truncation;
	// the provider's own limit is the bound.
	sequence := make([]models.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		sequence = append(sequence, models.ChatMessage{Role: m.Role, Content: m.Content})
	}
	sequence = append(sequence, models.ChatMessage{Role: models.RoleUser, Content: message})

	reply, err := s.ai.Complete(ctx, sequence)
	if err != nil {
		return "", err
	}

	// User turn first so creation order reflects causal order.
	userMsg := &models.Message{
		ConversationID: conversationID,
		Role:           models.RoleUser,
		Content:        message,
	}
	if err := s.messageRepo.Create(ctx, userMsg); err != nil {
		log.Printf("Failed to save user message for conversation %s: %v", conversationID, err)
		return "", &StoreError{Message: "Failed to save message"}
	}
	s.notifier.MessageInserted(ctx, userMsg)

	assistantMsg := &models.Message{
		ConversationID: conversationID,
		Role:           models.RoleAssistant,
		Content:        reply,
	}
	if err := s.messageRepo.Create(ctx, assistantMsg); err != nil {
		// The transcript now has a user turn with no reply. Not repaired here.
		log.Printf("Failed to save assistant message for conversation %s, user turn %s is orphaned: %v",
			conversationID, userMsg.ID, err)
		return "", &StoreError{Message: "Failed to save message"}
	}
	s.notifier.MessageInserted(ctx, assistantMsg)

	// Metadata refresh failure is not worth failing the exchange over: the
	// reply is already generated and stored.
	if err := s.conversationRepo.Touch(ctx, conversationID); err != nil {
		log.Printf("Failed to update conversation %s timestamp: %v", conversationID, err)
	}

	return reply, nil
}
