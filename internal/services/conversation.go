package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ai-chat-backend/internal/models"
)

// titleMaxLen matches the sidebar title derivation: the first message,
// truncated.
const titleMaxLen = 50

type conversationRepository interface {
	Create(ctx context.Context, c *models.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ConversationService struct {
	conversationRepo conversationRepository
	messageRepo      messageStore
}

func NewConversationService(conversationRepo conversationRepository, messageRepo messageStore) *ConversationService {
	return &ConversationService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
	}
}

// DeriveTitle turns the first message of a conversation into its title.
func DeriveTitle(firstMessage string) string {
	title := strings.TrimSpace(firstMessage)
	if title == "" {
		return "New Chat"
	}
	if len(title) > titleMaxLen {
		title = title[:titleMaxLen]
	}
	return title
}

func (s *ConversationService) Create(ctx context.Context, userID uuid.UUID, title string) (*models.Conversation, error) {
	conversation := &models.Conversation{
		UserID: userID,
		Title:  DeriveTitle(title),
	}
	if err := s.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, &StoreError{Message: "Failed to create conversation"}
	}
	return conversation, nil
}

func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	conversations, err := s.conversationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, &StoreError{Message: "Failed to list conversations"}
	}
	return conversations, nil
}

// Messages returns the transcript of an owned conversation, oldest first.
func (s *ConversationService) Messages(ctx context.Context, id, userID uuid.UUID) ([]*models.Message, error) {
	if err := s.authorize(ctx, id, userID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByConversation(ctx, id)
	if err != nil {
		return nil, &StoreError{Message: "Failed to load messages"}
	}
	return messages, nil
}

// Delete removes a conversation and, through the schema cascade, all of
// its messages.
func (s *ConversationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.authorize(ctx, id, userID); err != nil {
		return err
	}

	if err := s.conversationRepo.Delete(ctx, id); err != nil {
		return &StoreError{Message: "Failed to delete conversation"}
	}
	return nil
}

func (s *ConversationService) authorize(ctx context.Context, id, userID uuid.UUID) error {
	conversation, err := s.conversationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Message: "Conversation not found"}
		}
		return &StoreError{Message: "Failed to load conversation"}
	}
	if conversation.UserID != userID {
		return &ForbiddenError{Message: "Access denied"}
	}
	return nil
}
