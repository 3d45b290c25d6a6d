package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ai-chat-backend/internal/models"
)

type fakeConversationRepo struct {
	conversations map[uuid.UUID]*models.Conversation
	deleted       []uuid.UUID
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: make(map[uuid.UUID]*models.Conversation)}
}

func (f *fakeConversationRepo) Create(ctx context.Context, c *models.Conversation) error {
	c.ID = uuid.New()
	f.conversations[c.ID] = c
	return nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	var out []*models.Conversation
	for _, c := range f.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.conversations, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"short message kept as-is", "Hello", "Hello"},
		{"whitespace trimmed", "  Hello  ", "Hello"},
		{"empty falls back", "", "New Chat"},
		{"whitespace-only falls back", "   ", "New Chat"},
		{"long message truncated to 50", strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveTitle(tc.input); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestConversationService_Create(t *testing.T) {
	repo := newFakeConversationRepo()
	svc := NewConversationService(repo, &fakeMessageStore{})
	userID := uuid.New()

	conversation, err := svc.Create(context.Background(), userID, "What is the capital of France and why is it Paris?!")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if conversation.UserID != userID {
		t.Error("Conversation must be owned by the creating user")
	}
	if len(conversation.Title) > 50 {
		t.Errorf("Title must be truncated to 50 chars, got %d", len(conversation.Title))
	}
}

func TestConversationService_Delete(t *testing.T) {
	t.Run("owner can delete", func(t *testing.T) {
		repo := newFakeConversationRepo()
		svc := NewConversationService(repo, &fakeMessageStore{})
		userID := uuid.New()

		conversation, _ := svc.Create(context.Background(), userID, "Hello")
		if err := svc.Delete(context.Background(), conversation.ID, userID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if len(repo.deleted) != 1 {
			t.Errorf("Expected one deletion, got %d", len(repo.deleted))
		}
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		repo := newFakeConversationRepo()
		svc := NewConversationService(repo, &fakeMessageStore{})

		conversation, _ := svc.Create(context.Background(), uuid.New(), "Hello")
		err := svc.Delete(context.Background(), conversation.ID, uuid.New())

		var forbidden *ForbiddenError
		if !errors.As(err, &forbidden) {
			t.Errorf("Expected ForbiddenError, got %T", err)
		}
		if len(repo.deleted) != 0 {
			t.Error("Nothing must be deleted on an authorization failure")
		}
	})

	t.Run("missing conversation", func(t *testing.T) {
		repo := newFakeConversationRepo()
		svc := NewConversationService(repo, &fakeMessageStore{})

		err := svc.Delete(context.Background(), uuid.New(), uuid.New())
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("Expected NotFoundError, got %T", err)
		}
	})
}

func TestConversationService_Messages(t *testing.T) {
	repo := newFakeConversationRepo()
	messages := &fakeMessageStore{}
	svc := NewConversationService(repo, messages)
	userID := uuid.New()

	conversation, _ := svc.Create(context.Background(), userID, "Hello")
	messages.Create(context.Background(), &models.Message{ConversationID: conversation.ID, Role: models.RoleUser, Content: "Hello"})
	messages.Create(context.Background(), &models.Message{ConversationID: conversation.ID, Role: models.RoleAssistant, Content: "Hi"})

	got, err := svc.Messages(context.Background(), conversation.ID, userID)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(got))
	}
	if got[0].Role != models.RoleUser || got[1].Role != models.RoleAssistant {
		t.Error("Messages must come back oldest first")
	}
}
