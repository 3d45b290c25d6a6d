package chatclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"ai-chat-backend/internal/models"
)

// fakeAPI stands in for the backend: conversations and messages live in
// maps, and Subscribe hands out channels the test feeds directly.
type fakeAPI struct {
	userID        uuid.UUID
	conversations map[uuid.UUID]*models.Conversation
	messages      map[uuid.UUID][]*models.Message
	streams       map[uuid.UUID]chan models.Message

	sendErr    error
	sendCalls  int
	lastSentTo uuid.UUID
	closed     []uuid.UUID
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		userID:        uuid.New(),
		conversations: make(map[uuid.UUID]*models.Conversation),
		messages:      make(map[uuid.UUID][]*models.Message),
		streams:       make(map[uuid.UUID]chan models.Message),
	}
}

func (f *fakeAPI) CreateConversation(ctx context.Context, title string) (*models.Conversation, error) {
	c := &models.Conversation{ID: uuid.New(), UserID: f.userID, Title: title, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.conversations[c.ID] = c
	return c, nil
}

func (f *fakeAPI) Conversations(ctx context.Context) ([]*models.Conversation, error) {
	var out []*models.Conversation
	for _, c := range f.conversations {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeAPI) DeleteConversation(ctx context.Context, conversationID uuid.UUID) error {
	delete(f.conversations, conversationID)
	return nil
}

func (f *fakeAPI) Messages(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error) {
	return f.messages[conversationID], nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, conversationID uuid.UUID, message string) (string, error) {
	f.sendCalls++
	f.lastSentTo = conversationID
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return "assistant reply", nil
}

func (f *fakeAPI) Subscribe(ctx context.Context, conversationID uuid.UUID) (*Subscription, error) {
	ch := make(chan models.Message, 8)
	f.streams[conversationID] = ch
	return &Subscription{
		C:       ch,
		closeFn: func() { f.closed = append(f.closed, conversationID) },
	}, nil
}

// push delivers a row on the conversation's stream, as the backend would
// after an insert.
func (f *fakeAPI) push(conversationID uuid.UUID, role, content string) {
	f.streams[conversationID] <- models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met within deadline")
}

// ─── View Tests ───

func TestView_FirstMessageCreatesConversation(t *testing.T) {
	// Empty store, nothing selected, user sends "Hello"
	api := newFakeAPI()
	view := NewConversationView(api, nil)
	defer view.Close()

	view.SetDraft("Hello")
	if err := view.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	conversations := view.Conversations()
	if len(conversations) != 1 {
		t.Fatalf("Expected one conversation, got %d", len(conversations))
	}
	if conversations[0].Title != "Hello" {
		t.Errorf("Expected title 'Hello', got %q", conversations[0].Title)
	}
	if view.Selected() != conversations[0].ID {
		t.Error("The new conversation must become the selected one")
	}
	if api.sendCalls != 1 || api.lastSentTo != conversations[0].ID {
		t.Error("Exchange must run against the newly created conversation")
	}

	// The turn pair arrives over the stream, not the HTTP response
	api.push(conversations[0].ID, models.RoleUser, "Hello")
	api.push(conversations[0].ID, models.RoleAssistant, "assistant reply")
	waitFor(t, func() bool { return len(view.Messages()) == 2 })

	messages := view.Messages()
	if messages[0].Content != "Hello" || messages[1].Content != "assistant reply" {
		t.Errorf("Unexpected transcript: %+v", messages)
	}
}

func TestView_OptimisticDraftClear(t *testing.T) {
	api := newFakeAPI()
	api.sendErr = errors.New("Rate limit exceeded. Please wait a moment and try again.")

	var notified []string
	view := NewConversationView(api, func(msg string) { notified = append(notified, msg) })
	defer view.Close()

	conversation, _ := api.CreateConversation(context.Background(), "Hello")
	if err := view.Select(context.Background(), conversation.ID); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	view.SetDraft("doomed message")
	err := view.Submit(context.Background())
	if err == nil {
		t.Fatal("Expected Submit to surface the failure")
	}

	// Draft stays cleared even though the exchange failed
	if view.Draft() != "" {
		t.Errorf("Draft must not be restored on failure, got %q", view.Draft())
	}
	if view.Awaiting() {
		t.Error("Awaiting flag must be cleared on failure")
	}
	if len(notified) != 1 {
		t.Errorf("Expected one notification, got %d", len(notified))
	}
}

func TestView_SubmitGating(t *testing.T) {
	t.Run("blank draft ignored", func(t *testing.T) {
		api := newFakeAPI()
		view := NewConversationView(api, nil)
		defer view.Close()

		view.SetDraft("   ")
		if err := view.Submit(context.Background()); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if api.sendCalls != 0 {
			t.Error("Blank input must not trigger an exchange")
		}
	})

	t.Run("in-flight exchange gates duplicates", func(t *testing.T) {
		api := newFakeAPI()
		view := NewConversationView(api, nil)
		defer view.Close()

		conversation, _ := api.CreateConversation(context.Background(), "Hello")
		view.Select(context.Background(), conversation.ID)

		view.mu.Lock()
		view.awaiting = true
		view.mu.Unlock()

		view.SetDraft("second message")
		if err := view.Submit(context.Background()); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if api.sendCalls != 0 {
			t.Error("Submission while awaiting a reply must be ignored")
		}
		if view.Draft() != "second message" {
			t.Error("A gated submission must leave the draft alone")
		}
	})
}

func TestView_SwitchingConversationsResubscribes(t *testing.T) {
	api := newFakeAPI()
	view := NewConversationView(api, nil)
	defer view.Close()

	first, _ := api.CreateConversation(context.Background(), "first")
	second, _ := api.CreateConversation(context.Background(), "second")
	api.messages[second.ID] = []*models.Message{
		{ID: uuid.New(), ConversationID: second.ID, Role: models.RoleUser, Content: "old turn"},
	}

	view.Select(context.Background(), first.ID)
	firstStream := api.streams[first.ID]

	view.Select(context.Background(), second.ID)

	// The old scope's subscription was released
	if len(api.closed) == 0 || api.closed[0] != first.ID {
		t.Error("Switching conversations must close the previous subscription")
	}

	// The list was replaced, not merged
	messages := view.Messages()
	if len(messages) != 1 || messages[0].Content != "old turn" {
		t.Errorf("Expected the second conversation's transcript, got %+v", messages)
	}

	// A straggler on the old stream must not reach the new list
	firstStream <- models.Message{ID: uuid.New(), ConversationID: first.ID, Role: models.RoleUser, Content: "stale"}
	time.Sleep(20 * time.Millisecond)
	for _, m := range view.Messages() {
		if m.Content == "stale" {
			t.Error("Stale-scope event leaked into the new conversation")
		}
	}
}

func TestView_DeleteSelectedConversation(t *testing.T) {
	api := newFakeAPI()
	view := NewConversationView(api, nil)
	defer view.Close()

	conversation, _ := api.CreateConversation(context.Background(), "Hello")
	view.RefreshConversations(context.Background())
	view.Select(context.Background(), conversation.ID)

	if err := view.Delete(context.Background(), conversation.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(view.Conversations()) != 0 {
		t.Error("Deleted conversation must leave the visible list")
	}
	if view.Selected() != uuid.Nil {
		t.Error("Deleting the selected conversation must deselect it")
	}
	if len(view.Messages()) != 0 {
		t.Error("Deselecting must clear the message list")
	}
}

func TestView_DeleteOtherConversationKeepsSelection(t *testing.T) {
	api := newFakeAPI()
	view := NewConversationView(api, nil)
	defer view.Close()

	keep, _ := api.CreateConversation(context.Background(), "keep")
	drop, _ := api.CreateConversation(context.Background(), "drop")
	view.RefreshConversations(context.Background())
	view.Select(context.Background(), keep.ID)

	if err := view.Delete(context.Background(), drop.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if view.Selected() != keep.ID {
		t.Error("Deleting another conversation must not change the selection")
	}
	if len(view.Conversations()) != 1 {
		t.Errorf("Expected one remaining conversation, got %d", len(view.Conversations()))
	}
}
