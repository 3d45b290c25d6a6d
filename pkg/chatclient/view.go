package chatclient

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ai-chat-backend/internal/models"
)

// api is the slice of Client the view needs; tests substitute a fake.
type api interface {
	CreateConversation(ctx context.Context, title string) (*models.Conversation, error)
	Conversations(ctx context.Context) ([]*models.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID uuid.UUID) error
	Messages(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error)
	SendMessage(ctx context.Context, conversationID uuid.UUID, message string) (string, error)
	Subscribe(ctx context.Context, conversationID uuid.UUID) (*Subscription, error)
}

// Notifier surfaces transient errors to whatever UI wraps the view.
type Notifier func(message string)

// ConversationView mirrors one conversation's transcript. The list is seeded
// by a one-time fetch and kept current by appending rows the realtime stream
// reports; the only state owned here is the draft text and the
// awaiting-reply flag.
type ConversationView struct {
	client api
	notify Notifier

	mu            sync.Mutex
	selected      uuid.UUID // uuid.Nil means no conversation selected
	conversations []*models.Conversation
	messages      []*models.Message
	draft         string
	awaiting      bool
	sub           *Subscription
	subDone       chan struct{}
}

func NewConversationView(client api, notify Notifier) *ConversationView {
	if notify == nil {
		notify = func(string) {}
	}
	return &ConversationView{
		client: client,
		notify: notify,
	}
}

// RefreshConversations reloads the sidebar list (most recent first,
// server-ordered).
func (v *ConversationView) RefreshConversations(ctx context.Context) error {
	conversations, err := v.client.Conversations(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.conversations = conversations
	v.mu.Unlock()
	return nil
}

// Select loads the conversation's transcript and resubscribes the realtime
// stream to it. Any previous subscription is dropped first so stale-scope
// events can't leak into the new list.
func (v *ConversationView) Select(ctx context.Context, conversationID uuid.UUID) error {
	v.dropSubscription()

	messages, err := v.client.Messages(ctx, conversationID)
	if err != nil {
		return err
	}

	sub, err := v.client.Subscribe(ctx, conversationID)
	if err != nil {
		return err
	}

	done := make(chan struct{})

	v.mu.Lock()
	v.selected = conversationID
	v.messages = messages
	v.sub = sub
	v.subDone = done
	v.mu.Unlock()

	go v.consume(conversationID, sub, done)
	return nil
}

// Deselect returns the view to "no conversation selected".
func (v *ConversationView) Deselect() {
	v.dropSubscription()

	v.mu.Lock()
	v.selected = uuid.Nil
	v.messages = nil
	v.mu.Unlock()
}

// SetDraft replaces the input box contents.
func (v *ConversationView) SetDraft(text string) {
	v.mu.Lock()
	v.draft = text
	v.mu.Unlock()
}

// Submit sends the current draft. Blank drafts and submissions while a reply
// is already in flight are ignored. The draft is cleared before the outcome
// is known and is not restored on failure; failures surface through the
// notifier.
func (v *ConversationView) Submit(ctx context.Context) error {
	v.mu.Lock()
	text := strings.TrimSpace(v.draft)
	if text == "" || v.awaiting {
		v.mu.Unlock()
		return nil
	}
	v.awaiting = true
	v.draft = "" // optimistic clear
	selected := v.selected
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.awaiting = false
		v.mu.Unlock()
	}()

	if selected == uuid.Nil {
		conversation, err := v.client.CreateConversation(ctx, text)
		if err != nil {
			v.notify(err.Error())
			return err
		}

		v.mu.Lock()
		v.conversations = append([]*models.Conversation{conversation}, v.conversations...)
		v.mu.Unlock()

		if err := v.Select(ctx, conversation.ID); err != nil {
			v.notify(err.Error())
			return err
		}
		selected = conversation.ID
	}

	if _, err := v.client.SendMessage(ctx, selected, text); err != nil {
		v.notify(err.Error())
		return err
	}
	return nil
}

// Delete removes a conversation from the visible list; deleting the selected
// conversation returns the view to "no conversation selected".
func (v *ConversationView) Delete(ctx context.Context, conversationID uuid.UUID) error {
	if err := v.client.DeleteConversation(ctx, conversationID); err != nil {
		v.notify(err.Error())
		return err
	}

	v.mu.Lock()
	kept := v.conversations[:0]
	for _, c := range v.conversations {
		if c.ID != conversationID {
			kept = append(kept, c)
		}
	}
	v.conversations = kept
	wasSelected := v.selected == conversationID
	v.mu.Unlock()

	if wasSelected {
		v.Deselect()
	}
	return nil
}

// Close tears the view down, releasing its stream subscription.
func (v *ConversationView) Close() {
	v.dropSubscription()
}

// Selected reports the current conversation id, uuid.Nil when none.
func (v *ConversationView) Selected() uuid.UUID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

func (v *ConversationView) Conversations() []*models.Conversation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*models.Conversation(nil), v.conversations...)
}

func (v *ConversationView) Messages() []*models.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*models.Message(nil), v.messages...)
}

func (v *ConversationView) Draft() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// Awaiting reports whether an exchange is in flight; it gates duplicate
// submission and drives the loading indicator.
func (v *ConversationView) Awaiting() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.awaiting
}

// consume appends streamed rows while conversationID stays selected.
func (v *ConversationView) consume(conversationID uuid.UUID, sub *Subscription, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case m, ok := <-sub.C:
			if !ok {
				return
			}
			v.mu.Lock()
			if v.selected == conversationID {
				msg := m
				v.messages = append(v.messages, &msg)
			}
			v.mu.Unlock()
		}
	}
}

func (v *ConversationView) dropSubscription() {
	v.mu.Lock()
	sub := v.sub
	done := v.subDone
	v.sub = nil
	v.subDone = nil
	v.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if done != nil {
		close(done)
	}
}
