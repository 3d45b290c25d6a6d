package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ai-chat-backend/internal/models"
)

// MessageChannel names the Redis pub/sub channel carrying inserted message
// rows for one conversation.
func MessageChannel(conversationID uuid.UUID) string {
	return "conversation_messages:" + conversationID.String()
}

// Publisher fans inserted message rows out to whatever hub instances are
// subscribed, via Redis pub/sub.
type Publisher struct {
	redis *redis.Client
}

func NewPublisher(redisClient *redis.Client) *Publisher {
	return &Publisher{redis: redisClient}
}

// MessageInserted publishes the row to the conversation's channel. Delivery
// is best-effort: the exchange already succeeded, so a publish failure is
// only logged.
func (p *Publisher) MessageInserted(ctx context.Context, m *models.Message) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := p.redis.Publish(ctx, MessageChannel(m.ConversationID), data).Err(); err != nil {
		log.Printf("Failed to publish message insert for conversation %s: %v", m.ConversationID, err)
	}
}
