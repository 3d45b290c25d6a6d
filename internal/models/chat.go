package models

// ChatMessage is one role-tagged turn sent to the AI provider.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

// ChatResponse is returned to the caller after a successful exchange.
// The persisted rows reach the client through the realtime stream.
type ChatResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// ChatError is the flat error body of the chat endpoint. Every failure
// kind collapses to HTTP 500 with a human-readable string.
type ChatError struct {
	Error string `json:"error"`
}
