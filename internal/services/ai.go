package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"ai-chat-backend/internal/models"
)

// fallbackReply is stored when the provider answers 200 but the payload
// carries no usable choice.
const fallbackReply = "No response generated"

// Completer turns an ordered message sequence into one assistant reply.
type Completer interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// AIClient speaks the OpenAI chat-completions wire format against a
// configurable gateway. Generation parameters are static configuration,
// not per-request.
type AIClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewAIClient(baseURL, apiKey, model string, temperature float64, maxTokens int) *AIClient {
	return &AIClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{},
	}
}

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *AIClient) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	reqBody := completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("AI provider request failed: %v", err)
		return "", &ProviderError{Message: "Failed to get AI response. Please try again."}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read the body for the logs only; the caller gets a generic message.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("AI provider error: status=%d body=%s", resp.StatusCode, body)

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return "", &RateLimitError{Message: "Rate limit exceeded. Please wait a moment and try again."}
		case http.StatusPaymentRequired:
			return "", &QuotaError{Message: "AI credits exhausted. Please add credits to continue using the chatbot."}
		default:
			return "", &ProviderError{Message: "Failed to get AI response. Please try again."}
		}
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		log.Printf("AI provider returned malformed payload: %v", err)
		return "", &ProviderError{Message: "Failed to get AI response. Please try again."}
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		log.Println("AI provider returned no reply, using fallback")
		return fallbackReply, nil
	}

	return completion.Choices[0].Message.Content, nil
}
