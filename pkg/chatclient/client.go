// Package chatclient is a Go client for the AI chat backend: a thin REST
// wrapper plus a ConversationView that mirrors server state the way the web
// UI does, fed by the per-conversation realtime stream.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ai-chat-backend/internal/models"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
	}
}

// SetToken installs the bearer credential used on every subsequent call.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.post(ctx, "/api/v1/auth/register", models.RegisterRequest{Email: email, Password: password}, nil)
}

func (c *Client) Login(ctx context.Context, email, password string) error {
	var tokens models.AuthTokens
	if err := c.post(ctx, "/api/v1/auth/login", models.LoginRequest{Email: email, Password: password}, &tokens); err != nil {
		return err
	}
	c.token = tokens.AccessToken
	return nil
}

func (c *Client) CreateConversation(ctx context.Context, title string) (*models.Conversation, error) {
	conversation := &models.Conversation{}
	err := c.post(ctx, "/api/v1/conversations/", models.CreateConversationRequest{Title: title}, conversation)
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

func (c *Client) Conversations(ctx context.Context) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	if err := c.get(ctx, "/api/v1/conversations/", &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (c *Client) Messages(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error) {
	var messages []*models.Message
	if err := c.get(ctx, "/api/v1/conversations/"+conversationID.String()+"/messages", &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) DeleteConversation(ctx context.Context, conversationID uuid.UUID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/v1/conversations/"+conversationID.String(), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// SendMessage runs one exchange and returns the assistant reply. The chat
// endpoint reports every failure as a flat {"error": "..."} body.
func (c *Client) SendMessage(ctx context.Context, conversationID uuid.UUID, message string) (string, error) {
	body, err := json.Marshal(models.ChatRequest{
		ConversationID: conversationID.String(),
		Message:        message,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var chatErr models.ChatError
		if json.NewDecoder(resp.Body).Decode(&chatErr) == nil && chatErr.Error != "" {
			return "", fmt.Errorf("%s", chatErr.Error)
		}
		return "", fmt.Errorf("chat request failed with status %d", resp.StatusCode)
	}

	var chatResp models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", err
	}
	return chatResp.Message, nil
}

// Subscription delivers message rows as they are inserted into one
// conversation. Close is mandatory on conversation switch or teardown.
type Subscription struct {
	C <-chan models.Message

	closeFn func()
}

func (s *Subscription) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// Subscribe opens the conversation's realtime stream over WebSocket.
func (c *Client) Subscribe(ctx context.Context, conversationID uuid.UUID) (*Subscription, error) {
	wsURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/api/v1/conversations/" + conversationID.String() + "/stream"
	wsURL.RawQuery = url.Values{"token": {c.token}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open realtime stream: %w", err)
	}

	events := make(chan models.Message, 8)
	go func() {
		defer close(events)
		for {
			var m models.Message
			if err := conn.ReadJSON(&m); err != nil {
				return
			}
			events <- m
		}
	}()

	return &Subscription{
		C:       events,
		closeFn: func() { conn.Close() },
	}, nil
}

// HTTP plumbing

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&envelope) == nil && envelope.Error.Message != "" {
			return fmt.Errorf("%s", envelope.Error.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
