// Package client talks to the chat API over HTTP. A logged-in Client
// satisfies composer.Store and composer.Relay.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/suPer8Hu/n8n-chat/internal/chat"
	"github.com/suPer8Hu/n8n-chat/internal/relay"
)

var (
	ErrUnauthorized = errors.New("client: not signed in")
	ErrBusy         = errors.New("client: a reply for this conversation is still in progress")
)

// APIError is a non-2xx answer in the {code, message, data} envelope.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s (code %d)", e.Status, e.Message, e.Code)
}

type Client struct {
	baseURL string
	http    *http.Client

	mu     sync.RWMutex
	token  string
	userID uint64
}

// New returns a client for baseURL. No timeout is set on httpClient's behalf:
// the server bounds relay calls.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

type Session struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (c *Client) Signup(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/auth/signup", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, path, nil, body, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token, s.ID)
	return &s, nil
}

// SetToken installs a token obtained elsewhere.
func (c *Client) SetToken(token string, userID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.userID = userID
}

func (c *Client) UserID() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	var out struct {
		Conversations []chat.Conversation `json:"conversations"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/conversations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

func (c *Client) CreateConversation(ctx context.Context, title, idempotencyKey string) (*chat.Conversation, error) {
	var out struct {
		Conversation chat.Conversation `json:"conversation"`
	}
	h := http.Header{}
	if idempotencyKey != "" {
		h.Set("Idempotency-Key", idempotencyKey)
	}
	if err := c.call(ctx, http.MethodPost, "/api/conversations", h, map[string]string{"title": title}, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}

func (c *Client) UpdateConversation(ctx context.Context, id string, patch chat.ConversationPatch) (*chat.Conversation, error) {
	var out struct {
		Conversation chat.Conversation `json:"conversation"`
	}
	if err := c.call(ctx, http.MethodPatch, "/api/conversations/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, mapNotFound(err)
	}
	return &out.Conversation, nil
}

func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return mapNotFound(c.call(ctx, http.MethodDelete, "/api/conversations/"+url.PathEscape(id), nil, nil, nil))
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, mapNotFound(err)
	}
	return out.Messages, nil
}

func (c *Client) InsertMessage(ctx context.Context, conversationID string, role chat.Role, content string) (*chat.Message, error) {
	var out struct {
		Message chat.Message `json:"message"`
	}
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages"
	body := map[string]string{"role": string(role), "content": content}
	if err := c.call(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, mapNotFound(err)
	}
	return &out.Message, nil
}

// Reply calls POST /api/chat. Only a 200 counts as a reply; the fallback
// text the server sends with other statuses is dropped so the caller can
// apply its own degraded reply.
func (c *Client) Reply(ctx context.Context, req relay.ChatRequest) (string, error) {
	userID := req.UserID
	if userID == "" {
		userID = strconv.FormatUint(c.UserID(), 10)
	}
	body := map[string]string{
		"message":        req.Message,
		"conversationId": req.ConversationID,
		"userId":         userID,
	}

	resp, err := c.send(ctx, http.MethodPost, "/api/chat", nil, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Response string `json:"response"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", ErrUnauthorized
	case http.StatusConflict:
		return "", ErrBusy
	default:
		return "", fmt.Errorf("chat relay: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("chat relay: %w", err)
	}
	return out.Response, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) call(ctx context.Context, method, path string, h http.Header, in, out any) error {
	resp, err := c.send(ctx, method, path, h, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 5<<20)).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Code != 0 {
		if resp.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) send(ctx context.Context, method, path string, h http.Header, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range h {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.http.Do(req)
}

func mapNotFound(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", chat.ErrNotFound, apiErr.Message)
	}
	return err
}
