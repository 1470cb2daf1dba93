package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/suPer8Hu/n8n-chat/internal/common"
)

var ErrInvalidMessage = errors.New("chat: invalid message")

// Service is the session store: every operation is scoped to one user.
type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListConversations(ctx context.Context, userID uint64) ([]Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}

// CreateConversation inserts a conversation. A repeated idempotency key returns
// the row created the first time and created=false.
func (s *Service) CreateConversation(ctx context.Context, userID uint64, title, idempotencyKey string) (conv *Conversation, created bool, err error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, false, err
	}

	c := &Conversation{
		ID:     id,
		UserID: userID,
		Title:  title,
	}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		c.IdempotencyKey = &key
	}
	return s.repo.CreateConversationOrGetExisting(ctx, c)
}

func (s *Service) GetConversation(ctx context.Context, userID uint64, id string) (*Conversation, error) {
	return s.repo.GetConversation(ctx, userID, id)
}

func (s *Service) UpdateConversation(ctx context.Context, userID uint64, id string, patch ConversationPatch) (*Conversation, error) {
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			t = DefaultTitle
		}
		patch.Title = &t
	}
	return s.repo.UpdateConversation(ctx, userID, id, patch)
}

func (s *Service) DeleteConversation(ctx context.Context, userID uint64, id string) error {
	return s.repo.DeleteConversation(ctx, userID, id)
}

func (s *Service) ValidateConversationOwner(ctx context.Context, userID uint64, id string) error {
	_, err := s.repo.GetConversation(ctx, userID, id)
	return err
}

func (s *Service) ListMessages(ctx context.Context, userID uint64, conversationID string) ([]Message, error) {
	if err := s.ValidateConversationOwner(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, userID, conversationID)
}

func (s *Service) InsertMessage(ctx context.Context, userID uint64, conversationID string, role Role, content string) (*Message, error) {
	role, ok := ParseRole(string(role))
	if !ok || strings.TrimSpace(content) == "" {
		return nil, ErrInvalidMessage
	}

	if err := s.ValidateConversationOwner(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	m := &Message{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// InsertChannelMessage stores a message that arrived through a secondary
// channel. The conversation id alone identifies the owner.
func (s *Service) InsertChannelMessage(ctx context.Context, conversationID, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrInvalidMessage
	}
	conv, err := s.repo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	m := &Message{
		ConversationID: conv.ID,
		UserID:         conv.UserID,
		Role:           RoleExternal,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
