package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("chat: conversation not found")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateConversation(ctx context.Context, c *Conversation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repo) GetConversationByUserAndIdempotencyKey(ctx context.Context, userID uint64, key string) (*Conversation, error) {
	var c Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConversationOrGetExisting tries to create a conversation, but if
// (user_id, idempotency_key) already exists it returns the existing row.
func (r *Repo) CreateConversationOrGetExisting(ctx context.Context, c *Conversation) (*Conversation, bool, error) {
	if c.IdempotencyKey == nil || *c.IdempotencyKey == "" {
		c.IdempotencyKey = nil
		if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
			return nil, false, err
		}
		return c, true, nil
	}

	err := r.db.WithContext(ctx).Create(c).Error
	if err == nil {
		return c, true, nil
	}

	existing, getErr := r.GetConversationByUserAndIdempotencyKey(ctx, c.UserID, *c.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}

func (r *Repo) GetConversation(ctx context.Context, userID uint64, id string) (*Conversation, error) {
	var c Conversation
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (r *Repo) ListConversations(ctx context.Context, userID uint64) ([]Conversation, error) {
	var out []Conversation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) UpdateConversation(ctx context.Context, userID uint64, id string, patch ConversationPatch) (*Conversation, error) {
	updates := map[string]any{"updated_at": time.Now()}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}

	res := r.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetConversation(ctx, userID, id)
}

// DeleteConversation removes the conversation and its messages atomically.
func (r *Repo) DeleteConversation(ctx context.Context, userID uint64, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&Conversation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("conversation_id = ?", id).Delete(&Message{}).Error
	})
}

// InsertMessage stores m and bumps the owning conversation's updated_at.
func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&Conversation{}).
			Where("id = ?", m.ConversationID).
			Update("updated_at", m.CreatedAt).Error
	})
}

// ListMessages returns messages in creation order (oldest -> newest).
func (r *Repo) ListMessages(ctx context.Context, userID uint64, conversationID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetConversationByID looks a conversation up without an owner filter.
// Only trusted server-to-server paths may use it.
func (r *Repo) GetConversationByID(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
