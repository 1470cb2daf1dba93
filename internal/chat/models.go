package chat

import (
	"strings"
	"time"
)

const DefaultTitle = "New Chat"

// Role tags who authored a message.
type Role string

const (
	RoleHuman     Role = "human"
	RoleExternal  Role = "external"
	RoleAssistant Role = "assistant"
)

// ParseRole accepts the canonical roles plus the legacy tags older clients
// still send ("user", "webapp", "telegram").
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "human", "user", "webapp":
		return RoleHuman, true
	case "external", "telegram":
		return RoleExternal, true
	case "assistant":
		return RoleAssistant, true
	}
	return "", false
}

type Conversation struct {
	ID             string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	UserID         uint64    `gorm:"not null;index:idx_conv_user_updated,priority:1;index:uniq_conv_idempo,unique,priority:1" json:"user_id"`
	Title          string    `gorm:"type:varchar(255);not null" json:"title"`
	IdempotencyKey *string   `gorm:"type:varchar(128);index:uniq_conv_idempo,unique,priority:2" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `gorm:"index:idx_conv_user_updated,priority:2" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string    `gorm:"type:varchar(26);not null;index:idx_msg_conv_created,priority:1" json:"conversation_id"`
	UserID         uint64    `gorm:"not null;index" json:"user_id"`
	Role           Role      `gorm:"type:varchar(16);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"index:idx_msg_conv_created,priority:2" json:"created_at"`

	// Client side only: an optimistic record not yet confirmed by the store.
	LocalID string `gorm:"-" json:"-"`
	Pending bool   `gorm:"-" json:"-"`
}

func (Message) TableName() string { return "messages" }

// ConversationPatch is a partial update. Touch bumps updated_at.
type ConversationPatch struct {
	Title *string `json:"title,omitempty"`
	Touch bool    `json:"touch,omitempty"`
}

const titleMaxRunes = 30

// DeriveTitle turns a first message into a conversation title.
func DeriveTitle(firstMessage string) string {
	r := []rune(firstMessage)
	if len(r) <= titleMaxRunes {
		return firstMessage
	}
	return string(r[:titleMaxRunes]) + "..."
}
