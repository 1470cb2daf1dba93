package chatstate

import (
	"time"

	"github.com/suPer8Hu/n8n-chat/internal/chat"
)

// Event is one state transition. Every event that mirrors a store mutation
// carries the store-confirmed record.
type Event interface {
	isEvent()
}

type ConversationsLoaded struct{ Conversations []chat.Conversation }

// ConversationCreated prepends the conversation and makes it active.
type ConversationCreated struct{ Conversation chat.Conversation }

// ConversationSelected activates a conversation and starts a transcript load.
type ConversationSelected struct{ ID string }

// TranscriptLoaded is dropped unless ConversationID is still active.
type TranscriptLoaded struct {
	ConversationID string
	Messages       []chat.Message
}

// TranscriptLoadFailed ends the loading state without messages. The
// transcript stays unsynced.
type TranscriptLoadFailed struct{ ConversationID string }

// ConversationRenamed applies a confirmed title. Other fields are left alone
// so a concurrent touch is not rolled back.
type ConversationRenamed struct{ Conversation chat.Conversation }

// ConversationTouched records a last-updated bump. The list is not re-sorted.
type ConversationTouched struct {
	ID        string
	UpdatedAt time.Time
}

type ConversationDeleted struct{ ID string }

// MessageSent appends an optimistic placeholder (Pending, LocalID set).
type MessageSent struct{ Message chat.Message }

// MessageConfirmed replaces the placeholder LocalID with the stored record.
type MessageConfirmed struct {
	LocalID string
	Message chat.Message
}

type MessageReceived struct{ Message chat.Message }

type SendStarted struct{}

type SendFinished struct{}

func (ConversationsLoaded) isEvent()  {}
func (ConversationCreated) isEvent()  {}
func (ConversationSelected) isEvent() {}
func (TranscriptLoaded) isEvent()     {}
func (TranscriptLoadFailed) isEvent() {}
func (ConversationRenamed) isEvent()  {}
func (ConversationTouched) isEvent()  {}
func (ConversationDeleted) isEvent()  {}
func (MessageSent) isEvent()          {}
func (MessageConfirmed) isEvent()     {}
func (MessageReceived) isEvent()      {}
func (SendStarted) isEvent()          {}
func (SendFinished) isEvent()         {}
