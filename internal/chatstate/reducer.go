package chatstate

import (
	"time"

	"github.com/suPer8Hu/n8n-chat/internal/chat"
)

// Reduce returns the state after evt. It never mutates s.
func Reduce(s State, evt Event) State {
	s = s.Clone()

	switch e := evt.(type) {
	case ConversationsLoaded:
		s.Conversations = append([]chat.Conversation(nil), e.Conversations...)
		if s.ActiveID != "" && indexOfConversation(s.Conversations, s.ActiveID) < 0 {
			s.ActiveID = ""
			s.Transcript = nil
			s.LoadingTranscript = false
			s.TranscriptSynced = false
		}

	case ConversationCreated:
		list := make([]chat.Conversation, 0, len(s.Conversations)+1)
		list = append(list, e.Conversation)
		for _, c := range s.Conversations {
			if c.ID != e.Conversation.ID {
				list = append(list, c)
			}
		}
		s.Conversations = list
		s.ActiveID = e.Conversation.ID
		s.Transcript = nil
		s.LoadingTranscript = false
		s.TranscriptSynced = true

	case ConversationSelected:
		s.ActiveID = e.ID
		s.Transcript = nil
		s.LoadingTranscript = e.ID != ""
		s.TranscriptSynced = false

	case TranscriptLoaded:
		if e.ConversationID != s.ActiveID {
			break
		}
		s.Transcript = append([]chat.Message(nil), e.Messages...)
		s.LoadingTranscript = false
		s.TranscriptSynced = true

	case TranscriptLoadFailed:
		if e.ConversationID == s.ActiveID {
			s.LoadingTranscript = false
		}

	case ConversationRenamed:
		if i := indexOfConversation(s.Conversations, e.Conversation.ID); i >= 0 {
			s.Conversations[i].Title = e.Conversation.Title
			touch(&s.Conversations[i], e.Conversation.UpdatedAt)
		}

	case ConversationTouched:
		if i := indexOfConversation(s.Conversations, e.ID); i >= 0 {
			touch(&s.Conversations[i], e.UpdatedAt)
		}

	case ConversationDeleted:
		if i := indexOfConversation(s.Conversations, e.ID); i >= 0 {
			s.Conversations = append(s.Conversations[:i], s.Conversations[i+1:]...)
		}
		if s.ActiveID == e.ID {
			s.ActiveID = ""
			s.Transcript = nil
			s.LoadingTranscript = false
			s.TranscriptSynced = false
		}

	case MessageSent:
		if e.Message.ConversationID == s.ActiveID {
			s.Transcript = append(s.Transcript, e.Message)
		}

	case MessageConfirmed:
		for i := range s.Transcript {
			if s.Transcript[i].LocalID != "" && s.Transcript[i].LocalID == e.LocalID {
				s.Transcript[i] = e.Message
				break
			}
		}

	case MessageReceived:
		if e.Message.ConversationID == s.ActiveID {
			s.Transcript = append(s.Transcript, e.Message)
		}

	case SendStarted:
		s.Sending = true

	case SendFinished:
		s.Sending = false
	}

	return s
}

func indexOfConversation(list []chat.Conversation, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// touch only moves UpdatedAt forward.
func touch(c *chat.Conversation, at time.Time) {
	if at.After(c.UpdatedAt) {
		c.UpdatedAt = at
	}
}
