package chatstate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suPer8Hu/n8n-chat/internal/chat"
)

func conv(id, title string) chat.Conversation {
	return chat.Conversation{ID: id, Title: title, UpdatedAt: time.Unix(1, 0)}
}

func msg(id uint64, convID string, role chat.Role, content string) chat.Message {
	return chat.Message{ID: id, ConversationID: convID, Role: role, Content: content}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := State{Conversations: []chat.Conversation{conv("a", "A")}, ActiveID: "a"}
	_ = Reduce(s, ConversationDeleted{ID: "a"})

	assert.Len(t, s.Conversations, 1)
	assert.Equal(t, "a", s.ActiveID)
}

func TestReduce_CreatedPrependsAndActivates(t *testing.T) {
	s := State{
		Conversations: []chat.Conversation{conv("a", "A")},
		ActiveID:      "a",
		Transcript:    []chat.Message{msg(1, "a", chat.RoleHuman, "old")},
	}
	s = Reduce(s, ConversationCreated{Conversation: conv("b", chat.DefaultTitle)})

	require.Len(t, s.Conversations, 2)
	assert.Equal(t, "b", s.Conversations[0].ID)
	assert.Equal(t, "b", s.ActiveID)
	assert.Empty(t, s.Transcript)

	// a duplicate confirmation does not duplicate the entry
	s = Reduce(s, ConversationCreated{Conversation: conv("b", chat.DefaultTitle)})
	assert.Len(t, s.Conversations, 2)
}

func TestReduce_SelectClearsTranscriptAndIgnoresStaleLoads(t *testing.T) {
	s := State{Conversations: []chat.Conversation{conv("a", "A"), conv("b", "B")}}

	s = Reduce(s, ConversationSelected{ID: "a"})
	assert.True(t, s.LoadingTranscript)
	s = Reduce(s, TranscriptLoaded{ConversationID: "a", Messages: []chat.Message{msg(1, "a", chat.RoleHuman, "a1")}})
	assert.False(t, s.LoadingTranscript)
	require.Len(t, s.Transcript, 1)

	s = Reduce(s, ConversationSelected{ID: "b"})
	assert.Empty(t, s.Transcript, "no residue from a while b loads")

	// a's load resolving late must not leak into b
	s = Reduce(s, TranscriptLoaded{ConversationID: "a", Messages: []chat.Message{msg(1, "a", chat.RoleHuman, "a1")}})
	assert.Empty(t, s.Transcript)
	assert.True(t, s.LoadingTranscript)

	s = Reduce(s, TranscriptLoadFailed{ConversationID: "b"})
	assert.False(t, s.LoadingTranscript)
}

func TestReduce_TranscriptSynced(t *testing.T) {
	s := State{Conversations: []chat.Conversation{conv("a", "A"), conv("b", "B")}}

	s = Reduce(s, ConversationSelected{ID: "a"})
	assert.False(t, s.TranscriptSynced)
	s = Reduce(s, TranscriptLoaded{ConversationID: "a"})
	assert.True(t, s.TranscriptSynced, "an empty load is still a load")

	s = Reduce(s, ConversationSelected{ID: "b"})
	s = Reduce(s, TranscriptLoadFailed{ConversationID: "b"})
	assert.False(t, s.TranscriptSynced)
	assert.Empty(t, s.Transcript)

	s = Reduce(s, ConversationCreated{Conversation: conv("c", chat.DefaultTitle)})
	assert.True(t, s.TranscriptSynced)

	s = Reduce(s, ConversationDeleted{ID: "c"})
	assert.False(t, s.TranscriptSynced)
}

func TestReduce_DeleteActiveVsInactive(t *testing.T) {
	base := State{
		Conversations: []chat.Conversation{conv("a", "A"), conv("b", "B")},
		ActiveID:      "a",
		Transcript:    []chat.Message{msg(1, "a", chat.RoleHuman, "hi")},
	}

	s := Reduce(base, ConversationDeleted{ID: "b"})
	assert.Equal(t, "a", s.ActiveID)
	assert.Len(t, s.Transcript, 1)
	require.Len(t, s.Conversations, 1)
	assert.Equal(t, "a", s.Conversations[0].ID)

	s = Reduce(base, ConversationDeleted{ID: "a"})
	assert.Equal(t, "", s.ActiveID)
	assert.Empty(t, s.Transcript)
	require.Len(t, s.Conversations, 1)
	assert.Equal(t, "b", s.Conversations[0].ID)
}

func TestReduce_PlaceholderIsConfirmedInPlace(t *testing.T) {
	s := State{Conversations: []chat.Conversation{conv("a", "A")}, ActiveID: "a"}

	placeholder := chat.Message{ConversationID: "a", Role: chat.RoleHuman, Content: "hi", LocalID: "local-1", Pending: true}
	s = Reduce(s, MessageSent{Message: placeholder})
	s = Reduce(s, MessageReceived{Message: msg(9, "a", chat.RoleAssistant, "reply")})
	s = Reduce(s, MessageConfirmed{LocalID: "local-1", Message: msg(8, "a", chat.RoleHuman, "hi")})

	require.Len(t, s.Transcript, 2)
	assert.Equal(t, uint64(8), s.Transcript[0].ID)
	assert.False(t, s.Transcript[0].Pending)
	assert.Equal(t, uint64(9), s.Transcript[1].ID)
}

func TestReduce_MessagesForOtherConversationsAreDropped(t *testing.T) {
	s := State{ActiveID: "a"}
	s = Reduce(s, MessageReceived{Message: msg(1, "b", chat.RoleAssistant, "late")})
	assert.Empty(t, s.Transcript)
}

func TestReduce_RenameAndTouchKeepOrder(t *testing.T) {
	s := State{Conversations: []chat.Conversation{conv("a", "A"), conv("b", "B")}}

	s = Reduce(s, ConversationTouched{ID: "b", UpdatedAt: time.Unix(99, 0)})

	// a rename row read before the touch must not roll the timestamp back
	renamed := conv("b", "Hello")
	renamed.UpdatedAt = time.Unix(50, 0)
	s = Reduce(s, ConversationRenamed{Conversation: renamed})

	require.Len(t, s.Conversations, 2)
	assert.Equal(t, "a", s.Conversations[0].ID, "no client side re-sort")
	assert.Equal(t, "Hello", s.Conversations[1].Title)
	assert.Equal(t, time.Unix(99, 0), s.Conversations[1].UpdatedAt)
}

func TestReduce_LoadedDropsVanishedActive(t *testing.T) {
	s := State{ActiveID: "gone", Transcript: []chat.Message{msg(1, "gone", chat.RoleHuman, "x")}}
	s = Reduce(s, ConversationsLoaded{Conversations: []chat.Conversation{conv("a", "A")}})
	assert.Equal(t, "", s.ActiveID)
	assert.Empty(t, s.Transcript)
}

func TestContainer_TryBeginSendIsExclusive(t *testing.T) {
	c := NewContainer(State{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TryBeginSend() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.True(t, c.Snapshot().Sending)

	c.Dispatch(SendFinished{})
	assert.True(t, c.TryBeginSend())
}

func TestContainer_SubscribeSeesSnapshots(t *testing.T) {
	c := NewContainer(State{})
	var seen []string
	c.Subscribe(func(s State) { seen = append(seen, s.ActiveID) })

	c.Dispatch(ConversationCreated{Conversation: conv("a", "A")})
	c.Dispatch(ConversationDeleted{ID: "a"})

	assert.Equal(t, []string{"a", ""}, seen)

	snap := c.Snapshot()
	snap.Conversations = append(snap.Conversations, conv("x", "X"))
	assert.Empty(t, c.Snapshot().Conversations, "snapshots are copies")
}
