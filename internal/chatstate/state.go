// Package chatstate holds the client side view of a user's chat: the
// conversation list, the active conversation and its transcript. All changes
// go through Reduce, a pure function of (State, Event).
package chatstate

import (
	"sync"

	"github.com/suPer8Hu/n8n-chat/internal/chat"
)

type State struct {
	// Conversations is newest first as loaded; later activity does not re-sort it.
	Conversations []chat.Conversation
	ActiveID      string
	// Transcript belongs to ActiveID only.
	Transcript        []chat.Message
	LoadingTranscript bool
	// TranscriptSynced is set once Transcript reflects the store for ActiveID:
	// after a successful load or for a conversation created here.
	TranscriptSynced bool
	Sending           bool
}

// Active returns the active conversation, if any.
func (s State) Active() (chat.Conversation, bool) {
	if s.ActiveID == "" {
		return chat.Conversation{}, false
	}
	for _, c := range s.Conversations {
		if c.ID == s.ActiveID {
			return c, true
		}
	}
	return chat.Conversation{}, false
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	out := s
	out.Conversations = append([]chat.Conversation(nil), s.Conversations...)
	out.Transcript = append([]chat.Message(nil), s.Transcript...)
	return out
}

// Container serializes dispatches so the pipeline and fire-and-forget
// updates can share one State.
type Container struct {
	mu    sync.Mutex
	state State
	subs  []func(State)
}

func NewContainer(initial State) *Container {
	return &Container{state: initial.Clone()}
}

// Dispatch applies evt and returns the resulting state.
func (c *Container) Dispatch(evt Event) State {
	c.mu.Lock()
	c.state = Reduce(c.state, evt)
	snap := c.state.Clone()
	subs := c.subs
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

func (c *Container) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// TryBeginSend flips Idle to Sending. It returns false when a send is
// already in flight.
func (c *Container) TryBeginSend() bool {
	c.mu.Lock()
	if c.state.Sending {
		c.mu.Unlock()
		return false
	}
	c.state = Reduce(c.state, SendStarted{})
	snap := c.state.Clone()
	subs := c.subs
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return true
}

// Subscribe registers fn to be called after every change, outside the lock.
func (c *Container) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}
