// Package composer runs the chat send pipeline on top of a chatstate
// Container: create-on-first-send, optimistic placeholder, relay call,
// persisted reply, and the degraded reply when any of that fails.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/suPer8Hu/n8n-chat/internal/chat"
	"github.com/suPer8Hu/n8n-chat/internal/chatstate"
	"github.com/suPer8Hu/n8n-chat/internal/log"
	"github.com/suPer8Hu/n8n-chat/internal/relay"
)

// DegradedText is what the user sees when no real reply could be produced.
const DegradedText = "Sorry, there was an error processing your request."

var (
	ErrEmptyInput = errors.New("composer: message is empty")
	ErrBusy       = errors.New("composer: a message is already being sent")
)

// Store is the user-scoped session store. chat.UserStore and client.Client
// both satisfy it.
type Store interface {
	ListConversations(ctx context.Context) ([]chat.Conversation, error)
	CreateConversation(ctx context.Context, title, idempotencyKey string) (*chat.Conversation, error)
	UpdateConversation(ctx context.Context, id string, patch chat.ConversationPatch) (*chat.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error)
	InsertMessage(ctx context.Context, conversationID string, role chat.Role, content string) (*chat.Message, error)
}

// Relay produces the reply text for one message. Any error means there is
// no usable reply.
type Relay interface {
	Reply(ctx context.Context, req relay.ChatRequest) (string, error)
}

type RelayFunc func(ctx context.Context, req relay.ChatRequest) (string, error)

func (f RelayFunc) Reply(ctx context.Context, req relay.ChatRequest) (string, error) {
	return f(ctx, req)
}

// Direct adapts an in-process relay. The not-configured text counts as a
// reply; every other failed result becomes an error.
func Direct(r *relay.Relay) Relay {
	return RelayFunc(func(ctx context.Context, req relay.ChatRequest) (string, error) {
		res, err := r.Chat(ctx, req)
		if err != nil {
			return "", err
		}
		if res.Failed() {
			return "", fmt.Errorf("relay %s: %w", res.Reason, res.Err)
		}
		return res.Text, nil
	})
}

// Reason says why a send ended degraded. Empty on success.
type Reason string

const (
	ReasonRelayFailed Reason = "relay_failed"
	ReasonEmptyReply  Reason = "empty_reply"
	ReasonStoreFailed Reason = "store_failed"
)

type Outcome struct {
	ConversationID string
	// Human is the confirmed record, or the still-pending placeholder when
	// the write failed.
	Human chat.Message
	// Reply is what the user sees as the assistant answer.
	Reply  chat.Message
	Reason Reason
	Err    error
}

func (o Outcome) Degraded() bool { return o.Reason != "" }

type Composer struct {
	store  Store
	relay  Relay
	userID string
	state  *chatstate.Container

	// outstanding title derivations
	wg sync.WaitGroup
}

func New(store Store, r Relay, userID string) *Composer {
	return &Composer{
		store:  store,
		relay:  r,
		userID: userID,
		state:  chatstate.NewContainer(chatstate.State{}),
	}
}

func (c *Composer) State() chatstate.State { return c.state.Snapshot() }

func (c *Composer) Subscribe(fn func(chatstate.State)) { c.state.Subscribe(fn) }

// Wait blocks until background title updates have finished.
func (c *Composer) Wait() { c.wg.Wait() }

func (c *Composer) Load(ctx context.Context) error {
	list, err := c.store.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	c.state.Dispatch(chatstate.ConversationsLoaded{Conversations: list})
	return nil
}

func (c *Composer) NewConversation(ctx context.Context) (*chat.Conversation, error) {
	conv, err := c.store.CreateConversation(ctx, chat.DefaultTitle, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	c.state.Dispatch(chatstate.ConversationCreated{Conversation: *conv})
	return conv, nil
}

// Select makes id active and loads its transcript. A load that resolves after
// the user moved on is discarded by the reducer.
func (c *Composer) Select(ctx context.Context, id string) error {
	c.state.Dispatch(chatstate.ConversationSelected{ID: id})

	msgs, err := c.store.ListMessages(ctx, id)
	if err != nil {
		c.state.Dispatch(chatstate.TranscriptLoadFailed{ConversationID: id})
		return fmt.Errorf("list messages: %w", err)
	}
	c.state.Dispatch(chatstate.TranscriptLoaded{ConversationID: id, Messages: msgs})
	return nil
}

func (c *Composer) Delete(ctx context.Context, id string) error {
	if err := c.store.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	c.state.Dispatch(chatstate.ConversationDeleted{ID: id})
	return nil
}

func (c *Composer) Rename(ctx context.Context, id, title string) (*chat.Conversation, error) {
	conv, err := c.store.UpdateConversation(ctx, id, chat.ConversationPatch{Title: &title})
	if err != nil {
		return nil, fmt.Errorf("rename conversation: %w", err)
	}
	c.state.Dispatch(chatstate.ConversationRenamed{Conversation: *conv})
	return conv, nil
}

// Submit sends one message. The returned error is non-nil only when nothing
// was sent: empty input, a send already in flight, or no conversation could
// be created. Every other failure ends in a degraded reply on the Outcome.
func (c *Composer) Submit(ctx context.Context, input string) (Outcome, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return Outcome{}, ErrEmptyInput
	}
	if !c.state.TryBeginSend() {
		return Outcome{}, ErrBusy
	}
	defer c.state.Dispatch(chatstate.SendFinished{})

	l := log.Ctx(ctx)
	snap := c.state.Snapshot()

	convID := snap.ActiveID
	// a transcript that failed to load is not known to be empty
	first := snap.TranscriptSynced && len(snap.Transcript) == 0
	if convID == "" {
		conv, err := c.store.CreateConversation(ctx, chat.DefaultTitle, uuid.NewString())
		if err != nil {
			return Outcome{}, fmt.Errorf("create conversation: %w", err)
		}
		c.state.Dispatch(chatstate.ConversationCreated{Conversation: *conv})
		convID = conv.ID
		first = true
	}

	out := Outcome{ConversationID: convID}

	placeholder := chat.Message{
		ConversationID: convID,
		Role:           chat.RoleHuman,
		Content:        text,
		LocalID:        uuid.NewString(),
		Pending:        true,
	}
	c.state.Dispatch(chatstate.MessageSent{Message: placeholder})
	out.Human = placeholder

	if saved, err := c.store.InsertMessage(ctx, convID, chat.RoleHuman, text); err != nil {
		l.Warn().Err(err).Str(log.FieldConversationID, convID).Msg("save user message failed")
	} else {
		c.state.Dispatch(chatstate.MessageConfirmed{LocalID: placeholder.LocalID, Message: *saved})
		out.Human = *saved
	}

	if first {
		c.deriveTitle(ctx, convID, text)
	}

	reply, err := c.relay.Reply(ctx, relay.ChatRequest{
		Message:        text,
		ConversationID: convID,
		UserID:         c.userID,
	})
	switch {
	case err != nil:
		out.Reason, out.Err = ReasonRelayFailed, err
	case strings.TrimSpace(reply) == "":
		out.Reason = ReasonEmptyReply
	default:
		saved, err := c.store.InsertMessage(ctx, convID, chat.RoleAssistant, reply)
		if err == nil {
			c.received(*saved)
			out.Reply = *saved
			return out, nil
		}
		out.Reason, out.Err = ReasonStoreFailed, err
	}

	l.Warn().
		Err(out.Err).
		Str(log.FieldConversationID, convID).
		Str("reason", string(out.Reason)).
		Msg("send degraded")
	out.Reply = c.degrade(ctx, convID)
	return out, nil
}

func (c *Composer) degrade(ctx context.Context, convID string) chat.Message {
	saved, err := c.store.InsertMessage(ctx, convID, chat.RoleAssistant, DegradedText)
	if err == nil {
		c.received(*saved)
		return *saved
	}

	l := log.Ctx(ctx)
	l.Error().Err(err).Str(log.FieldConversationID, convID).Msg("save degraded reply failed")
	local := chat.Message{
		ConversationID: convID,
		Role:           chat.RoleAssistant,
		Content:        DegradedText,
		LocalID:        uuid.NewString(),
	}
	c.state.Dispatch(chatstate.MessageReceived{Message: local})
	return local
}

func (c *Composer) received(m chat.Message) {
	c.state.Dispatch(chatstate.MessageReceived{Message: m})
	c.state.Dispatch(chatstate.ConversationTouched{ID: m.ConversationID, UpdatedAt: m.CreatedAt})
}

func (c *Composer) deriveTitle(ctx context.Context, convID, firstMessage string) {
	ctx = context.WithoutCancel(ctx)
	title := chat.DeriveTitle(firstMessage)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		conv, err := c.store.UpdateConversation(ctx, convID, chat.ConversationPatch{Title: &title})
		if err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldConversationID, convID).Msg("update title failed")
			return
		}
		c.state.Dispatch(chatstate.ConversationRenamed{Conversation: *conv})
	}()
}
