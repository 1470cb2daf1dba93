package chat

import "context"

// UserStore binds a Service to one authenticated user.
type UserStore struct {
	svc    *Service
	userID uint64
}

func (s *Service) For(userID uint64) *UserStore {
	return &UserStore{svc: s, userID: userID}
}

func (u *UserStore) UserID() uint64 { return u.userID }

func (u *UserStore) ListConversations(ctx context.Context) ([]Conversation, error) {
	return u.svc.ListConversations(ctx, u.userID)
}

func (u *UserStore) CreateConversation(ctx context.Context, title, idempotencyKey string) (*Conversation, error) {
	c, _, err := u.svc.CreateConversation(ctx, u.userID, title, idempotencyKey)
	return c, err
}

func (u *UserStore) UpdateConversation(ctx context.Context, id string, patch ConversationPatch) (*Conversation, error) {
	return u.svc.UpdateConversation(ctx, u.userID, id, patch)
}

func (u *UserStore) DeleteConversation(ctx context.Context, id string) error {
	return u.svc.DeleteConversation(ctx, u.userID, id)
}

func (u *UserStore) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	return u.svc.ListMessages(ctx, u.userID, conversationID)
}

func (u *UserStore) InsertMessage(ctx context.Context, conversationID string, role Role, content string) (*Message, error) {
	return u.svc.InsertMessage(ctx, u.userID, conversationID, role, content)
}
