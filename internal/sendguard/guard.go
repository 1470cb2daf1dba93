// Package sendguard keeps two sends for the same conversation from
// overlapping on the server.
package sendguard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/suPer8Hu/n8n-chat/internal/log"
	"github.com/suPer8Hu/n8n-chat/internal/store/redisstore"
)

var ErrBusy = errors.New("sendguard: send already in flight")

// Guard hands out one lease per key at a time.
type Guard interface {
	// Acquire returns ErrBusy when key is held. release must be called once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// New returns a Redis backed guard when rds is set, else an in-process one.
func New(rds *redisstore.Store, ttl time.Duration) Guard {
	if rds == nil {
		return NewMemory(ttl)
	}
	return &redisGuard{rds: rds, ttl: ttl}
}

type redisGuard struct {
	rds *redisstore.Store
	ttl time.Duration
}

func (g *redisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	token, ok, err := g.rds.AcquireSendLock(ctx, key, g.ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := g.rds.ReleaseSendLock(rctx, key, token); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldConversationID, key).Msg("release send lock failed")
		}
	}, nil
}

// Memory is a single process guard. Leases expire after ttl so a stuck
// request cannot block a conversation forever.
type Memory struct {
	mu     sync.Mutex
	ttl    time.Duration
	leases map[string]lease
	now    func() time.Time
	seq    uint64
}

type lease struct {
	id      uint64
	expires time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Memory{ttl: ttl, leases: make(map[string]lease), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, ok := m.leases[key]; ok && now.Before(l.expires) {
		return nil, ErrBusy
	}
	m.seq++
	id := m.seq
	m.leases[key] = lease{id: id, expires: now.Add(m.ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			// an expired lease may have been taken over
			if l, ok := m.leases[key]; ok && l.id == id {
				delete(m.leases, key)
			}
		})
	}, nil
}
