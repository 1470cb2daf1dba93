package sendguard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_OneLeasePerKey(t *testing.T) {
	g := NewMemory(time.Minute)
	ctx := context.Background()

	release, err := g.Acquire(ctx, "a")
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "a")
	assert.ErrorIs(t, err, ErrBusy)

	other, err := g.Acquire(ctx, "b")
	require.NoError(t, err)
	other()

	release()
	release() // idempotent

	again, err := g.Acquire(ctx, "a")
	require.NoError(t, err)
	again()
}

func TestMemory_ExpiredLeaseCanBeTakenOver(t *testing.T) {
	g := NewMemory(time.Second)
	now := time.Unix(1000, 0)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := g.Acquire(ctx, "a")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := g.Acquire(ctx, "a")
	require.NoError(t, err)

	// the stale holder must not free the new lease
	stale()
	_, err = g.Acquire(ctx, "a")
	assert.ErrorIs(t, err, ErrBusy)

	fresh()
	_, err = g.Acquire(ctx, "a")
	assert.NoError(t, err)
}

func TestNew_FallsBackToMemory(t *testing.T) {
	_, ok := New(nil, time.Second).(*Memory)
	assert.True(t, ok)
}
