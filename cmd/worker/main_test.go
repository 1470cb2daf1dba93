package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suPer8Hu/n8n-chat/internal/audit"
	"github.com/suPer8Hu/n8n-chat/internal/db/dbtest"
	"github.com/suPer8Hu/n8n-chat/internal/relay"
)

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	repo := audit.NewRepo(dbtest.Open(t))

	e, err := audit.FromRelay(relay.Event{Variant: relay.VariantChat, Reason: relay.ReasonUnreachable})
	require.NoError(t, err)
	body, err := json.Marshal(e)
	require.NoError(t, err)

	require.NoError(t, handleEvent(ctx, repo, body))
	// redelivery of the same event is not an error and not a second row
	require.NoError(t, handleEvent(ctx, repo, body))

	got, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, e.ID, got[0].ID)
	assert.Equal(t, "unreachable", got[0].Outcome)
}

func TestHandleEvent_BadMessages(t *testing.T) {
	repo := audit.NewRepo(dbtest.Open(t))

	err := handleEvent(context.Background(), repo, []byte("not json"))
	assert.True(t, errors.Is(err, errBadMessage))

	err = handleEvent(context.Background(), repo, []byte(`{"variant":"chat"}`))
	assert.True(t, errors.Is(err, errBadMessage))
}
