package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suPer8Hu/n8n-chat/internal/chat"
	"github.com/suPer8Hu/n8n-chat/internal/composer"
	"github.com/suPer8Hu/n8n-chat/internal/db/dbtest"
	"github.com/suPer8Hu/n8n-chat/internal/relay"
)

func runShell(t *testing.T, store composer.Store, input string) string {
	t.Helper()
	echo := composer.RelayFunc(func(ctx context.Context, req relay.ChatRequest) (string, error) {
		return "echo: " + req.Message, nil
	})
	var out bytes.Buffer
	sh := newShell(composer.New(store, echo, "1"), bufio.NewReader(strings.NewReader(input)), &out)
	require.NoError(t, sh.run(context.Background()))
	return out.String()
}

func TestShell_SendListOpenDelete(t *testing.T) {
	store := chat.NewService(chat.NewRepo(dbtest.Open(t))).For(1)

	out := runShell(t, store, "hello there\n/list\n/quit\n")
	assert.Contains(t, out, "no conversations yet")
	assert.Contains(t, out, "assistant: echo: hello there")
	assert.Contains(t, out, "* 1. hello there")

	// a new session reopens the stored history
	out = runShell(t, store, "/open 1\n/rename 1 Greetings\n/list\n/delete 1\n/list\n")
	assert.Contains(t, out, "you: hello there")
	assert.Contains(t, out, "assistant: echo: hello there")
	assert.Contains(t, out, "1. Greetings")
	assert.Contains(t, out, `deleted "Greetings"`)

	convs, err := store.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestShell_BadInput(t *testing.T) {
	store := chat.NewService(chat.NewRepo(dbtest.Open(t))).For(1)

	out := runShell(t, store, "/open 3\n/bogus\n/help\n")
	assert.Contains(t, out, "no such conversation")
	assert.Contains(t, out, "unknown command")
	assert.Contains(t, out, "/rename N TITLE")
}
