package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) ObserveRelay(_ context.Context, evt Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, evt)
}

func TestChat_ForwardsPayloadAndNormalizes(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":"hi there"}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	r := New(Config{URL: srv.URL, Observer: obs})

	res, err := r.Chat(context.Background(), ChatRequest{Message: "hello", ConversationID: "c1", UserID: "7"})
	require.NoError(t, err)

	assert.False(t, res.Failed())
	assert.Equal(t, "hi there", res.Text)
	assert.Equal(t, ReasonOK, res.Reason)
	assert.Equal(t, "hello", got["message"])
	assert.Equal(t, "c1", got["conversationId"])
	assert.Equal(t, "7", got["userId"])
	ts, ok := got["timestamp"].(string)
	require.True(t, ok)
	_, perr := time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, perr)

	require.Len(t, obs.events, 1)
	assert.Equal(t, VariantChat, obs.events[0].Variant)
	assert.Equal(t, ReasonOK, obs.events[0].Reason)
}

func TestChat_EmptyMessageMakesNoCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	r := New(Config{URL: srv.URL})
	_, err := r.Chat(context.Background(), ChatRequest{Message: "  \n"})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.False(t, called)
}

func TestChat_NotConfigured(t *testing.T) {
	obs := &recordingObserver{}
	r := New(Config{Observer: obs})

	res, err := r.Chat(context.Background(), ChatRequest{Message: "Hello"})
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, NotConfiguredText, res.Text)
	assert.Equal(t, ReasonNotConfigured, res.Reason)
	require.Len(t, obs.events, 1)
	assert.Equal(t, ReasonNotConfigured, obs.events[0].Reason)
}

func TestChat_UpstreamFailuresFallBack(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		reason  Reason
	}{
		{
			name: "bad status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "workflow crashed", http.StatusBadGateway)
			},
			reason: ReasonBadStatus,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			reason: ReasonMalformed,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>oops</html>"))
			},
			reason: ReasonMalformed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			res, err := New(Config{URL: srv.URL}).Chat(context.Background(), ChatRequest{Message: "q"})
			require.NoError(t, err)
			assert.True(t, res.Failed())
			assert.Equal(t, FallbackText, res.Text)
			assert.Equal(t, tc.reason, res.Reason)
		})
	}
}

func TestChat_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	res, err := New(Config{URL: srv.URL, Timeout: 50 * time.Millisecond}).
		Chat(context.Background(), ChatRequest{Message: "q"})
	require.NoError(t, err)
	assert.Equal(t, ReasonTimeout, res.Reason)
	assert.Equal(t, FallbackText, res.Text)
}

func TestChat_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res, err := New(Config{URL: url}).Chat(context.Background(), ChatRequest{Message: "q"})
	require.NoError(t, err)
	assert.Equal(t, ReasonUnreachable, res.Reason)
	assert.Error(t, res.Err)
	assert.Equal(t, FallbackText, res.Text)
}

func TestAsk_ForwardsQuestion(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"answer":"42","sources":[]}`))
	}))
	defer srv.Close()

	res, err := New(Config{URL: srv.URL}).Ask(context.Background(), AskRequest{Question: "meaning?"})
	require.NoError(t, err)
	assert.Equal(t, "meaning?", got["question"])
	assert.JSONEq(t, `{"answer":"42","sources":[]}`, string(res.Raw))
	assert.Equal(t, `{"answer":"42","sources":[]}`, res.Text)
}

func TestObservers_SkipsNil(t *testing.T) {
	a := &recordingObserver{}
	var n int
	o := Observers(nil, a, ObserverFunc(func(context.Context, Event) { n++ }))
	o.ObserveRelay(context.Background(), Event{Reason: ReasonOK})
	assert.Len(t, a.events, 1)
	assert.Equal(t, 1, n)
}
