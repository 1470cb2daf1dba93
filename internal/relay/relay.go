// Package relay forwards user text to the configured n8n webhook and reduces
// whatever the workflow answers with to a single reply string.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/suPer8Hu/n8n-chat/internal/log"
)

const (
	NotConfiguredText = "The n8n webhook is not configured. Please set the N8N_WEBHOOK_URL environment variable to connect to your n8n workflow."
	FallbackText      = "Sorry, there was an error connecting to the AI service. Please check your n8n webhook configuration."

	DefaultTimeout = 30 * time.Second
	maxBodySize    = 5 * 1024 * 1024
)

var ErrEmptyMessage = errors.New("relay: message is required")

// Reason classifies how a relay call ended. It never reaches end users.
type Reason string

const (
	ReasonOK            Reason = "ok"
	ReasonNotConfigured Reason = "not_configured"
	ReasonUnreachable   Reason = "unreachable"
	ReasonTimeout       Reason = "timeout"
	ReasonBadStatus     Reason = "bad_status"
	ReasonMalformed     Reason = "malformed"
)

type Variant string

const (
	VariantChat Variant = "chat"
	VariantAsk  Variant = "ask"
)

type ChatRequest struct {
	Message        string
	ConversationID string
	UserID         string
}

type AskRequest struct {
	Question string
}

type Result struct {
	// Text is always safe to show: the reply, or a fixed fallback.
	Text       string
	Raw        json.RawMessage
	Reason     Reason
	StatusCode int
	Latency    time.Duration
	Err        error
}

// Failed reports whether the upstream call did not produce a reply.
func (r Result) Failed() bool { return r.Err != nil }

type Config struct {
	URL      string
	Timeout  time.Duration
	Client   *http.Client
	Observer Observer
}

type Relay struct {
	url      string
	client   *http.Client
	observer Observer
	now      func() time.Time
}

func New(cfg Config) *Relay {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Relay{
		url:      strings.TrimSpace(cfg.URL),
		client:   client,
		observer: cfg.Observer,
		now:      time.Now,
	}
}

func (r *Relay) Configured() bool { return r.url != "" }

type chatPayload struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Timestamp      string `json:"timestamp"`
}

type askPayload struct {
	Question  string `json:"question"`
	Timestamp string `json:"timestamp"`
}

// Chat relays one chat message. The only error is ErrEmptyMessage; upstream
// failures come back as a Result carrying FallbackText.
func (r *Relay) Chat(ctx context.Context, req ChatRequest) (Result, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Result{}, ErrEmptyMessage
	}
	payload := chatPayload{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Timestamp:      r.now().UTC().Format(time.RFC3339Nano),
	}
	res := r.forward(ctx, payload)
	r.observe(ctx, Event{
		Variant:        VariantChat,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
	}, res)
	return res, nil
}

// Ask relays a standalone question.
func (r *Relay) Ask(ctx context.Context, req AskRequest) (Result, error) {
	if strings.TrimSpace(req.Question) == "" {
		return Result{}, ErrEmptyMessage
	}
	payload := askPayload{
		Question:  req.Question,
		Timestamp: r.now().UTC().Format(time.RFC3339Nano),
	}
	res := r.forward(ctx, payload)
	r.observe(ctx, Event{Variant: VariantAsk}, res)
	return res, nil
}

func (r *Relay) forward(ctx context.Context, payload any) Result {
	if r.url == "" {
		return Result{Text: NotConfiguredText, Reason: ReasonNotConfigured}
	}

	start := r.now()
	res := r.do(ctx, payload)
	res.Latency = r.now().Sub(start)
	if res.Err != nil {
		res.Text = FallbackText
	}
	return res
}

func (r *Relay) do(ctx context.Context, payload any) Result {
	b, err := json.Marshal(payload)
	if err != nil {
		return Result{Reason: ReasonMalformed, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(b))
	if err != nil {
		return Result{Reason: ReasonUnreachable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Result{Reason: ReasonTimeout, Err: err}
		}
		return Result{Reason: ReasonUnreachable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if isTimeout(err) {
			return Result{Reason: ReasonTimeout, StatusCode: resp.StatusCode, Err: err}
		}
		return Result{Reason: ReasonUnreachable, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{
			Reason:     ReasonBadStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("webhook responded with status %d: %s", resp.StatusCode, snippet(body)),
		}
	}

	text, err := Normalize(body)
	if err != nil {
		return Result{Reason: ReasonMalformed, StatusCode: resp.StatusCode, Err: err}
	}
	return Result{
		Text:       text,
		Raw:        json.RawMessage(bytes.TrimSpace(body)),
		Reason:     ReasonOK,
		StatusCode: resp.StatusCode,
	}
}

func (r *Relay) observe(ctx context.Context, evt Event, res Result) {
	evt.Reason = res.Reason
	evt.StatusCode = res.StatusCode
	evt.Latency = res.Latency
	evt.OccurredAt = r.now()
	if res.Err != nil {
		evt.Detail = res.Err.Error()
	}

	l := log.Ctx(ctx)
	if res.Failed() {
		l.Warn().
			Str("variant", string(evt.Variant)).
			Str("reason", string(res.Reason)).
			Int("upstream_status", res.StatusCode).
			Dur("latency", res.Latency).
			Err(res.Err).
			Msg("relay failed")
	} else {
		l.Debug().
			Str("variant", string(evt.Variant)).
			Str("reason", string(res.Reason)).
			Dur("latency", res.Latency).
			Msg("relay done")
	}

	if r.observer != nil {
		r.observer.ObserveRelay(ctx, evt)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}
