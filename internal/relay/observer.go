package relay

import (
	"context"
	"time"
)

// Event is the internal record of one relay call.
type Event struct {
	Variant        Variant       `json:"variant"`
	ConversationID string        `json:"conversation_id,omitempty"`
	UserID         string        `json:"user_id,omitempty"`
	Reason         Reason        `json:"reason"`
	StatusCode     int           `json:"status_code,omitempty"`
	Latency        time.Duration `json:"latency_ns"`
	Detail         string        `json:"detail,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

type Observer interface {
	ObserveRelay(ctx context.Context, evt Event)
}

type ObserverFunc func(ctx context.Context, evt Event)

func (f ObserverFunc) ObserveRelay(ctx context.Context, evt Event) { f(ctx, evt) }

// Observers fans one event out to several observers, skipping nils.
func Observers(obs ...Observer) Observer {
	var out multi
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multi []Observer

func (m multi) ObserveRelay(ctx context.Context, evt Event) {
	for _, o := range m {
		o.ObserveRelay(ctx, evt)
	}
}
