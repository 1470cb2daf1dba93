// Package audit keeps the internal history of relay calls. Nothing here is
// ever shown to end users.
package audit

import (
	"time"

	"github.com/suPer8Hu/n8n-chat/internal/common"
	"github.com/suPer8Hu/n8n-chat/internal/relay"
)

type RelayEvent struct {
	// ULID assigned when the event is first recorded, so redelivery is a no-op.
	ID             string    `gorm:"type:varchar(26);primaryKey" json:"id"`
	Variant        string    `gorm:"type:varchar(16);not null;index:idx_relay_events_variant_time,priority:1" json:"variant"`
	ConversationID string    `gorm:"type:varchar(26);index" json:"conversation_id,omitempty"`
	UserID         string    `gorm:"type:varchar(32)" json:"user_id,omitempty"`
	Outcome        string    `gorm:"type:varchar(32);not null;index" json:"outcome"`
	StatusCode     int       `json:"status_code,omitempty"`
	LatencyMS      int64     `json:"latency_ms"`
	Detail         string    `gorm:"type:text" json:"detail,omitempty"`
	OccurredAt     time.Time `gorm:"not null;index:idx_relay_events_variant_time,priority:2" json:"occurred_at"`
}

func (RelayEvent) TableName() string { return "relay_events" }

// FromRelay converts a relay observation and assigns it an id.
func FromRelay(evt relay.Event) (RelayEvent, error) {
	id, err := common.NewULID()
	if err != nil {
		return RelayEvent{}, err
	}
	occurred := evt.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return RelayEvent{
		ID:             id,
		Variant:        string(evt.Variant),
		ConversationID: evt.ConversationID,
		UserID:         evt.UserID,
		Outcome:        string(evt.Reason),
		StatusCode:     evt.StatusCode,
		LatencyMS:      evt.Latency.Milliseconds(),
		Detail:         truncate(evt.Detail, 1024),
		OccurredAt:     occurred.UTC(),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
