package handlers

import (
	"gorm.io/gorm"

	"github.com/suPer8Hu/n8n-chat/internal/chat"
	"github.com/suPer8Hu/n8n-chat/internal/config"
	"github.com/suPer8Hu/n8n-chat/internal/metrics"
	"github.com/suPer8Hu/n8n-chat/internal/relay"
	"github.com/suPer8Hu/n8n-chat/internal/sendguard"
	"github.com/suPer8Hu/n8n-chat/internal/store/redisstore"
)

type Handler struct {
	DB      *gorm.DB
	Cfg     config.Config
	Redis   *redisstore.Store
	ChatSvc *chat.Service

	// ChatRelay posts to N8N_WEBHOOK_URL, AskRelay to the standalone form's URL.
	ChatRelay *relay.Relay
	AskRelay  *relay.Relay
	Guard     sendguard.Guard
	Metrics   *metrics.Metrics
}

// NewHandler wires the services. rds and m may be nil.
func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, m *metrics.Metrics, obs relay.Observer) *Handler {
	if m != nil {
		obs = relay.Observers(m, obs)
	}
	return &Handler{
		DB:      db,
		Cfg:     cfg,
		Redis:   rds,
		ChatSvc: chat.NewService(chat.NewRepo(db)),
		ChatRelay: relay.New(relay.Config{
			URL:      cfg.N8NWebhookURL,
			Timeout:  cfg.RelayTimeout,
			Observer: obs,
		}),
		AskRelay: relay.New(relay.Config{
			URL:      cfg.AskWebhookURL,
			Timeout:  cfg.RelayTimeout,
			Observer: obs,
		}),
		Guard:   sendguard.New(rds, cfg.SendLockTTL),
		Metrics: m,
	}
}
