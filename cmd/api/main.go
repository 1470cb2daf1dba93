package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suPer8Hu/n8n-chat/internal/audit"
	"github.com/suPer8Hu/n8n-chat/internal/config"
	"github.com/suPer8Hu/n8n-chat/internal/db"
	"github.com/suPer8Hu/n8n-chat/internal/httpapi"
	"github.com/suPer8Hu/n8n-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/n8n-chat/internal/log"
	"github.com/suPer8Hu/n8n-chat/internal/metrics"
	"github.com/suPer8Hu/n8n-chat/internal/relay"
	"github.com/suPer8Hu/n8n-chat/internal/store/rabbitmq"
	"github.com/suPer8Hu/n8n-chat/internal/store/redisstore"
)

func main() {
	cfg := config.Load()
	log.Init(log.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, ServiceName: "api"})
	logger := log.L()

	gdb, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db open")
	}
	if err := db.Migrate(gdb); err != nil {
		logger.Fatal().Err(err).Msg("db migrate")
	}

	var rds *redisstore.Store
	if cfg.RedisAddr != "" {
		rds = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rds.Ping(pctx)
		cancel()
		if err != nil {
			// the send guard falls back to in-process leases
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, continuing without it")
			_ = rds.Close()
			rds = nil
		} else {
			defer rds.Close()
		}
	}

	// relay events go to the worker through RabbitMQ, or straight to the db
	var events relay.Observer
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			logger.Fatal().Err(err).Msg("rabbit publisher")
		}
		defer pub.Close()
		events = pub
	} else {
		events = audit.NewRecorder(audit.NewRepo(gdb))
	}

	if cfg.N8NWebhookURL == "" {
		logger.Warn().Msg("N8N_WEBHOOK_URL is not set; chat replies will explain how to configure it")
	}

	h := handlers.NewHandler(gdb, cfg, rds, metrics.New(nil), events)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("db_driver", cfg.DBDriver).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.RelayTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
