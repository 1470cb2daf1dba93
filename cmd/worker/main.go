package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/suPer8Hu/n8n-chat/internal/audit"
	"github.com/suPer8Hu/n8n-chat/internal/config"
	"github.com/suPer8Hu/n8n-chat/internal/db"
	"github.com/suPer8Hu/n8n-chat/internal/log"
	"github.com/suPer8Hu/n8n-chat/internal/store/rabbitmq"
)

const (
	maxRetries = 3
	retryDelay = 5 * time.Second
)

// errBadMessage marks deliveries that can never succeed.
var errBadMessage = errors.New("bad message")

func main() {
	cfg := config.Load()
	log.Init(log.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, ServiceName: "worker"})
	logger := log.L()

	if cfg.RabbitURL == "" {
		logger.Fatal().Msg("RABBIT_URL is required for the worker")
	}

	gdb, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db open")
	}
	if err := db.Migrate(gdb); err != nil {
		logger.Fatal().Err(err).Msg("db migrate")
	}
	repo := audit.NewRepo(gdb)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("rabbit dial")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal().Err(err).Msg("rabbit channel")
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		logger.Fatal().Err(err).Msg("queue declare")
	}
	retry := rabbitmq.NewChannelPublisher(ch, cfg.RabbitQueue)

	//  strict concurrency control
	concurrency := cfg.WorkerConcurrency

	if err := ch.Qos(concurrency, 0, false); err != nil {
		logger.Fatal().Err(err).Msg("qos")
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("queue", cfg.RabbitQueue).Int("concurrency", concurrency).Msg("worker started")

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			wl := logger.With().Int("worker", workerID).Logger()
			for d := range jobs {
				start := time.Now()
				err := handleEvent(ctx, repo, d.Body)
				switch {
				case err == nil:
					if err := d.Ack(false); err != nil {
						wl.Warn().Err(err).Str("message_id", d.MessageId).Msg("ack failed")
					}

				case errors.Is(err, errBadMessage):
					wl.Warn().Err(err).Msg("dropping to dlq")
					_ = d.Nack(false, false)

				default:
					n := rabbitmq.Retries(d.Headers)
					if n >= maxRetries {
						wl.Error().Err(err).Int("retries", n).Msg("giving up, dropping to dlq")
						_ = d.Nack(false, false)
						continue
					}
					if perr := retry.PublishRetry(ctx, d.Body, n+1, retryDelay); perr != nil {
						wl.Error().Err(perr).Msg("retry publish failed")
						_ = d.Nack(false, false)
						continue
					}
					wl.Warn().Err(err).Int("retries", n+1).Dur("cost", time.Since(start)).Msg("store failed, retrying")
					_ = d.Ack(false)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				logger.Warn().Msg("delivery channel closed")
				close(jobs)
				wg.Wait()
				return
			}
			jobs <- d
		}
	}
}

func handleEvent(ctx context.Context, repo *audit.Repo, body []byte) error {
	var e audit.RelayEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}
	if err := repo.Insert(ctx, &e); err != nil {
		if errors.Is(err, audit.ErrInvalidEvent) {
			return fmt.Errorf("%w: %v", errBadMessage, err)
		}
		return err
	}
	return nil
}
