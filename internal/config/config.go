package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SendLockTTL   time.Duration

	// n8n webhooks
	N8NWebhookURL string
	AskWebhookURL string
	RelayTimeout  time.Duration
	ChannelSecret string

	// rabbitMQ
	RabbitURL         string
	RabbitQueue       string
	WorkerConcurrency int

	LogLevel  string
	LogPretty bool

	CORSOrigins []string
}

const defaultAskWebhookURL = "http://localhost:5678/webhook/test"

// Load reads .env (if present), then config.yaml (if present) and the process
// environment. Environment variables win over the file.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// missing file is fine, env only
	_ = v.ReadInConfig()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")

	// DSN demo:
	// host=127.0.0.1 user=app password=apppass dbname=n8n_chat port=5432 sslmode=disable
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_DSN", "host=127.0.0.1 user=app password=apppass dbname=n8n_chat port=5432 sslmode=disable")

	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("JWT_TTL", "24h")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SEND_LOCK_TTL", "60s")

	v.SetDefault("N8N_WEBHOOK_URL", "")
	v.SetDefault("RELAY_TIMEOUT", "30s")

	v.SetDefault("RABBIT_URL", "")
	v.SetDefault("RABBIT_QUEUE", "relay_events")
	v.SetDefault("WORKER_CONCURRENCY", 2)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("CORS_ORIGINS", "*")
}

func fromViper(v *viper.Viper) Config {
	chatURL := strings.TrimSpace(v.GetString("N8N_WEBHOOK_URL"))

	// the standalone form always has somewhere to post to
	askURL := strings.TrimSpace(v.GetString("ASK_WEBHOOK_URL"))
	if askURL == "" {
		askURL = chatURL
	}
	if askURL == "" {
		askURL = defaultAskWebhookURL
	}

	concurrency := v.GetInt("WORKER_CONCURRENCY")
	if concurrency <= 0 {
		concurrency = 2
	}
	if concurrency > 50 {
		concurrency = 50
	}

	relayTimeout := v.GetDuration("RELAY_TIMEOUT")
	if relayTimeout <= 0 {
		relayTimeout = 30 * time.Second
	}

	jwtTTL := v.GetDuration("JWT_TTL")
	if jwtTTL <= 0 {
		jwtTTL = 24 * time.Hour
	}

	lockTTL := v.GetDuration("SEND_LOCK_TTL")
	if lockTTL <= 0 {
		lockTTL = 60 * time.Second
	}

	return Config{
		HTTPAddr: v.GetString("HTTP_ADDR"),

		DBDriver: strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		DBDSN:    v.GetString("DB_DSN"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTTTL:    jwtTTL,

		RedisAddr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		SendLockTTL:   lockTTL,

		N8NWebhookURL: chatURL,
		AskWebhookURL: askURL,
		RelayTimeout:  relayTimeout,
		ChannelSecret: v.GetString("CHANNEL_SECRET"),

		RabbitURL:         strings.TrimSpace(v.GetString("RABBIT_URL")),
		RabbitQueue:       v.GetString("RABBIT_QUEUE"),
		WorkerConcurrency: concurrency,

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogPretty: v.GetBool("LOG_PRETTY"),

		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
