package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"orderhub/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	HTTPPort string
	GRPCPort string

	DB       DB
	Redis    Redis
	Kafka    Kafka
	JWT      JWT
	EventBus EventBus
	Stock    Stock

	PaymentWebhookSecret string
	ServiceSecret        string
	CORSAllowOrigins     []string
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	OrderTTL time.Duration
}

type Kafka struct {
	Brokers          []string
	EmailTopic       string
	SearchIndexTopic string
}

type JWT struct {
	Secret   string
	Issuer   string
	Audience string
}

// EventBus — параметры in-process шины событий.
type EventBus struct {
	Enabled            bool
	MaxQueueSize       int
	ProcessingInterval time.Duration
	RetryAttempts      int
	RetryDelay         time.Duration
	BatchSize          int
	HandlerTimeout     time.Duration
}

type Stock struct {
	ReservationTTL time.Duration
	SweepInterval  time.Duration
}

func Load(log *zap.Logger) *Config {
	return &Config{
		HTTPPort: getEnv("HTTP_PORT", log),
		GRPCPort: getEnvDefault("GRPC_PORT", ":50053"),
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		},
		Redis: Redis{
			Enabled:  getEnvDefault("REDIS_ENABLED", "true") == "true",
			Addr:     getEnvDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       atoiDefault(os.Getenv("REDIS_DB"), 0),
			OrderTTL: time.Duration(atoiDefault(os.Getenv("CACHE_TTL_SECONDS"), 60)) * time.Second,
		},
		Kafka: Kafka{
			Brokers:          splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			EmailTopic:       getEnvDefault("KAFKA_TOPIC_EMAIL", "email.send"),
			SearchIndexTopic: getEnvDefault("KAFKA_TOPIC_SEARCH_INDEX", "search.index"),
		},
		JWT: JWT{
			Secret:   getEnv("JWT_SECRET", log),
			Issuer:   getEnv("JWT_ISSUER", log),
			Audience: getEnv("JWT_AUDIENCE", log),
		},
		EventBus: LoadEventBus(),
		Stock: Stock{
			ReservationTTL: durationDefault(os.Getenv("RESERVATION_TTL"), 15*time.Minute),
			SweepInterval:  durationDefault(os.Getenv("RESERVATION_SWEEP_INTERVAL"), time.Minute),
		},
		PaymentWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", log),
		ServiceSecret:        getEnv("SERVICE_SECRET", log),
		CORSAllowOrigins:     splitAndTrim(os.Getenv("CORS_ALLOW_ORIGINS")),
	}
}

// LoadEventBus читает EVENT_BUS_* переменные; все необязательные.
func LoadEventBus() EventBus {
	return EventBus{
		Enabled:            getEnvDefault("EVENT_BUS_ENABLED", "true") != "false",
		MaxQueueSize:       atoiDefault(os.Getenv("EVENT_BUS_MAX_QUEUE_SIZE"), 1000),
		ProcessingInterval: msDefault(os.Getenv("EVENT_BUS_PROCESSING_INTERVAL_MS"), 100),
		RetryAttempts:      atoiDefault(os.Getenv("EVENT_BUS_RETRY_ATTEMPTS"), 3),
		RetryDelay:         msDefault(os.Getenv("EVENT_BUS_RETRY_DELAY_MS"), 1000),
		BatchSize:          atoiDefault(os.Getenv("EVENT_BUS_BATCH_SIZE"), 10),
		HandlerTimeout:     msDefault(os.Getenv("EVENT_BUS_HANDLER_TIMEOUT_MS"), 30000),
	}
}

// Notifier — настройки воркера писем (cmd/notifier).
type Notifier struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPSSL      bool

	TMPLDir string

	KafkaBrokers []string
	KafkaGroupID string
	KafkaTopic   string
}

func LoadNotifier(log *zap.Logger) *Notifier {
	return &Notifier{
		SMTPHost:     getEnv("SMTP_HOST", log),
		SMTPPort:     getEnvInt("SMTP_PORT", log),
		SMTPUser:     getEnv("SMTP_USER", log),
		SMTPPassword: getEnv("SMTP_PASSWORD", log),
		SMTPFrom:     getEnv("SMTP_FROM", log),
		SMTPSSL:      getEnvDefault("SMTP_SSL", "true") != "false",
		TMPLDir:      getEnvDefault("TMPL_DIR", "templates"),
		KafkaBrokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID: getEnvDefault("KAFKA_GROUP_ID", "notifier"),
		KafkaTopic:   getEnvDefault("KAFKA_TOPIC_EMAIL", "email.send"),
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvInt(key string, log *zap.Logger) int {
	valStr := getEnv(key, log)
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Error("Ошибка преобразования переменной окружения в int", zap.String("key", key), zap.Error(err))
		panic("invalid int value for environment variable: " + key)
	}
	return val
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func msDefault(s string, def int) time.Duration {
	return time.Duration(atoiDefault(s, def)) * time.Millisecond
}

func durationDefault(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
