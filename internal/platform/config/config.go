package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	// AuthorityID is the distinguished identity allowed to admit
	// participants and drive phase transitions. Required on first start
	// against an empty store.
	AuthorityID string
	// SessionName optionally names round 0; empty means "Session 1".
	SessionName string

	EnableOutboxRelay   bool
	EnableRoundArchiver bool
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int
}

func Load() (Config, error) {
	// Local development keeps settings in a .env file; a missing file is
	// not an error.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "agora"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		AuthorityID: strings.TrimSpace(os.Getenv("AUTHORITY_ID")),
		SessionName: strings.TrimSpace(os.Getenv("SESSION_NAME")),

		EnableOutboxRelay:   envBool("ENABLE_OUTBOX_RELAY", true),
		EnableRoundArchiver: envBool("ENABLE_ROUND_ARCHIVER", true),
		OutboxPollInterval:  envDurationMS("OUTBOX_POLL_INTERVAL_MS", 500*time.Millisecond),
		OutboxBatchSize:     envInt("OUTBOX_BATCH_SIZE", 100),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDurationMS(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Millisecond
}
