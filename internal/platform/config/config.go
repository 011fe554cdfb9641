// Package config centralizes the environment surface so main stays lean.
// Nothing in the domain packages reads the environment directly.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full application configuration.
type Config struct {
	Server     Server
	Database   Database
	Redis      Redis
	Kafka      Kafka
	JWT        JWT
	Encryption Encryption
	Ledger     Ledger
	Sync       Sync
	Audit      Audit
	Tracing    Tracing
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string
	LogLevel string
}

// Database holds the PostgreSQL connection settings. An empty URL selects the
// in-memory stores, which is what the test and local-dev paths use.
type Database struct {
	URL string
}

// Redis holds the cache connection settings. Empty Addr disables the ledger
// blob cache.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Kafka holds the audit event pipeline settings. Empty Brokers disables the
// broker sink; audit events still land in the structured log.
type Kafka struct {
	Brokers    []string
	ClientID   string
	AuditTopic string
}

// JWT holds token validation settings.
type JWT struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// Encryption holds field-encryption key material. Either a direct key or a
// password+salt pair; see the crypto package for precedence.
type Encryption struct {
	Key      string
	Password string
	Salt     string
}

// Ledger holds the external ledger and content-store endpoints. Empty
// endpoint degrades to a permanently disconnected client.
type Ledger struct {
	RPCEndpoint string
	Contract    string
	IPFSAPIURL  string
	Signer      string
}

// Sync tunes the batch synchronization engine.
type Sync struct {
	BatchSize      int
	RetryLimit     int
	RetryBaseDelay time.Duration
	Interval       time.Duration
}

// Audit tunes the in-process audit event pipeline.
type Audit struct {
	Buffer int
}

// Tracing holds the OTLP exporter target. Empty endpoint installs a no-op
// tracer.
type Tracing struct {
	Endpoint string
	Insecure bool
}

// FromEnv builds a Config from environment variables, loading a .env file
// first when one exists.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Server: Server{
			Addr:     getEnv("ADDRESSHUB_ADDR", ":8080"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: Redis{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: Kafka{
			Brokers:    splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			ClientID:   getEnv("KAFKA_CLIENT_ID", "addresshub"),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "addresshub.audit"),
		},
		JWT: JWT{
			SigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     getEnv("JWT_ISSUER", "addresshub"),
			Audience:   getEnv("JWT_AUDIENCE", "addresshub"),
		},
		Encryption: Encryption{
			Key:      os.Getenv("ENCRYPTION_KEY"),
			Password: os.Getenv("ENCRYPTION_PASSWORD"),
			Salt:     os.Getenv("ENCRYPTION_SALT"),
		},
		Ledger: Ledger{
			RPCEndpoint: os.Getenv("LEDGER_RPC_ENDPOINT"),
			Contract:    os.Getenv("LEDGER_CONTRACT"),
			IPFSAPIURL:  os.Getenv("IPFS_API_URL"),
			Signer:      os.Getenv("LEDGER_SIGNER"),
		},
		Sync: Sync{
			BatchSize:      getEnvInt("SYNC_BATCH_SIZE", 10),
			RetryLimit:     getEnvInt("SYNC_RETRY_LIMIT", 3),
			RetryBaseDelay: getEnvDuration("SYNC_RETRY_BASE_DELAY", 2*time.Second),
			Interval:       getEnvDuration("SYNC_INTERVAL", time.Minute),
		},
		Audit: Audit{
			Buffer: getEnvInt("AUDIT_BUFFER", 256),
		},
		Tracing: Tracing{
			Endpoint: os.Getenv("OTLP_ENDPOINT"),
			Insecure: os.Getenv("OTLP_INSECURE") == "true",
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
