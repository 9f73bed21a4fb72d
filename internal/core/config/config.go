package config

import (
	"time"

	redisclient "botwatch/internal/infra/redis"
	"botwatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Database  postgres.Config    `yaml:"database"`
	Redis     redisclient.Config `yaml:"redis"`
	NATS      NATSConfig         `yaml:"nats"`
	Solana    SolanaConfig       `yaml:"solana"`
	Ingest    IngestConfig       `yaml:"ingest"`
	Retry     RetryConfig        `yaml:"retry"`
	Retention RetentionConfig    `yaml:"retention"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"` // empty disables bearer auth
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// NATSConfig holds the JetStream ingest source settings.
// An empty URL disables the consumer.
type NATSConfig struct {
	URL          string `yaml:"url"`
	Subject      string `yaml:"subject"`
	RetrySubject string `yaml:"retry_subject"`
	Durable      string `yaml:"durable"`
	BatchSize    int    `yaml:"batch_size"`
}

// SolanaConfig holds the chain observer settings.
// An empty RPCURLs list disables the observer.
type SolanaConfig struct {
	RPCURLs         []string      `yaml:"rpc_urls"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	SignatureLimit  int           `yaml:"signature_limit"`
	BalanceInterval time.Duration `yaml:"balance_interval"`
}

// IngestConfig holds the ingest pipeline settings.
type IngestConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// RetryConfig holds the failed transaction retry policy.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	ScanInterval time.Duration `yaml:"scan_interval"`
}

// RetentionConfig holds data retention periods. 0 = keep forever.
type RetentionConfig struct {
	Transactions  time.Duration `yaml:"transactions"`
	Notifications time.Duration `yaml:"notifications"`
}
