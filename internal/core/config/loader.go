package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in defaults for unset fields.
func (cfg *AppConfig) ApplyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "botwatch.tx.observed"
	}
	if cfg.NATS.RetrySubject == "" {
		cfg.NATS.RetrySubject = "botwatch.tx.retry"
	}
	if cfg.NATS.Durable == "" {
		cfg.NATS.Durable = "botwatch-ingest"
	}
	if cfg.NATS.BatchSize == 0 {
		cfg.NATS.BatchSize = 10
	}

	if cfg.Solana.PollInterval == 0 {
		cfg.Solana.PollInterval = 15 * time.Second
	}
	if cfg.Solana.SignatureLimit == 0 {
		cfg.Solana.SignatureLimit = 20
	}
	if cfg.Solana.BalanceInterval == 0 {
		cfg.Solana.BalanceInterval = time.Minute
	}

	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Ingest.QueueSize == 0 {
		cfg.Ingest.QueueSize = 256
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 5
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = 2 * time.Second
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 60 * time.Second
	}
	if cfg.Retry.ScanInterval == 0 {
		cfg.Retry.ScanInterval = 30 * time.Second
	}

	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "botwatch:notifications"
	}
	if cfg.Redis.DedupeTTL == 0 {
		cfg.Redis.DedupeTTL = 24 * time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
