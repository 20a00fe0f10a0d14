package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/subgatebot/subgate/core/config"
	coredatabase "github.com/subgatebot/subgate/core/database"
)

// Store backends.
const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)

// SubmissionsConfig tunes the intake pipeline.
type SubmissionsConfig struct {
	// DebounceMS is the quiet window for media-group assembly.
	DebounceMS int `yaml:"debounce_ms" envconfig:"SUBMISSIONS_DEBOUNCE_MS"`
}

// StoreConfig selects where moderation settings persist.
type StoreConfig struct {
	Backend  string `yaml:"backend" envconfig:"STORE_BACKEND"`
	FilePath string `yaml:"file_path" envconfig:"STORE_FILE_PATH"`
}

// SenderConfig tunes the async outbound queue.
type SenderConfig struct {
	QueueSize      int `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	Workers        int `yaml:"workers" envconfig:"SENDER_WORKERS"`
	MaxRetries     int `yaml:"max_retries" envconfig:"SENDER_MAX_RETRIES"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" envconfig:"SENDER_RETRY_BACKOFF_MS"`
}

// Config is the full application configuration.
type Config struct {
	Core        coreconfig.Config   `yaml:",inline"`
	Submissions SubmissionsConfig   `yaml:"submissions"`
	Store       StoreConfig         `yaml:"store"`
	Database    coredatabase.Config `yaml:"database"`
	Sender      SenderConfig        `yaml:"sender"`
}

// CoreConfig exposes the embedded core configuration to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// LoadConfig reads the application configuration from YAML plus environment
// overrides and validates it.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalize(cfg *Config) error {
	if cfg.Submissions.DebounceMS < 0 {
		return fmt.Errorf("submissions.debounce_ms must be >= 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if backend == "" {
		backend = StoreBackendFile
	}
	switch backend {
	case StoreBackendFile:
		if strings.TrimSpace(cfg.Store.FilePath) == "" {
			cfg.Store.FilePath = "data/state.json"
		}
	case StoreBackendPostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" {
			return fmt.Errorf("database.host is required when store.backend is 'postgres'")
		}
		if strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.name is required when store.backend is 'postgres'")
		}
	default:
		return fmt.Errorf("invalid store.backend %q; allowed: file, postgres", cfg.Store.Backend)
	}
	cfg.Store.Backend = backend
	return nil
}
