package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"production" yaml:"environment"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" yaml:"log_level"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080" yaml:"http_port"`
	ConfigFile  string `envconfig:"CONFIG_FILE" yaml:"-"`

	// Telegram
	BotToken    string `envconfig:"BOT_TOKEN" required:"true" yaml:"-"`
	BotUsername string `envconfig:"BOT_USERNAME" required:"true" yaml:"bot_username"`
	OwnerID     int64  `envconfig:"OWNER_ID" yaml:"owner_id"`
	APIBaseURL  string `envconfig:"API_BASE_URL" default:"https://api.telegram.org" yaml:"api_base_url"`
	PollTimeout int    `envconfig:"POLL_TIMEOUT" default:"30" yaml:"poll_timeout"`

	// Storage
	DBPath       string `envconfig:"DB_PATH" default:"afkbot.db" yaml:"db_path"`
	DownloadsDir string `envconfig:"DOWNLOADS_DIR" default:"downloads" yaml:"downloads_dir"`

	// Auto-delete
	SweepInterval     time.Duration `envconfig:"SWEEP_INTERVAL" default:"30s" yaml:"sweep_interval"`
	SweepErrorBackoff time.Duration `envconfig:"SWEEP_ERROR_BACKOFF" default:"2m" yaml:"sweep_error_backoff"`

	// Broadcast
	BroadcastRate     int           `envconfig:"BROADCAST_RATE" default:"20" yaml:"broadcast_rate"`
	BroadcastDraftTTL time.Duration `envconfig:"BROADCAST_DRAFT_TTL" default:"1h" yaml:"broadcast_draft_ttl"`

	// Commands per user per minute
	CommandRateLimit int `envconfig:"COMMAND_RATE_LIMIT" default:"10" yaml:"command_rate_limit"`

	// Start menu
	StartPhotoURL string `envconfig:"START_PHOTO_URL" default:"https://i.ibb.co/kVYPDqRC/tmp5h-atl08.jpg" yaml:"start_photo_url"`
	OwnerURL      string `envconfig:"OWNER_URL" yaml:"owner_url"`
	SupportURL    string `envconfig:"SUPPORT_URL" yaml:"support_url"`
}

// OwnerEnabled returns true if an owner account is configured for broadcasts.
func (c *Config) OwnerEnabled() bool {
	return c.OwnerID != 0
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.SweepErrorBackoff < c.SweepInterval {
		return fmt.Errorf("SWEEP_ERROR_BACKOFF (%s) must not be shorter than SWEEP_INTERVAL (%s)", c.SweepErrorBackoff, c.SweepInterval)
	}
	if c.BroadcastRate <= 0 {
		return fmt.Errorf("BROADCAST_RATE must be positive, got %d", c.BroadcastRate)
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("POLL_TIMEOUT must not be negative, got %d", c.PollTimeout)
	}
	return nil
}

// Load reads configuration from environment variables.
// If CONFIG_FILE is set, keys present in that YAML file override the environment.
func Load() (*Config, error) {
	return LoadWithPrefix("")
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.ConfigFile != "" {
		if err := cfg.applyFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyFile overlays a YAML file. Values may reference the environment as ${VAR} or $VAR.
func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}
