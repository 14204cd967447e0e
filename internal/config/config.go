package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the papertrade platform.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Server   Server   `yaml:"server"`
	Platform Platform `yaml:"platform"`
	Market   Market   `yaml:"market"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Logging  Logging  `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Platform selects the front-end variant and the cash every new account
// starts with.
type Platform struct {
	Type         string `yaml:"type"`          // "gamified" or "traditional"
	StartingCash string `yaml:"starting_cash"` // decimal string, e.g. "100000.00"
}

// Market controls the price feed.
type Market struct {
	Source          string `yaml:"source"` // "sim" or "alpaca"
	TickSeconds     int    `yaml:"tick_seconds"`
	Seed            int64  `yaml:"seed"` // 0 means time-seeded
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Alpaca holds credentials for the live quote source.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if cfg.Platform.Type != "gamified" && cfg.Platform.Type != "traditional" {
		return nil, fmt.Errorf("platform.type must be %q or %q, got %q", "gamified", "traditional", cfg.Platform.Type)
	}

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("PLATFORM"); v != "" {
		cfg.Platform.Type = v
	}
	if v := os.Getenv("STARTING_CASH"); v != "" {
		cfg.Platform.StartingCash = v
	}
	if v := os.Getenv("MARKET_SOURCE"); v != "" {
		cfg.Market.Source = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	// Standard Alpaca env vars take highest priority (canonical SDK names).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills fields that may be omitted from the YAML file.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Platform.Type == "" {
		cfg.Platform.Type = "gamified"
	}
	if cfg.Platform.StartingCash == "" {
		cfg.Platform.StartingCash = "100000.00"
	}
	if cfg.Market.Source == "" {
		cfg.Market.Source = "sim"
	}
	if cfg.Market.TickSeconds == 0 {
		cfg.Market.TickSeconds = 5
	}
	if cfg.Market.RateLimitPerMin == 0 {
		cfg.Market.RateLimitPerMin = 200
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "papertrade.db"
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
