// Package config provides configuration management for the backtest and
// optimizer service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"backtestopt/internal/genetic"
	"backtestopt/internal/primitives"
	"backtestopt/internal/trading"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DataFeed DataFeedConfig `mapstructure:"data_feed"`
	Store    StoreConfig    `mapstructure:"store"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Optimize OptimizeConfig `mapstructure:"optimize"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DataFeedConfig holds the upstream candle/exchange-info service client
// configuration.
type DataFeedConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// OptimizeConfig holds genetic-algorithm settings read from config.yaml.
// Load validates them; the optimize command and the /optimize handler build
// their genetic.Config from genetic.DefaultConfig, not from these values.
type OptimizeConfig struct {
	Generations int            `mapstructure:"generations"`
	Genetic     genetic.Config `mapstructure:"genetic"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/backtestopt"
	}
	return filepath.Join(home, ".config", "backtestopt")
}

// Load loads configuration from the specified directory. If configDir is
// empty, it uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return nil, fmt.Errorf("writing default config.yaml: %w", err)
			}
		} else {
			return nil, fmt.Errorf("reading config.yaml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	applyEnvOverrides(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_grace", 10*time.Second)
	v.SetDefault("data_feed.timeout", 30*time.Second)
	v.SetDefault("store.sqlite_path", "backtestopt.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("optimize.generations", 30)
	v.SetDefault("optimize.genetic.population_size", 100)
	v.SetDefault("optimize.genetic.hall_of_fame_size", 10)
	v.SetDefault("optimize.genetic.tournament_size", 3)
	v.SetDefault("optimize.genetic.crossover_rate", 0.75)
	v.SetDefault("optimize.genetic.mutation_rate", 0.1)
	v.SetDefault("optimize.genetic.elitism", 2)
}

func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if addr := os.Getenv("BACKTESTOPT_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if url := os.Getenv("BACKTESTOPT_DATA_FEED_URL"); url != "" {
		cfg.DataFeed.BaseURL = url
	}
	if path := os.Getenv("BACKTESTOPT_SQLITE_PATH"); path != "" {
		cfg.Store.SQLitePath = path
	}
}

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(templateConfigYAML), 0o644)
}

const templateConfigYAML = `server:
  addr: ":8080"
  shutdown_grace: 10s
data_feed:
  base_url: "http://localhost:3000"
  timeout: 30s
store:
  sqlite_path: "backtestopt.db"
logging:
  level: "info"
  file: ""
optimize:
  generations: 30
`

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Optimize.Generations <= 0 {
		return fmt.Errorf("optimize.generations must be positive")
	}
	if c.Optimize.Genetic.PopulationSize <= 0 {
		return fmt.Errorf("optimize.genetic.population_size must be positive")
	}
	return nil
}

// TradingParamsContextDocument is the on-disk YAML shape a deployment uses
// to list the candle intervals an optimizer run may search, in their
// human-readable shorthand form (e.g. "1h"). It holds intervals only; every
// other range comes from trading.DefaultTradingParamsContext.
type TradingParamsContextDocument struct {
	Intervals []string `yaml:"intervals"`
}

// LoadTradingParamsContext reads a TradingParamsContext from a YAML file,
// falling back to trading.DefaultTradingParamsContext over a single hourly
// interval when path is empty.
func LoadTradingParamsContext(path string) (trading.TradingParamsContext, error) {
	if path == "" {
		return trading.DefaultTradingParamsContext([]primitives.Interval{primitives.HourMs}), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return trading.TradingParamsContext{}, fmt.Errorf("reading trading params context: %w", err)
	}

	var doc TradingParamsContextDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return trading.TradingParamsContext{}, fmt.Errorf("parsing trading params context: %w", err)
	}

	intervals := make([]primitives.Interval, 0, len(doc.Intervals))
	for _, s := range doc.Intervals {
		iv, err := primitives.ParseInterval(s)
		if err != nil {
			return trading.TradingParamsContext{}, fmt.Errorf("parsing interval %q: %w", s, err)
		}
		intervals = append(intervals, iv)
	}
	if len(intervals) == 0 {
		intervals = []primitives.Interval{primitives.HourMs}
	}

	return trading.DefaultTradingParamsContext(intervals), nil
}
