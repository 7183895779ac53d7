// Package config provides Viper-based configuration loading for the bond
// calculator binaries.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/generic"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CORSOrigins lists allowed browser origins; "*" allows all.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Addr returns the "host:port" listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the catalog cache settings.
type DatabaseConfig struct {
	// Path is the SQLite file. Empty keeps the catalog in memory only.
	Path string `mapstructure:"path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File, when set, also writes logs to a rotating file.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// CatalogConfig holds catalog source and refresh settings.
type CatalogConfig struct {
	// DataDir holds servants[_jp].json and quests[_jp].json.
	DataDir         string        `mapstructure:"data_dir"`
	Regions         []string      `mapstructure:"regions"`
	BaseURL         string        `mapstructure:"base_url"`
	GameDataURL     string        `mapstructure:"game_data_url"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RefreshOnStart  bool          `mapstructure:"refresh_on_start"`
	SearchCacheSize int           `mapstructure:"search_cache_size"`
}

// ParsedRegions converts Regions into bond regions.
func (c CatalogConfig) ParsedRegions() ([]bond.Region, error) {
	out := make([]bond.Region, 0, len(c.Regions))
	for _, r := range c.Regions {
		region, err := bond.ParseRegion(r)
		if err != nil {
			return nil, err
		}
		out = append(out, region)
	}
	return out, nil
}

// EstimatorConfig holds the time and day estimate constants.
type EstimatorConfig struct {
	MinutesPerRun    string `mapstructure:"minutes_per_run"`
	DailyAPRegen     int    `mapstructure:"daily_ap_regen"`
	CappedRunsPerDay int    `mapstructure:"capped_runs_per_day"`
}

// Estimator builds the engine estimator.
func (e EstimatorConfig) Estimator() (generic.Estimator, error) {
	minutes, err := decimal.NewFromString(e.MinutesPerRun)
	if err != nil {
		return generic.Estimator{}, fmt.Errorf("estimator.minutes_per_run: %w", err)
	}
	est := generic.Estimator{
		MinutesPerRun:      minutes,
		DailyResourceRegen: e.DailyAPRegen,
		CappedRunsPerDay:   e.CappedRunsPerDay,
	}
	return est, est.Validate()
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Estimator EstimatorConfig `mapstructure:"estimator"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCatalog(c.Catalog); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := c.Estimator.Estimator(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be positive")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if l.File != "" && l.MaxSizeMB < 1 {
		return fmt.Errorf("logging.max_size_mb must be >= 1 when logging.file is set, got %d", l.MaxSizeMB)
	}
	return nil
}

func validateCatalog(c CatalogConfig) error {
	var errs []string
	if len(c.Regions) == 0 {
		errs = append(errs, "catalog.regions must not be empty")
	}
	if _, err := c.ParsedRegions(); err != nil {
		errs = append(errs, fmt.Sprintf("catalog.regions: %v", err))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Sprintf("catalog.max_retries must be >= 1, got %d", c.MaxRetries))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, "catalog.retry_delay must not be negative")
	}
	if c.Timeout <= 0 {
		errs = append(errs, "catalog.timeout must be positive")
	}
	if c.RefreshInterval < 0 {
		errs = append(errs, "catalog.refresh_interval must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with BONDCALC_ prefix
	v.SetEnvPrefix("BONDCALC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("catalog.data_dir", "./data")
	v.SetDefault("catalog.regions", []string{"NA", "JP"})
	v.SetDefault("catalog.base_url", "https://api.atlasacademy.io/export")
	v.SetDefault("catalog.game_data_url", "https://git.atlasacademy.io/atlasacademy/fgo-game-data/raw/branch")
	v.SetDefault("catalog.max_retries", 3)
	v.SetDefault("catalog.retry_delay", "5s")
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.refresh_interval", "24h")
	v.SetDefault("catalog.refresh_on_start", false)
	v.SetDefault("catalog.search_cache_size", 256)

	v.SetDefault("estimator.minutes_per_run", "2.5")
	v.SetDefault("estimator.daily_ap_regen", 288)
	v.SetDefault("estimator.capped_runs_per_day", 3)
}
