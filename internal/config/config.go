// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigFile is the config file looked up in the working directory.
const DefaultConfigFile = "mazkir.yaml"

// Config represents the complete configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Telegram  TelegramConfig  `mapstructure:"telegram" yaml:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// StoreConfig locates the users file.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LLMConfig configures the OpenAI-compatible chat endpoint.
type LLMConfig struct {
	Model   string `mapstructure:"model" yaml:"model"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`   // falls back to OPENAI_API_KEY
	BaseURL string `mapstructure:"base_url" yaml:"base_url"` // empty = api.openai.com
}

// TelegramConfig configures the bot transport.
type TelegramConfig struct {
	Token       string        `mapstructure:"token" yaml:"token"` // falls back to TELEGRAM_BOT_TOKEN
	PollTimeout time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
}

// SchedulerConfig configures the reminder loop.
type SchedulerConfig struct {
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	StopTimeout time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
	WatchStore  bool          `mapstructure:"watch_store" yaml:"watch_store"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "mazkir_users_memory.json",
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Telegram: TelegramConfig{
			PollTimeout: 20 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Interval:    time.Minute,
			StopTimeout: 10 * time.Second,
			WatchStore:  false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the given file, falling back to
// defaults. Secrets left empty in the file are filled from the
// environment.
func Load(path string) (*Config, []string, error) {
	cfg := DefaultConfig()
	warnings := []string{}

	if path == "" {
		path = DefaultConfigFile
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		warnings = append(warnings, "No config file found, using defaults")
		applyEnv(cfg)
		return cfg, warnings, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults for missing values
	if cfg.Store.Path == "" {
		cfg.Store.Path = "mazkir_users_memory.json"
		warnings = append(warnings, "Using default store path: mazkir_users_memory.json")
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.Telegram.PollTimeout == 0 {
		cfg.Telegram.PollTimeout = 20 * time.Second
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = time.Minute
	}
	if cfg.Scheduler.StopTimeout == 0 {
		cfg.Scheduler.StopTimeout = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	applyEnv(cfg)
	return cfg, warnings, nil
}

func applyEnv(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
}

// Save saves configuration to file.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultConfigFile
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("llm", cfg.LLM)
	v.Set("telegram", cfg.Telegram)
	v.Set("scheduler", cfg.Scheduler)
	v.Set("logging", cfg.Logging)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the configuration for problems.
func Validate(cfg *Config) []error {
	var errs []error

	if cfg.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path must not be empty"))
	}
	if cfg.Scheduler.Interval < time.Second {
		errs = append(errs, fmt.Errorf("scheduler.interval must be at least 1s, got %s", cfg.Scheduler.Interval))
	}
	if cfg.Scheduler.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.stop_timeout must be positive, got %s", cfg.Scheduler.StopTimeout))
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format))
	}

	return errs
}
