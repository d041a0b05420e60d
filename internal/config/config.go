// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// ProviderGoogle is the only backend provider currently wired. The factory in
// internal/modelclient switches on this value.
const ProviderGoogle = "google"

// EnvPrefix is the prefix for environment variable overrides, e.g.
// CIRCUITSCOPE_BACKEND_API_KEY.
const EnvPrefix = "CIRCUITSCOPE"

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BackendConfig describes the hosted model backend. Two model names are
// carried because the capability modes map onto different models: the
// reasoning model handles attached documents with schema enforcement, the
// search model carries the web grounding tool.
type BackendConfig struct {
	Provider        string        `mapstructure:"provider" yaml:"provider"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint        string        `mapstructure:"endpoint" yaml:"endpoint"` // override, primarily for tests
	ReasoningModel  string        `mapstructure:"reasoning_model" yaml:"reasoning_model"`
	SearchModel     string        `mapstructure:"search_model" yaml:"search_model"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	Temperature     float64       `mapstructure:"temperature" yaml:"temperature"`
	TopP            float32       `mapstructure:"top_p" yaml:"top_p"`
	TopK            int           `mapstructure:"top_k" yaml:"top_k"`
	ThinkingBudget  int           `mapstructure:"thinking_budget" yaml:"thinking_budget"`
}

// ServerConfig configures the HTTP facade started by the serve command.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// ExportConfig configures where generated artifacts (CSV, firmware files) are
// written by default.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "circuitscope")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Backend --
	v.SetDefault("backend.provider", ProviderGoogle)
	v.SetDefault("backend.endpoint", "")
	v.SetDefault("backend.reasoning_model", "gemini-3-pro-preview")
	v.SetDefault("backend.search_model", "gemini-2.5-flash")
	v.SetDefault("backend.timeout", "120s")
	v.SetDefault("backend.max_output_tokens", 0)
	v.SetDefault("backend.temperature", 0.2)
	v.SetDefault("backend.top_p", 0.0)
	v.SetDefault("backend.top_k", 0)
	v.SetDefault("backend.thinking_budget", 4096)

	// -- Server --
	v.SetDefault("server.listen_addr", "127.0.0.1:8787")

	// -- Export --
	v.SetDefault("export.dir", ".")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind the API key explicitly so both the prefixed variable and the plain
	// GEMINI_API_KEY convention work.
	_ = v.BindEnv("backend.api_key", EnvPrefix+"_BACKEND_API_KEY", "GEMINI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Backend.APIKey == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.Backend.APIKey = key
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Backend.Provider != ProviderGoogle {
		return fmt.Errorf("backend.provider must be %q, got %q", ProviderGoogle, c.Backend.Provider)
	}
	if c.Backend.ReasoningModel == "" || c.Backend.SearchModel == "" {
		return fmt.Errorf("backend.reasoning_model and backend.search_model are required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be a positive duration")
	}
	if c.Backend.ThinkingBudget < 0 {
		return fmt.Errorf("backend.thinking_budget must not be negative")
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	return nil
}
