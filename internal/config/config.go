// Package config provides configuration loading for safeurl.
// It supports a layered configuration approach with priority:
// CLI flags > environment variables (SAFEURL_*) > config file (~/.safeurl.yaml).
// Nested keys map to environment variables with underscores, so ai.endpoint
// is read from SAFEURL_AI_ENDPOINT.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// AIConfig configures the AI risk client used during scans.
// An empty Endpoint disables AI assessments.
type AIConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// AnalyzerConfig configures the Ollama model behind the analyze endpoint.
type AnalyzerConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Model    string        `mapstructure:"model" yaml:"model"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // sqlite, postgres or memory
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr                 string        `mapstructure:"addr" yaml:"addr"`
	JWTSecret            string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL             time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	ScanRatePerMinute    int           `mapstructure:"scan_rate_per_minute" yaml:"scan_rate_per_minute"`
	AnalyzeRatePerMinute int           `mapstructure:"analyze_rate_per_minute" yaml:"analyze_rate_per_minute"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// Config holds all safeurl configuration options.
type Config struct {
	OutputFormat string         `mapstructure:"output_format" yaml:"output_format"`
	Timeout      time.Duration  `mapstructure:"timeout" yaml:"timeout"`
	Concurrency  int            `mapstructure:"concurrency" yaml:"concurrency"`
	User         string         `mapstructure:"user" yaml:"user"`
	AI           AIConfig       `mapstructure:"ai" yaml:"ai"`
	Analyzer     AnalyzerConfig `mapstructure:"analyzer" yaml:"analyzer"`
	Store        StoreConfig    `mapstructure:"store" yaml:"store"`
	Server       ServerConfig   `mapstructure:"server" yaml:"server"`
	Log          LogConfig      `mapstructure:"log" yaml:"log"`
}

// Defaults returns a Config populated with default values.
func Defaults() Config {
	return Config{
		OutputFormat: "table",
		Timeout:      15 * time.Second,
		Concurrency:  4,
		User:         "local",
		AI: AIConfig{
			Timeout:  8 * time.Second,
			CacheTTL: 15 * time.Minute,
		},
		Analyzer: AnalyzerConfig{
			Endpoint: "http://localhost:11434",
			Model:    "llama3.2",
			Timeout:  30 * time.Second,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Server: ServerConfig{
			Addr:                 ":8080",
			TokenTTL:             24 * time.Hour,
			ScanRatePerMinute:    30,
			AnalyzeRatePerMinute: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from ~/.safeurl.yaml and environment variables.
// It does NOT apply CLI flag overrides; call ApplyFlags for that.
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName(".safeurl")
	v.SetConfigType("yaml")

	home, err := os.UserHomeDir()
	if err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SAFEURL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := Defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q (want sqlite, postgres or memory)", c.Store.Driver)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

// ApplyFlags overrides config values with any CLI flags that were explicitly set.
func ApplyFlags(cfg *Config, cmd *cobra.Command) {
	flags := cmd.Flags()

	if flags.Changed("output") {
		val, _ := flags.GetString("output")
		cfg.OutputFormat = val
	}
	if flags.Changed("timeout") {
		val, _ := flags.GetDuration("timeout")
		cfg.Timeout = val
	}
	if flags.Changed("concurrency") {
		val, _ := flags.GetInt("concurrency")
		cfg.Concurrency = val
	}
	if flags.Changed("user") {
		val, _ := flags.GetString("user")
		cfg.User = val
	}
	if flags.Changed("ai-endpoint") {
		val, _ := flags.GetString("ai-endpoint")
		cfg.AI.Endpoint = val
	}
	if flags.Changed("store") {
		val, _ := flags.GetString("store")
		cfg.Store.Driver = val
	}
	if flags.Changed("dsn") {
		val, _ := flags.GetString("dsn")
		cfg.Store.DSN = val
	}
	if flags.Changed("addr") {
		val, _ := flags.GetString("addr")
		cfg.Server.Addr = val
	}
	if flags.Changed("log-level") {
		val, _ := flags.GetString("log-level")
		cfg.Log.Level = val
	}
}

// ConfigFilePath returns the default config file path (~/.safeurl.yaml).
func ConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".safeurl.yaml"
	}
	return filepath.Join(home, ".safeurl.yaml")
}

// DefaultDatabasePath returns where the sqlite store lives when no DSN is set.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "safeurl.db"
	}
	return filepath.Join(home, ".safeurl", "safeurl.db")
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("output_format", d.OutputFormat)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("user", d.User)
	v.SetDefault("ai.endpoint", d.AI.Endpoint)
	v.SetDefault("ai.timeout", d.AI.Timeout)
	v.SetDefault("ai.cache_ttl", d.AI.CacheTTL)
	v.SetDefault("analyzer.endpoint", d.Analyzer.Endpoint)
	v.SetDefault("analyzer.model", d.Analyzer.Model)
	v.SetDefault("analyzer.timeout", d.Analyzer.Timeout)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.jwt_secret", d.Server.JWTSecret)
	v.SetDefault("server.token_ttl", d.Server.TokenTTL)
	v.SetDefault("server.scan_rate_per_minute", d.Server.ScanRatePerMinute)
	v.SetDefault("server.analyze_rate_per_minute", d.Server.AnalyzeRatePerMinute)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}
