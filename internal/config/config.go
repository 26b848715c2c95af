package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all Stock Sentinel configuration.
type Config struct {
	Storage     StorageConfig     `mapstructure:"storage"`
	Server      ServerConfig      `mapstructure:"server"`
	Rules       RulesConfig       `mapstructure:"rules"`
	Feed        FeedConfig        `mapstructure:"feed"`
	Enhancement EnhancementConfig `mapstructure:"enhancement"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Defaults    DefaultsConfig    `mapstructure:"defaults"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// RulesConfig points at the ruleset file. An empty path runs on the
// shipped defaults.
type RulesConfig struct {
	Path string `mapstructure:"path"`
}

// FeedConfig defines the competitor price source.
type FeedConfig struct {
	Mode    string `mapstructure:"mode"` // synthetic, http, none
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
	Timeout string `mapstructure:"timeout"`
}

// EnhancementConfig defines the LLM narrative enhancement settings.
type EnhancementConfig struct {
	Provider       string  `mapstructure:"provider"` // openai, anthropic, none
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	TopN           int     `mapstructure:"top_n"`
	ChunkSize      int     `mapstructure:"chunk_size"`
	Concurrency    int     `mapstructure:"concurrency"`
	ChunkDelay     string  `mapstructure:"chunk_delay"`
	Timeout        string  `mapstructure:"timeout"`
	DailyBudgetUSD float64 `mapstructure:"daily_budget_usd"`
	InputPer1K     float64 `mapstructure:"input_per_1k"`
	OutputPer1K    float64 `mapstructure:"output_per_1k"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultsConfig defines default values.
type DefaultsConfig struct {
	Tenant string `mapstructure:"tenant"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".sentinel"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".sentinel", "sentinel.db"))
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("rules.path", "")
	v.SetDefault("feed.mode", "synthetic")
	v.SetDefault("feed.url", "")
	v.SetDefault("feed.secret", "")
	v.SetDefault("feed.timeout", "10s")
	v.SetDefault("enhancement.provider", "none")
	v.SetDefault("enhancement.base_url", "")
	v.SetDefault("enhancement.api_key", "")
	v.SetDefault("enhancement.model", "gpt-4o-mini")
	v.SetDefault("enhancement.top_n", 5)
	v.SetDefault("enhancement.chunk_size", 5)
	v.SetDefault("enhancement.concurrency", 2)
	v.SetDefault("enhancement.chunk_delay", "200ms")
	v.SetDefault("enhancement.timeout", "15s")
	v.SetDefault("enhancement.daily_budget_usd", 0.0)
	v.SetDefault("enhancement.input_per_1k", 0.00015)
	v.SetDefault("enhancement.output_per_1k", 0.0006)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("defaults.tenant", "default")

	// Environment variables
	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
