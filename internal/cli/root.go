package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/openshelf/stock-sentinel/internal/config"
	"github.com/openshelf/stock-sentinel/pkg/enhance"
	"github.com/openshelf/stock-sentinel/pkg/engine"
	"github.com/openshelf/stock-sentinel/pkg/feed"
	"github.com/openshelf/stock-sentinel/pkg/rules"
	"github.com/openshelf/stock-sentinel/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Stock Sentinel - Actionable inventory and pricing alerts",
	Long: `Stock Sentinel turns per-product inventory and pricing signals into
severity-ranked, financially quantified alerts. Each alert carries a
deadline-bound primary remedy, ranked alternatives, and an optional
LLM-written narrative that degrades gracefully when the provider is
unavailable.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// A local .env supplies API keys before viper reads the environment.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.sentinel/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// loadRuleset loads the ruleset file from config, or the shipped defaults
// when no file is configured. Invalid rulesets fail here, before any alert
// is generated.
func loadRuleset(cfg *config.Config) (*rules.Ruleset, error) {
	if cfg.Rules.Path == "" {
		return rules.Default(), nil
	}
	return rules.Load(cfg.Rules.Path)
}

// openStore opens the caller-side SQLite store from config.
func openStore(cfg *config.Config) (storage.Store, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initFeed creates the competitor price source from config. A nil source
// means the competitor-threat pass is skipped.
func initFeed(cfg *config.Config) (feed.Source, error) {
	switch cfg.Feed.Mode {
	case "", "none":
		return nil, nil
	case "synthetic":
		return feed.NewSynthetic(), nil
	case "http":
		if cfg.Feed.URL == "" {
			return nil, fmt.Errorf("feed.mode is http but feed.url is empty")
		}
		timeout, _ := time.ParseDuration(cfg.Feed.Timeout)
		return feed.NewHTTP(cfg.Feed.URL, cfg.Feed.Secret, timeout), nil
	default:
		return nil, fmt.Errorf("unknown feed mode %q", cfg.Feed.Mode)
	}
}

// initEnhancer creates the enhancement service from config. A nil enhancer
// disables narrative enhancement; alerts still flow.
func initEnhancer(cfg *config.Config, store storage.Store, logger *slog.Logger) (enhance.Enhancer, error) {
	client, err := enhance.NewClient(
		cfg.Enhancement.Provider,
		cfg.Enhancement.BaseURL,
		cfg.Enhancement.APIKey,
		cfg.Enhancement.Model,
	)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, nil
	}

	rates := enhance.Rates{
		InputPer1K:  cfg.Enhancement.InputPer1K,
		OutputPer1K: cfg.Enhancement.OutputPer1K,
	}
	meter := enhance.NewMeter(store, rates, cfg.Enhancement.DailyBudgetUSD, logger)

	delay, _ := time.ParseDuration(cfg.Enhancement.ChunkDelay)
	svc := enhance.NewService(client, meter, enhance.Config{
		TopN:        cfg.Enhancement.TopN,
		ChunkSize:   cfg.Enhancement.ChunkSize,
		Concurrency: cfg.Enhancement.Concurrency,
		ChunkDelay:  delay,
	}, logger)
	return svc, nil
}

// initEngine wires a fully configured alert engine. The validated ruleset
// is returned alongside so callers can reuse it for feed pre-extraction and
// the rules listing.
func initEngine(cfg *config.Config, store storage.Store, logger *slog.Logger) (*engine.Engine, *rules.Ruleset, error) {
	rs, err := loadRuleset(cfg)
	if err != nil {
		return nil, nil, err
	}

	enhancer, err := initEnhancer(cfg, store, logger)
	if err != nil {
		return nil, nil, err
	}

	timeout, _ := time.ParseDuration(cfg.Enhancement.Timeout)
	return engine.New(rs, enhancer, timeout, logger), rs, nil
}
