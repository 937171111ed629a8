package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/enviromon/enviromon/internal/config"
	"github.com/enviromon/enviromon/pkg/alerts"
	"github.com/enviromon/enviromon/pkg/model"
	"github.com/enviromon/enviromon/pkg/pipeline"
	"github.com/enviromon/enviromon/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "envmon",
	Short: "Enviromon - environmental sensor ingestion and monitoring",
	Long: `Enviromon polls an HTTP serial bridge for environmental sensor readings
(temperature, humidity, light, distance), persists them with derived
threshold alerts, forwards them to a cloud message sink, and serves a
REST and websocket API for dashboards.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.enviromon/config.yaml)")
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

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Store, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initThresholds resolves the alert thresholds: inline config values,
// overridden by the thresholds file when one is configured.
func initThresholds(cfg *config.Config) (model.Thresholds, error) {
	if cfg.Thresholds.File != "" {
		return alerts.LoadThresholds(cfg.Thresholds.File)
	}
	th := model.Thresholds{
		TempHigh:      cfg.Thresholds.TempHigh,
		HumidityLow:   cfg.Thresholds.HumidityLow,
		DistanceClose: cfg.Thresholds.DistanceClose,
	}
	return th, nil
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Notify.Slack.Enabled && cfg.Notify.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Notify.Slack.WebhookURL,
			cfg.Notify.Slack.Channel,
		))
	}

	if cfg.Notify.Webhook.Enabled && cfg.Notify.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Notify.Webhook.URL,
			cfg.Notify.Webhook.Secret,
		))
	}

	return notifiers
}

// initFetcher creates the bridge fetcher from config.
func initFetcher(cfg *config.Config) *pipeline.Fetcher {
	return pipeline.NewFetcher(
		cfg.Bridge.URL,
		cfg.Bridge.APIKey,
		durationOr(cfg.Bridge.Timeout, 5*time.Second),
	)
}

// durationOr parses a duration string, falling back on empty or invalid
// input.
func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
