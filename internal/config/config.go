package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all Enviromon configuration.
type Config struct {
	Bridge     BridgeConfig     `mapstructure:"bridge"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Server     ServerConfig     `mapstructure:"server"`
	Sink       SinkConfig       `mapstructure:"sink"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// BridgeConfig defines the serial bridge endpoint readings are pulled from.
type BridgeConfig struct {
	URL          string `mapstructure:"url"`
	APIKey       string `mapstructure:"api_key"`
	Timeout      string `mapstructure:"timeout"`
	PollInterval string `mapstructure:"poll_interval"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig defines the HTTP API listener.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// SinkConfig defines the cloud message sink connection.
type SinkConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BrokerURL     string `mapstructure:"broker_url"`
	ClientID      string `mapstructure:"client_id"`
	Topic         string `mapstructure:"topic"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	SendTimeout   string `mapstructure:"send_timeout"`
	DrainInterval string `mapstructure:"drain_interval"`
}

// ThresholdsConfig defines the alert thresholds. File, when set, points at
// a YAML file that overrides the inline values.
type ThresholdsConfig struct {
	TempHigh      float64 `mapstructure:"temp_high"`
	HumidityLow   float64 `mapstructure:"humidity_low"`
	DistanceClose int64   `mapstructure:"distance_close"`
	File          string  `mapstructure:"file"`
}

// NotifyConfig defines alerting integrations.
type NotifyConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
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

		v.AddConfigPath(filepath.Join(home, ".enviromon"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("bridge.url", "http://localhost:5000/serial")
	v.SetDefault("bridge.api_key", "")
	v.SetDefault("bridge.timeout", "5s")
	v.SetDefault("bridge.poll_interval", "10s")
	v.SetDefault("storage.path", filepath.Join(home, ".enviromon", "enviromon.db"))
	v.SetDefault("server.listen", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("sink.enabled", false)
	v.SetDefault("sink.broker_url", "")
	v.SetDefault("sink.client_id", "")
	v.SetDefault("sink.username", "")
	v.SetDefault("sink.password", "")
	v.SetDefault("sink.topic", "devices/envmon/messages/events/")
	v.SetDefault("sink.send_timeout", "5s")
	v.SetDefault("sink.drain_interval", "1s")
	v.SetDefault("thresholds.temp_high", 30.0)
	v.SetDefault("thresholds.humidity_low", 20.0)
	v.SetDefault("thresholds.distance_close", 10)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("notify.slack.channel", "#enviromon")

	// Environment variables
	v.SetEnvPrefix("ENVMON")
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
