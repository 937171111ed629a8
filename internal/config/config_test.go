package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/enviromon/enviromon/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/serial", cfg.Bridge.URL)
	assert.Equal(t, "5s", cfg.Bridge.Timeout)
	assert.Equal(t, "10s", cfg.Bridge.PollInterval)
	assert.Equal(t, ":8000", cfg.Server.Listen)
	assert.Equal(t, "30s", cfg.Server.ReadTimeout)
	assert.Equal(t, "60s", cfg.Server.WriteTimeout)
	assert.False(t, cfg.Sink.Enabled)
	assert.Equal(t, "1s", cfg.Sink.DrainInterval)
	assert.Equal(t, 30.0, cfg.Thresholds.TempHigh)
	assert.Equal(t, 20.0, cfg.Thresholds.HumidityLow)
	assert.Equal(t, int64(10), cfg.Thresholds.DistanceClose)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
bridge:
  url: http://bridge.local/serial
  api_key: sekrit
storage:
  path: /tmp/test.db
server:
  listen: ":9090"
sink:
  enabled: true
  broker_url: ssl://hub.example.com:8883
thresholds:
  temp_high: 35.5
logging:
  level: debug
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "http://bridge.local/serial", cfg.Bridge.URL)
	assert.Equal(t, "sekrit", cfg.Bridge.APIKey)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.True(t, cfg.Sink.Enabled)
	assert.Equal(t, "ssl://hub.example.com:8883", cfg.Sink.BrokerURL)
	assert.Equal(t, 35.5, cfg.Thresholds.TempHigh)
	assert.Equal(t, int64(10), cfg.Thresholds.DistanceClose, "unset values keep their defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENVMON_LOGGING_LEVEL", "error")
	t.Setenv("ENVMON_SERVER_LISTEN", ":7070")
	t.Setenv("ENVMON_BRIDGE_API_KEY", "from-env")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Server.Listen)
	assert.Equal(t, "from-env", cfg.Bridge.APIKey)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	err := os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	assert.Error(t, err)
}
