package alerts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/enviromon/enviromon/pkg/alerts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeThresholds(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadThresholds(t *testing.T) {
	path := writeThresholds(t, `
temp_high: 28.5
humidity_low: 25.0
distance_close: 15
`)

	th, err := alerts.LoadThresholds(path)
	require.NoError(t, err)
	assert.Equal(t, 28.5, th.TempHigh)
	assert.Equal(t, 25.0, th.HumidityLow)
	assert.Equal(t, int64(15), th.DistanceClose)
}

func TestLoadThresholds_PartialFile_KeepsDefaults(t *testing.T) {
	path := writeThresholds(t, "temp_high: 35.0\n")

	th, err := alerts.LoadThresholds(path)
	require.NoError(t, err)
	assert.Equal(t, 35.0, th.TempHigh)
	assert.Equal(t, 20.0, th.HumidityLow)
	assert.Equal(t, int64(10), th.DistanceClose)
}

func TestLoadThresholds_MissingFile(t *testing.T) {
	_, err := alerts.LoadThresholds(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadThresholds_InvalidYAML(t *testing.T) {
	path := writeThresholds(t, "temp_high: [broken")
	_, err := alerts.LoadThresholds(path)
	assert.Error(t, err)
}

func TestLoadThresholds_OutOfRange(t *testing.T) {
	path := writeThresholds(t, "humidity_low: 150.0\n")
	_, err := alerts.LoadThresholds(path)
	assert.Error(t, err)

	path = writeThresholds(t, "distance_close: -1\n")
	_, err = alerts.LoadThresholds(path)
	assert.Error(t, err)
}
