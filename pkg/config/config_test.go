package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "midnight", c.Valuation.Anchor)
	assert.Equal(t, 10, c.Valuation.LookbackDays)
	assert.Equal(t, time.Minute, c.Valuation.Interval)
	assert.Equal(t, "America/Argentina/Cordoba", c.Valuation.LocalTZ)
	assert.Equal(t, "09:00", c.Valuation.Window.Start)
	assert.Equal(t, 10*time.Second, c.Broker.PushInterval)
	assert.Equal(t, 70, c.Index.Limit)
	assert.Equal(t, 30, c.Index.SeriesID)
	assert.Equal(t, "finyield", c.ClickHouse.Database)
	assert.Equal(t, 5*time.Minute, c.Valuation.LockTTL)
	assert.Equal(t, 6*time.Hour, c.Index.SyncInterval)
	assert.Equal(t, 2.0, c.Server.ComputeRate)
}

func TestLoadShippedConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "18:30", c.Valuation.Window.Stop)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.Len(t, c.Broker.Symbols, 3)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("environment: test\nvaluation:\n  anchor: noon\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("environment: test\nbroker:\n  enabled: true\n  websocket_url: wss://x\n"))
	assert.ErrorContains(t, err, "broker.symbols")

	_, err = Parse([]byte("environment: test\nkafka:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "kafka.brokers")

	_, err = Parse([]byte("environment: test\nvaluation:\n  window:\n    start: \"19:00\"\n    stop: \"18:00\"\n"))
	assert.ErrorContains(t, err, "window")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o600))

	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("VALUATION_ANCHOR", "END_OF_DAY")
	t.Setenv("INTERVAL", "90")
	t.Setenv("LOCAL_TZ", "UTC")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "end_of_day", c.Valuation.Anchor)
	assert.Equal(t, 90*time.Second, c.Valuation.Interval)
	assert.Equal(t, "UTC", c.Valuation.LocalTZ)
}

func TestLoadWithEnvBadInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o600))
	t.Setenv("INTERVAL", "soon")

	_, err := LoadWithEnv(path)
	assert.Error(t, err)
}
