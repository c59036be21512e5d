package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/glosa-predictor/internal/lamp"
)

var allEnv = []string{
	EnvHTTPAddr, EnvLogLevel, EnvJunction, EnvTick, EnvHeartbeat,
	EnvMQTTBroker, EnvMQTTClientID, EnvMQTTUsername, EnvMQTTPassword, EnvMQTTPrefix,
	EnvLampEnabled, EnvCloudEndpoint, EnvCloudRegion,
}

// clearEnv blanks every variable Load reads; empty values are ignored.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allEnv {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glosa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100*time.Millisecond, cfg.Tick)
	assert.Equal(t, 15*time.Minute, cfg.Heartbeat)
	assert.Equal(t, "glosa", cfg.MQTT.TopicPrefix)
	assert.Empty(t, cfg.MQTT.Broker)
	assert.False(t, cfg.Lamp.Enabled)
	assert.Empty(t, cfg.Cloud.Endpoint)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultLampPins(t *testing.T) {
	cfg := Default()
	pins := lamp.DefaultPins()
	assert.Equal(t, pins.Red, cfg.Lamp.Red)
	assert.Equal(t, pins.Amber, cfg.Lamp.Amber)
	assert.Equal(t, pins.Green, cfg.Lamp.Green)
	assert.Equal(t, "gpiochip0", cfg.Lamp.Chip)
}

func TestLoadNoFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
http_addr: ":9090"
junction: J-042
tick: 250ms
heartbeat: 1m
mqtt:
  broker: tcp://localhost:1883
  topic_prefix: city
lamp:
  enabled: true
  red: 5
  amber: 6
  green: 13
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "J-042", cfg.Junction)
	assert.Equal(t, 250*time.Millisecond, cfg.Tick)
	assert.Equal(t, time.Minute, cfg.Heartbeat)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "city", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "glosa-predictor", cfg.MQTT.ClientID, "unset keys keep defaults")
	assert.True(t, cfg.Lamp.Enabled)
	assert.Equal(t, Lamp{Enabled: true, Chip: "gpiochip0", Red: 5, Amber: 6, Green: 13}, cfg.Lamp)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLUnknownKey(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "htp_addr: \":9090\"\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "http_addr: \":9090\"\njunction: J-042\n")

	t.Setenv(EnvHTTPAddr, ":7070")
	t.Setenv(EnvTick, "1s")
	t.Setenv(EnvMQTTBroker, "tcp://broker:1883")
	t.Setenv(EnvLampEnabled, "true")
	t.Setenv(EnvCloudEndpoint, "glosa-v2-endpoint")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "J-042", cfg.Junction)
	assert.Equal(t, time.Second, cfg.Tick)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.True(t, cfg.Lamp.Enabled)
	assert.Equal(t, "glosa-v2-endpoint", cfg.Cloud.Endpoint)
	assert.Equal(t, "ap-south-1", cfg.Cloud.Region)
}

func TestLoadEnvBadValuesKeepPrevious(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTick, "fast")
	t.Setenv(EnvLampEnabled, "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.Tick)
	assert.False(t, cfg.Lamp.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }},
		{"zero tick", func(c *Config) { c.Tick = 0 }},
		{"mqtt without buffer", func(c *Config) { c.MQTT.Broker = "tcp://b:1883"; c.MQTT.BufferSize = 0 }},
		{"lamp without junction", func(c *Config) { c.Lamp.Enabled = true }},
		{"lamp duplicate pins", func(c *Config) {
			c.Junction = "J-1"
			c.Lamp.Enabled = true
			c.Lamp.Amber = c.Lamp.Red
		}},
		{"lamp negative pin", func(c *Config) {
			c.Junction = "J-1"
			c.Lamp.Enabled = true
			c.Lamp.Green = -1
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateLampDuplicatePinsIgnoredWhenDisabled(t *testing.T) {
	cfg := Default()
	cfg.Lamp.Amber = cfg.Lamp.Red
	assert.NoError(t, cfg.Validate())
}
