// Package config loads service configuration from defaults, an optional
// YAML file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/sweeney/glosa-predictor/internal/lamp"
)

var log = logrus.WithField("module", "config")

// LogLevels maps accepted log level names to logrus levels.
var LogLevels = map[string]logrus.Level{
	"trace": logrus.TraceLevel,
	"debug": logrus.DebugLevel,
	"info":  logrus.InfoLevel,
	"warn":  logrus.WarnLevel,
	"error": logrus.ErrorLevel,
	"fatal": logrus.FatalLevel,
}

// Config is the complete service configuration.
type Config struct {
	HTTPAddr  string        `yaml:"http_addr"`
	LogLevel  string        `yaml:"log_level"`
	Junction  string        `yaml:"junction"`
	Tick      time.Duration `yaml:"tick"`
	Heartbeat time.Duration `yaml:"heartbeat"`

	MQTT  MQTT  `yaml:"mqtt"`
	Lamp  Lamp  `yaml:"lamp"`
	Cloud Cloud `yaml:"cloud"`
}

// MQTT configures the event publisher. An empty Broker disables it.
type MQTT struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	BufferSize  int    `yaml:"buffer_size"`
}

// Lamp configures the GPIO signal head (BCM pin numbers).
type Lamp struct {
	Enabled bool   `yaml:"enabled"`
	Chip    string `yaml:"chip"`
	Red     int    `yaml:"red"`
	Amber   int    `yaml:"amber"`
	Green   int    `yaml:"green"`
}

// Cloud describes the optional hosted prediction endpoint. It only
// changes the provider reported by the service.
type Cloud struct {
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
}

// Default returns the built-in configuration.
func Default() Config {
	pins := lamp.DefaultPins()
	return Config{
		HTTPAddr:  ":8000",
		LogLevel:  "info",
		Tick:      100 * time.Millisecond,
		Heartbeat: 15 * time.Minute,
		MQTT: MQTT{
			ClientID:    "glosa-predictor",
			TopicPrefix: "glosa",
			BufferSize:  1000,
		},
		Lamp: Lamp{
			Chip:  "gpiochip0",
			Red:   pins.Red,
			Amber: pins.Amber,
			Green: pins.Green,
		},
		Cloud: Cloud{
			Region: "ap-south-1",
		},
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped
// when path is empty), the .env file in the working directory if present,
// and the process environment, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("ignoring .env: %v", err)
	}
	applyEnv(&cfg)

	return cfg, nil
}

// Environment variable names.
const (
	EnvHTTPAddr      = "GLOSA_HTTP_ADDR"
	EnvLogLevel      = "GLOSA_LOG_LEVEL"
	EnvJunction      = "GLOSA_JUNCTION"
	EnvTick          = "GLOSA_TICK"
	EnvHeartbeat     = "GLOSA_HEARTBEAT"
	EnvMQTTBroker    = "GLOSA_MQTT_BROKER"
	EnvMQTTClientID  = "GLOSA_MQTT_CLIENT_ID"
	EnvMQTTUsername  = "GLOSA_MQTT_USERNAME"
	EnvMQTTPassword  = "GLOSA_MQTT_PASSWORD"
	EnvMQTTPrefix    = "GLOSA_MQTT_TOPIC_PREFIX"
	EnvLampEnabled   = "GLOSA_LAMP"
	EnvCloudEndpoint = "SAGEMAKER_ENDPOINT_NAME"
	EnvCloudRegion   = "AWS_REGION"
)

func applyEnv(cfg *Config) {
	setString(&cfg.HTTPAddr, EnvHTTPAddr)
	setString(&cfg.LogLevel, EnvLogLevel)
	setString(&cfg.Junction, EnvJunction)
	setDuration(&cfg.Tick, EnvTick)
	setDuration(&cfg.Heartbeat, EnvHeartbeat)
	setString(&cfg.MQTT.Broker, EnvMQTTBroker)
	setString(&cfg.MQTT.ClientID, EnvMQTTClientID)
	setString(&cfg.MQTT.Username, EnvMQTTUsername)
	setString(&cfg.MQTT.Password, EnvMQTTPassword)
	setString(&cfg.MQTT.TopicPrefix, EnvMQTTPrefix)
	setBool(&cfg.Lamp.Enabled, EnvLampEnabled)
	setString(&cfg.Cloud.Endpoint, EnvCloudEndpoint)
	setString(&cfg.Cloud.Region, EnvCloudRegion)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warnf("failed to parse %s as duration, keeping %v: %v", key, *dst, err)
		return
	}
	*dst = d
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warnf("failed to parse %s as bool, keeping %v: %v", key, *dst, err)
		return
	}
	*dst = b
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if _, ok := LogLevels[c.LogLevel]; !ok {
		return fmt.Errorf("log level %q must be one of %v", c.LogLevel, lo.Keys(LogLevels))
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %v", c.Tick)
	}
	if c.MQTT.Broker != "" && c.MQTT.BufferSize <= 0 {
		return fmt.Errorf("mqtt buffer size must be positive, got %d", c.MQTT.BufferSize)
	}
	if c.Lamp.Enabled {
		if c.Junction == "" {
			return errors.New("lamp requires a junction")
		}
		pins := []int{c.Lamp.Red, c.Lamp.Amber, c.Lamp.Green}
		if len(lo.Uniq(pins)) != len(pins) {
			return fmt.Errorf("lamp pins must be distinct, got red=%d amber=%d green=%d", c.Lamp.Red, c.Lamp.Amber, c.Lamp.Green)
		}
		if lo.SomeBy(pins, func(p int) bool { return p < 0 }) {
			return errors.New("lamp pins must not be negative")
		}
	}
	return nil
}
