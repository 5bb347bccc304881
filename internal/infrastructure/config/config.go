package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the mqtt-inbound daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Inbound  InboundConfig  `yaml:"inbound"`
	Store    StoreConfig    `yaml:"store"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`

	// CleanSession asks the broker to discard prior session state on
	// connect. It also feeds the "clean" stop action.
	CleanSession bool `yaml:"clean_session"`

	// StopAction controls unsubscription when the consumer stops:
	// "always", "clean" (unsubscribe only for clean sessions), or "never".
	// Empty selects "clean".
	StopAction string `yaml:"stop_action"`

	// KeepAlive is the protocol ping interval in seconds. 0 uses the
	// client default.
	KeepAlive int `yaml:"keep_alive"`

	// ConnectTimeout bounds the connect handshake in seconds. 0 uses the
	// client default.
	ConnectTimeout int `yaml:"connect_timeout"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InboundConfig contains the subscription and recovery settings of the
// inbound adapter.
type InboundConfig struct {
	// Topics is the initial subscription list.
	Topics []TopicConfig `yaml:"topics"`

	// CompletionTimeout bounds broker acknowledgement waits and the
	// forcible disconnect on stop, in milliseconds. Default: 30000.
	CompletionTimeout int `yaml:"completion_timeout"`

	// RecoveryInterval is the fixed delay between reconnect attempts after
	// a connection loss or failed connect, in milliseconds. Default: 10000.
	RecoveryInterval int `yaml:"recovery_interval"`
}

// TopicConfig is one subscription entry: a topic filter and its requested
// QoS level.
type TopicConfig struct {
	Pattern string `yaml:"pattern"`
	QoS     int    `yaml:"qos"`
}

// StoreConfig contains SQLite message store settings.
type StoreConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for the connection
// event sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig contains Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MQTTIN_SECTION_KEY
// For example: MQTTIN_MQTT_HOST, MQTTIN_STORE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "mqtt-inbound",
			},
			CleanSession: true,
			StopAction:   "clean",
			KeepAlive:    60,
		},
		Inbound: InboundConfig{
			CompletionTimeout: 30000,
			RecoveryInterval:  10000,
		},
		Store: StoreConfig{
			Path:        "./data/messages.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9190",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MQTTIN_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("MQTTIN_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MQTTIN_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("MQTTIN_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("MQTTIN_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MQTTIN_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Store
	if v := os.Getenv("MQTTIN_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}

	// InfluxDB
	if v := os.Getenv("MQTTIN_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Broker validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required")
	}

	// Stop action validation
	switch c.MQTT.StopAction {
	case "", "always", "clean", "never":
	default:
		errs = append(errs, "mqtt.stop_action must be always, clean, or never")
	}

	// Subscription validation
	seen := make(map[string]bool, len(c.Inbound.Topics))
	for _, topic := range c.Inbound.Topics {
		if topic.Pattern == "" {
			errs = append(errs, "inbound.topics entries require a pattern")
			continue
		}
		if topic.QoS < 0 || topic.QoS > 2 {
			errs = append(errs, fmt.Sprintf("inbound.topics[%s].qos must be 0, 1, or 2", topic.Pattern))
		}
		if seen[topic.Pattern] {
			errs = append(errs, fmt.Sprintf("inbound.topics[%s] is duplicated", topic.Pattern))
		}
		seen[topic.Pattern] = true
	}

	// Timing validation
	if c.Inbound.CompletionTimeout <= 0 {
		errs = append(errs, "inbound.completion_timeout must be positive")
	}
	if c.Inbound.RecoveryInterval <= 0 {
		errs = append(errs, "inbound.recovery_interval must be positive")
	}

	// Store validation
	if c.Store.Path == "" {
		errs = append(errs, "store.path is required")
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required (set MQTTIN_INFLUXDB_TOKEN environment variable)")
		}
	}

	// Metrics validation (only when enabled)
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetCompletionTimeout returns the completion timeout as a Duration.
func (c *Config) GetCompletionTimeout() time.Duration {
	return time.Duration(c.Inbound.CompletionTimeout) * time.Millisecond
}

// GetRecoveryInterval returns the recovery interval as a Duration.
func (c *Config) GetRecoveryInterval() time.Duration {
	return time.Duration(c.Inbound.RecoveryInterval) * time.Millisecond
}
