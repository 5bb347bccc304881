package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a temporary YAML config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

// =============================================================================
// Loading Tests
// =============================================================================

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "localhost" || cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("broker defaults = %s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Broker.ClientID != "mqtt-inbound" {
		t.Errorf("client_id default = %q", cfg.MQTT.Broker.ClientID)
	}
	if !cfg.MQTT.CleanSession {
		t.Error("clean_session default = false, want true")
	}
	if cfg.MQTT.StopAction != "clean" {
		t.Errorf("stop_action default = %q, want clean", cfg.MQTT.StopAction)
	}
	if cfg.Inbound.CompletionTimeout != 30000 {
		t.Errorf("completion_timeout default = %d, want 30000", cfg.Inbound.CompletionTimeout)
	}
	if cfg.Inbound.RecoveryInterval != 10000 {
		t.Errorf("recovery_interval default = %d, want 10000", cfg.Inbound.RecoveryInterval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
mqtt:
  broker:
    host: broker.lan
    port: 8883
    tls: true
    client_id: plant-ingest
  auth:
    username: svc
    password: hunter2
  clean_session: false
  stop_action: never
inbound:
  topics:
    - pattern: "plant/+/telemetry"
      qos: 1
    - pattern: "plant/alarms/#"
      qos: 2
  completion_timeout: 15000
  recovery_interval: 5000
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.lan" || !cfg.MQTT.Broker.TLS {
		t.Errorf("broker = %+v", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Auth.Username != "svc" {
		t.Errorf("auth username = %q", cfg.MQTT.Auth.Username)
	}
	if cfg.MQTT.CleanSession {
		t.Error("clean_session = true, want false from file")
	}
	if cfg.MQTT.StopAction != "never" {
		t.Errorf("stop_action = %q", cfg.MQTT.StopAction)
	}
	if len(cfg.Inbound.Topics) != 2 || cfg.Inbound.Topics[1].QoS != 2 {
		t.Errorf("topics = %+v", cfg.Inbound.Topics)
	}
	if got := cfg.GetCompletionTimeout(); got != 15*time.Second {
		t.Errorf("GetCompletionTimeout() = %v, want 15s", got)
	}
	if got := cfg.GetRecoveryInterval(); got != 5*time.Second {
		t.Errorf("GetRecoveryInterval() = %v, want 5s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() with missing file should fail")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "mqtt: [not a map")); err == nil {
		t.Error("Load() with malformed YAML should fail")
	}
}

// =============================================================================
// Environment Override Tests
// =============================================================================

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MQTTIN_MQTT_HOST", "env-broker")
	t.Setenv("MQTTIN_MQTT_PORT", "2883")
	t.Setenv("MQTTIN_MQTT_CLIENT_ID", "env-client")
	t.Setenv("MQTTIN_MQTT_USERNAME", "env-user")
	t.Setenv("MQTTIN_MQTT_PASSWORD", "env-pass")
	t.Setenv("MQTTIN_STORE_PATH", "/var/lib/mqttind/messages.db")

	cfg, err := Load(writeConfig(t, `
mqtt:
  broker:
    host: file-broker
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("host = %q, env should override file", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.Port != 2883 {
		t.Errorf("port = %d, want 2883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Broker.ClientID != "env-client" {
		t.Errorf("client_id = %q", cfg.MQTT.Broker.ClientID)
	}
	if cfg.MQTT.Auth.Username != "env-user" || cfg.MQTT.Auth.Password != "env-pass" {
		t.Error("credentials not taken from environment")
	}
	if cfg.Store.Path != "/var/lib/mqttind/messages.db" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
}

func TestEnvOverrideInvalidPortIgnored(t *testing.T) {
	t.Setenv("MQTTIN_MQTT_PORT", "not-a-number")

	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("port = %d, want default 1883 when override unparsable", cfg.MQTT.Broker.Port)
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"missing host", func(c *Config) { c.MQTT.Broker.Host = "" }, "mqtt.broker.host"},
		{"port too high", func(c *Config) { c.MQTT.Broker.Port = 70000 }, "mqtt.broker.port"},
		{"missing client id", func(c *Config) { c.MQTT.Broker.ClientID = "" }, "client_id"},
		{"bad stop action", func(c *Config) { c.MQTT.StopAction = "maybe" }, "stop_action"},
		{
			"topic without pattern",
			func(c *Config) { c.Inbound.Topics = []TopicConfig{{QoS: 1}} },
			"require a pattern",
		},
		{
			"topic qos out of range",
			func(c *Config) { c.Inbound.Topics = []TopicConfig{{Pattern: "a/b", QoS: 5}} },
			"qos must be",
		},
		{
			"duplicate topic",
			func(c *Config) {
				c.Inbound.Topics = []TopicConfig{{Pattern: "a/b", QoS: 1}, {Pattern: "a/b", QoS: 2}}
			},
			"duplicated",
		},
		{"zero completion timeout", func(c *Config) { c.Inbound.CompletionTimeout = 0 }, "completion_timeout"},
		{"negative recovery interval", func(c *Config) { c.Inbound.RecoveryInterval = -1 }, "recovery_interval"},
		{"missing store path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{
			"influxdb enabled without url",
			func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.Token = "t" },
			"influxdb.url",
		},
		{
			"influxdb enabled without token",
			func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.URL = "http://localhost:8086" },
			"influxdb.token",
		},
		{
			"metrics enabled without addr",
			func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" },
			"metrics.addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() error = nil, want failure")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
