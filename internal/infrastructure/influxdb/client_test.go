package influxdb_test

import (
	"errors"
	"os"
	"testing"

	"github.com/stonehollow/mqtt-inbound/internal/inbound"
	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/config"
	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "mqtt-inbound-dev-token",
		Org:           "mqtt-inbound",
		Bucket:        "events",
		BatchSize:     100,
		FlushInterval: 1, // 1 second for faster test feedback
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		cfg := testConfig()
		client, err := influxdb.Connect(cfg)
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		client.Close()
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnectDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
}

func TestClose(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.Close()
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

// =============================================================================
// Event Sink Tests
// =============================================================================

func TestEventSinkWrites(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })

	client.ConnectionFailed(inbound.ConnectionFailedEvent{
		ClientID: "test-client",
		Cause:    errors.New("broker unreachable"),
	})
	client.Subscribed(inbound.SubscribedEvent{
		ClientID: "test-client",
		Topics:   []string{"plant/+/telemetry"},
	})

	// Close flushes the batch; any async failure surfaces via the callback.
	client.Close()
	if writeErr != nil {
		t.Errorf("async write error = %v", writeErr)
	}
}

func TestEventSinkAfterCloseIsNoOp(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	// Must not panic or block once the connection is gone.
	client.ConnectionFailed(inbound.ConnectionFailedEvent{ClientID: "test-client"})
	client.Subscribed(inbound.SubscribedEvent{ClientID: "test-client"})
}
