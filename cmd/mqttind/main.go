// mqttind - resilient MQTT inbound consumer daemon
//
// mqttind maintains a long-lived subscription against an MQTT broker,
// persists every delivered message in a SQLite store, and recovers from
// connection loss on a fixed interval without operator intervention.
// Connection lifecycle events can be mirrored to InfluxDB and exposed as
// Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stonehollow/mqtt-inbound/internal/inbound"
	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/config"
	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/influxdb"
	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/logging"
	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/mqtt"
	"github.com/stonehollow/mqtt-inbound/internal/metrics"
	"github.com/stonehollow/mqtt-inbound/internal/store"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// metricsShutdownTimeout bounds the metrics listener shutdown.
const metricsShutdownTimeout = 5 * time.Second

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting mqtt-inbound",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the message store
	messages, err := store.Open(ctx, store.Config{
		Path:        cfg.Store.Path,
		WALMode:     cfg.Store.WALMode,
		BusyTimeout: cfg.Store.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening message store: %w", err)
	}
	defer func() {
		log.Info("closing message store")
		if closeErr := messages.Close(); closeErr != nil {
			log.Error("error closing message store", "error", closeErr)
		}
	}()
	log.Info("message store ready", "path", cfg.Store.Path)

	var consumer inbound.Consumer = messages
	var sinks inbound.MultiSink

	// Metrics (optional)
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		consumer = collector.InstrumentConsumer(consumer)
		sinks = append(sinks, collector)

		srv := startMetricsServer(cfg.Metrics.Addr, collector, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
				log.Error("error stopping metrics server", "error", shutdownErr)
			}
		}()
		log.Info("metrics server started", "addr", cfg.Metrics.Addr)
	}

	// InfluxDB event sink (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			influxClient.Close()
		}()
		influxClient.SetOnError(func(writeErr error) {
			log.Error("InfluxDB write error", "error", writeErr)
		})
		sinks = append(sinks, influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the broker client factory
	factory, err := mqtt.NewPahoFactory(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("building client factory: %w", err)
	}

	// Assemble the adapter
	topics := make([]inbound.Topic, len(cfg.Inbound.Topics))
	for i, t := range cfg.Inbound.Topics {
		topics[i] = inbound.Topic{Pattern: t.Pattern, QoS: byte(t.QoS)} // #nosec G115 -- validated 0-2
	}

	var events inbound.EventSink
	if len(sinks) > 0 {
		events = sinks
	}

	adapter, err := inbound.New(inbound.Config{
		ClientID:          cfg.MQTT.Broker.ClientID,
		Factory:           factory,
		Consumer:          consumer,
		Events:            events,
		Logger:            log.With("component", "inbound"),
		CompletionTimeout: cfg.GetCompletionTimeout(),
		RecoveryInterval:  cfg.GetRecoveryInterval(),
		Topics:            topics,
	})
	if err != nil {
		return fmt.Errorf("building adapter: %w", err)
	}

	// Start the adapter. A configuration problem is fatal; an unreachable
	// broker is not - recovery is already scheduled and keeps retrying at
	// the recovery interval until the broker appears.
	if err := adapter.Start(); err != nil {
		if errors.Is(err, inbound.ErrConfiguration) {
			adapter.Stop()
			return fmt.Errorf("starting adapter: %w", err)
		}
		log.Warn("initial connect failed, recovery scheduled", "error", err)
	} else {
		log.Info("connected and subscribed",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"topics", len(topics),
		)
	}
	defer func() {
		log.Info("stopping adapter")
		adapter.Stop()
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls unwind in reverse order: adapter, sinks, store.
	return nil
}

// startMetricsServer serves the collector's registry on addr.
func startMetricsServer(addr string, collector *metrics.Collector, log *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	return srv
}

// getConfigPath returns the configuration file path.
// Uses MQTTIN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MQTTIN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
