package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stonehollow/mqtt-inbound/internal/inbound"
)

// Collector holds the adapter's Prometheus metrics.
//
// It doubles as an inbound.EventSink (connection lifecycle) and wraps a
// Consumer to count deliveries, so a single Collector instruments the
// whole inbound path.
type Collector struct {
	registry *prometheus.Registry

	messagesReceivedTotal *prometheus.CounterVec
	deliveryErrorsTotal   prometheus.Counter
	connectFailuresTotal  prometheus.Counter
	subscribesTotal       prometheus.Counter
	connected             prometheus.Gauge
}

// NewCollector creates a Collector with its own registry.
//
// Returns:
//   - *Collector: Initialized metrics collector
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		messagesReceivedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mqtt_inbound_messages_received_total",
				Help: "Total number of messages delivered to the consumer, per topic",
			},
			[]string{"topic"},
		),
		deliveryErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mqtt_inbound_delivery_errors_total",
				Help: "Total number of messages the consumer rejected",
			},
		),
		connectFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mqtt_inbound_connect_failures_total",
				Help: "Total number of failed connect attempts and connection losses",
			},
		),
		subscribesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mqtt_inbound_subscribes_total",
				Help: "Total number of successful connect+subscribe sequences",
			},
		),
		connected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mqtt_inbound_connected",
				Help: "1 while the broker connection is established, 0 otherwise",
			},
		),
	}
}

// ConnectionFailed implements inbound.EventSink.
func (c *Collector) ConnectionFailed(inbound.ConnectionFailedEvent) {
	c.connectFailuresTotal.Inc()
	c.connected.Set(0)
}

// Subscribed implements inbound.EventSink.
func (c *Collector) Subscribed(inbound.SubscribedEvent) {
	c.subscribesTotal.Inc()
	c.connected.Set(1)
}

// InstrumentConsumer wraps next so every delivery is counted, including
// rejected ones.
func (c *Collector) InstrumentConsumer(next inbound.Consumer) inbound.Consumer {
	return inbound.ConsumerFunc(func(msg inbound.Message) error {
		if err := next.Accept(msg); err != nil {
			c.deliveryErrorsTotal.Inc()
			return err
		}
		c.messagesReceivedTotal.WithLabelValues(msg.Topic).Inc()
		return nil
	})
}

// Handler returns an http.Handler serving the collector's registry, for
// mounting at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
