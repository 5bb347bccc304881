// Package metrics exposes Prometheus metrics for the inbound adapter.
//
// A Collector owns its own registry and instruments the inbound path from
// both ends: as an inbound.EventSink it tracks connection failures,
// successful subscriptions, and the connected gauge; via
// InstrumentConsumer it counts delivered and rejected messages per topic.
//
// The daemon mounts Collector.Handler() at /metrics when metrics are
// enabled in config.
package metrics
