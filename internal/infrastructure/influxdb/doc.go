// Package influxdb records adapter connection events in InfluxDB v2.
//
// The Client implements the inbound.EventSink interface: connection
// failures and successful subscriptions become points in the
// connection_events measurement, tagged by client ID and event type.
//
// Writes go through the non-blocking, batching write API. Failures to
// reach InfluxDB never affect the adapter; async write errors surface
// only through the optional error callback. This matches the sink's
// fire-and-forget contract.
//
// # Usage
//
//	sink, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without the sink
//	}
//	defer sink.Close()
package influxdb
