// Package inbound implements a resilient, message-driven MQTT subscriber.
//
// The Adapter maintains a long-lived broker connection, subscribes a
// runtime-mutable set of topic filters, delivers inbound messages to a
// downstream Consumer, and autonomously recovers from connection loss.
//
// # Architecture
//
// The adapter composes four parts:
//
//   - Connection management: connect and batched subscribe execute as one
//     atomic unit of work; the single live handle is torn down on stop or
//     failure. Granted-QoS downgrades are warnings, not failures.
//   - Topic registry: an ordered, unique set of (filter, QoS) pairs,
//     mutable at runtime through AddTopic/RemoveTopic with rollback
//     semantics against the live subscription state.
//   - Reconnection: after a loss or failed connect, a single delayed retry
//     task fires at a fixed recovery interval, rescheduling itself on
//     failure. No backoff growth, no attempt cap; recovery runs until Stop
//     or success.
//   - Callback routing: connection-lost and message-arrived notifications
//     from the protocol layer become lifecycle actions and deliveries.
//
// One mutex serialises connect, stop, loss handling, and retry bodies, so
// no handle is ever used mid-teardown and no two connects overlap. Message
// delivery bypasses that mutex entirely: the protocol layer's I/O thread
// never stalls behind a reconnect.
//
// # Usage
//
//	adapter, err := inbound.New(inbound.Config{
//	    ClientID: "ingest-01",
//	    Factory:  factory,
//	    Consumer: store,
//	    Topics:   []inbound.Topic{{Pattern: "sensors/#", QoS: 1}},
//	    Logger:   logger,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := adapter.Start(); err != nil {
//	    logger.Warn("initial connect failed, recovery scheduled", "error", err)
//	}
//	defer adapter.Stop()
package inbound
