// Package mqtt provides the broker client capability consumed by the
// inbound adapter.
//
// This package defines:
//   - Client: a synchronous broker handle (connect, batched subscribe,
//     unsubscribe, forcible disconnect, close)
//   - Callback: the asynchronous event sink for connection-lost and
//     message-arrived notifications
//   - ClientFactory: supplier of connection options, stop action, and
//     fresh handles
//   - PahoFactory: the production implementation backed by
//     github.com/eclipse/paho.mqtt.golang
//
// # Architecture
//
// The inbound adapter treats the wire protocol as opaque: it owns exactly
// one Client at a time and recreates it through the factory after a
// connection loss. For that reason the paho implementation disables the
// library's own auto-reconnect and connect-retry machinery; recovery
// policy lives in one place, the adapter.
//
// Messages are acknowledged manually: the broker sees an ack only after
// the registered Callback accepts delivery, so a failing downstream
// consumer keeps the protocol's redelivery semantics.
//
// # Usage
//
//	factory, err := mqtt.NewPahoFactory(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, _ := factory.NewClient("", cfg.MQTT.Broker.ClientID)
//	client.SetCallback(sink)
//	err = client.Connect(factory.ConnectionOptions())
package mqtt
