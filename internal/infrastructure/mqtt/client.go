package mqtt

import (
	"crypto/tls"
	"time"
)

// Client is the synchronous broker handle consumed by the inbound adapter.
//
// Implementations wrap a concrete MQTT library; the adapter only ever
// holds one live Client at a time and drives its whole lifecycle through
// this surface. All methods block until the broker acknowledges the
// operation or an internal timeout fires.
//
// Thread Safety:
//   - Individual calls are safe to issue from different goroutines; the
//     adapter serialises lifecycle calls (Connect/Disconnect/Close) itself.
type Client interface {
	// Connect establishes the broker session described by opts.
	Connect(opts ConnectionOptions) error

	// Subscribe issues one batched subscribe call for the given topic
	// filters. topics and qos are aligned by index. It returns the granted
	// QoS per topic in the same order; a granted level may be lower than
	// requested, and 0x80 marks a filter the broker rejected.
	Subscribe(topics []string, qos []byte) ([]byte, error)

	// Unsubscribe removes the given topic filters from the session.
	Unsubscribe(topics []string) error

	// DisconnectForcibly ends the network connection, allowing up to
	// timeout for in-flight work to quiesce.
	DisconnectForcibly(timeout time.Duration) error

	// SetCallback registers the event sink for connection-lost and
	// message-arrived notifications. Passing nil deregisters it.
	SetCallback(cb Callback)

	// Close releases the handle's resources. The handle must not be used
	// afterwards.
	Close() error

	// IsConnected reports whether the session is currently up.
	IsConnected() bool
}

// Callback receives asynchronous events from a Client. The calls originate
// on the protocol library's own goroutines.
type Callback interface {
	// ConnectionLost is invoked once when an established connection drops.
	ConnectionLost(cause error)

	// MessageArrived is invoked for each inbound message. Returning a
	// non-nil error signals the protocol layer that delivery failed; the
	// message is then not acknowledged to the broker.
	MessageArrived(msg Message) error

	// DeliveryComplete is invoked when an outbound delivery finishes.
	// Inbound-only consumers ignore it.
	DeliveryComplete(messageID uint16)
}

// ClientFactory supplies connection configuration and fresh Client handles.
// The adapter calls it once per connect attempt, so a factory may rotate
// credentials or server lists between attempts.
type ClientFactory interface {
	// ConnectionOptions returns the options for the next connect attempt.
	ConnectionOptions() ConnectionOptions

	// StopAction returns the unsubscribe policy applied when the consumer
	// stops.
	StopAction() StopAction

	// NewClient returns an unconnected handle for the given broker URL and
	// client identifier. url may be empty when the options carry server
	// URLs.
	NewClient(url, clientID string) (Client, error)
}

// ConnectionOptions describes one broker session.
type ConnectionOptions struct {
	// ServerURLs are broker addresses (tcp://host:port or ssl://host:port).
	// They take precedence over a URL passed to ClientFactory.NewClient.
	ServerURLs []string

	// CleanSession asks the broker to discard prior session state.
	CleanSession bool

	Username string
	Password string

	// KeepAlive is the interval between protocol-level pings.
	KeepAlive time.Duration

	// ConnectTimeout bounds the initial connect handshake.
	ConnectTimeout time.Duration

	// TLS enables transport security when non-nil.
	TLS *tls.Config
}

// Message is a protocol message as received from the broker, before
// conversion into the adapter's internal representation.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       byte
	Retained  bool
	Duplicate bool
	MessageID uint16
}

// StopAction is the unsubscribe policy applied when the consumer stops.
type StopAction string

const (
	// StopActionAlways unsubscribes all registered topics on stop.
	StopActionAlways StopAction = "always"

	// StopActionClean unsubscribes on stop only when the session was
	// established with CleanSession set.
	StopActionClean StopAction = "clean"

	// StopActionNever leaves subscriptions in place on stop, preserving
	// them for a persistent session.
	StopActionNever StopAction = "never"
)

// ParseStopAction converts a configuration string into a StopAction.
// The empty string selects StopActionClean, the default policy.
func ParseStopAction(s string) (StopAction, error) {
	switch StopAction(s) {
	case "":
		return StopActionClean, nil
	case StopActionAlways, StopActionClean, StopActionNever:
		return StopAction(s), nil
	default:
		return "", ErrInvalidStopAction
	}
}
