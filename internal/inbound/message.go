package inbound

import (
	"time"

	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/mqtt"
)

// Message is the adapter's internal message representation, handed to the
// downstream Consumer.
type Message struct {
	Topic      string
	Payload    []byte
	QoS        byte
	Retained   bool
	Duplicate  bool
	ReceivedAt time.Time
}

// Converter translates a protocol-native message into a Message.
type Converter interface {
	ToMessage(m mqtt.Message) (Message, error)
}

// DefaultConverter copies the protocol fields verbatim and stamps the
// receive time.
type DefaultConverter struct{}

func (DefaultConverter) ToMessage(m mqtt.Message) (Message, error) {
	return Message{
		Topic:      m.Topic,
		Payload:    m.Payload,
		QoS:        m.QoS,
		Retained:   m.Retained,
		Duplicate:  m.Duplicate,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// Consumer is the downstream recipient of inbound messages. A non-nil
// error signals delivery failure back to the protocol layer, which then
// withholds the broker acknowledgement.
type Consumer interface {
	Accept(msg Message) error
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(msg Message) error

func (f ConsumerFunc) Accept(msg Message) error {
	return f(msg)
}
