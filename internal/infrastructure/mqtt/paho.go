package mqtt

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// pahoClient adapts paho.mqtt.golang to the Client interface.
//
// The underlying paho client is created lazily in Connect so that each
// handle binds its connection options exactly once. Automatic reconnection
// is disabled: connection recovery is owned by the inbound adapter, which
// discards a lost handle and requests a new one from the factory.
type pahoClient struct {
	url      string
	clientID string

	// client and timeToWait are written by Connect, SetTimeToWait and
	// Close, and read by every broker operation. The adapter issues live
	// subscribe/unsubscribe calls concurrently with lifecycle teardown, so
	// handle access must be internally synchronised.
	client     pahomqtt.Client
	timeToWait time.Duration
	connMu     sync.RWMutex

	cb   Callback
	cbMu sync.RWMutex
}

func newPahoClient(url, clientID string) *pahoClient {
	return &pahoClient{
		url:        url,
		clientID:   clientID,
		timeToWait: defaultTimeToWait,
	}
}

// SetTimeToWait bounds how long subscribe and unsubscribe calls wait for
// broker acknowledgement. The adapter probes for this method and installs
// its completion timeout when available.
func (c *pahoClient) SetTimeToWait(d time.Duration) {
	if d > 0 {
		c.connMu.Lock()
		c.timeToWait = d
		c.connMu.Unlock()
	}
}

// Connect establishes the broker session described by opts.
func (c *pahoClient) Connect(opts ConnectionOptions) error {
	po := pahomqtt.NewClientOptions()

	if len(opts.ServerURLs) > 0 {
		for _, u := range opts.ServerURLs {
			po.AddBroker(u)
		}
	} else {
		po.AddBroker(c.url)
	}

	po.SetClientID(c.clientID)
	po.SetCleanSession(opts.CleanSession)

	if opts.Username != "" {
		po.SetUsername(opts.Username)
		po.SetPassword(opts.Password)
	}
	if opts.TLS != nil {
		po.SetTLSConfig(opts.TLS)
	}

	keepAlive := opts.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	po.SetKeepAlive(keepAlive)

	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	po.SetConnectTimeout(connectTimeout)

	// Recovery belongs to the adapter, not the library.
	po.SetAutoReconnect(false)
	po.SetConnectRetry(false)

	// Manual acknowledgement: a message is acked only after the callback
	// accepts it, so delivery failures keep the broker's redelivery
	// semantics intact.
	po.SetAutoAckDisabled(true)

	po.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		if cb := c.callback(); cb != nil {
			cb.ConnectionLost(err)
		}
	})
	po.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(msg)
	})

	client := pahomqtt.NewClient(po)
	c.connMu.Lock()
	c.client = client
	c.connMu.Unlock()

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return nil
}

// Subscribe issues one batched subscribe call covering all given filters.
// The returned granted QoS levels are aligned with the input order.
func (c *pahoClient) Subscribe(topics []string, qos []byte) ([]byte, error) {
	client, timeToWait := c.handle()
	if client == nil {
		return nil, ErrNotConnected
	}
	if len(topics) != len(qos) {
		return nil, fmt.Errorf("%w: %d topics with %d QoS values", ErrSubscribeFailed, len(topics), len(qos))
	}

	filters := make(map[string]byte, len(topics))
	for i, topic := range topics {
		if topic == "" {
			return nil, ErrInvalidTopic
		}
		if qos[i] > MaxQoS {
			return nil, ErrInvalidQoS
		}
		filters[topic] = qos[i]
	}

	// nil handler routes messages through the default publish handler.
	token := client.SubscribeMultiple(filters, nil)
	if !token.WaitTimeout(timeToWait) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, timeToWait)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	granted := make([]byte, len(topics))
	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		result := st.Result()
		for i, topic := range topics {
			granted[i] = result[topic]
		}
	} else {
		copy(granted, qos)
	}

	return granted, nil
}

// Unsubscribe removes the given topic filters from the session.
func (c *pahoClient) Unsubscribe(topics []string) error {
	client, timeToWait := c.handle()
	if client == nil {
		return ErrNotConnected
	}

	token := client.Unsubscribe(topics...)
	if !token.WaitTimeout(timeToWait) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, timeToWait)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// DisconnectForcibly ends the network connection, allowing up to timeout
// for in-flight work to quiesce.
func (c *pahoClient) DisconnectForcibly(timeout time.Duration) error {
	client, _ := c.handle()
	if client == nil {
		return nil
	}

	quiesce := uint(0)
	if timeout > 0 {
		quiesce = uint(timeout.Milliseconds()) // #nosec G115 -- positive duration
	}
	client.Disconnect(quiesce)

	return nil
}

// SetCallback registers the event sink. Passing nil deregisters it.
func (c *pahoClient) SetCallback(cb Callback) {
	c.cbMu.Lock()
	c.cb = cb
	c.cbMu.Unlock()
}

// Close releases the handle. Paho frees its resources on disconnect, so
// Close only ensures the network connection is down and drops the
// reference.
func (c *pahoClient) Close() error {
	c.connMu.Lock()
	client := c.client
	c.client = nil
	c.connMu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(0)
	}

	return nil
}

// IsConnected reports whether the session is currently up.
func (c *pahoClient) IsConnected() bool {
	client, _ := c.handle()
	return client != nil && client.IsConnected()
}

// handle returns the current paho client and acknowledgement timeout.
func (c *pahoClient) handle() (pahomqtt.Client, time.Duration) {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.client, c.timeToWait
}

// callback returns the current event sink (may be nil).
func (c *pahoClient) callback() Callback {
	c.cbMu.RLock()
	defer c.cbMu.RUnlock()
	return c.cb
}

// dispatch forwards an inbound paho message to the registered callback,
// acknowledging it only when the callback accepts delivery.
func (c *pahoClient) dispatch(msg pahomqtt.Message) {
	cb := c.callback()
	if cb == nil {
		return
	}

	err := cb.MessageArrived(Message{
		Topic:     msg.Topic(),
		Payload:   msg.Payload(),
		QoS:       msg.Qos(),
		Retained:  msg.Retained(),
		Duplicate: msg.Duplicate(),
		MessageID: msg.MessageID(),
	})
	if err == nil {
		msg.Ack()
	}
}
