package inbound

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/mqtt"
)

// Timing defaults for broker operations.
const (
	// DefaultCompletionTimeout bounds broker acknowledgement waits and the
	// forcible disconnect during stop.
	DefaultCompletionTimeout = 30 * time.Second

	// DefaultRecoveryInterval is the fixed delay between reconnect
	// attempts after a connection loss or failed connect.
	DefaultRecoveryInterval = 10 * time.Second
)

// Logger is the narrow logging interface the adapter needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Adapter is a message-driven MQTT subscriber with autonomous recovery.
//
// It owns a single broker handle obtained from a ClientFactory, subscribes
// to a runtime-mutable set of topics, forwards inbound messages to a
// downstream Consumer, and reconnects on a fixed interval after any
// connection loss or failed connect, forever, until stopped.
//
// Thread Safety:
//   - Start, Stop, AddTopic, RemoveTopic and the internal callbacks are
//     safe for concurrent use. Lifecycle operations (connect, stop,
//     loss handling, retry bodies) are serialised against each other;
//     message delivery and the topic API never block behind them.
type Adapter struct {
	url      string
	clientID string
	factory  mqtt.ClientFactory

	converter Converter
	consumer  Consumer
	events    EventSink
	scheduler TaskScheduler
	logger    Logger

	completionTimeout time.Duration
	recoveryInterval  time.Duration

	// mu serialises connectAndSubscribe, Stop, connection-loss handling,
	// and each retry task body. No two of these may run concurrently.
	mu sync.Mutex

	// client and connected are only written under mu; connMu additionally
	// guards them so the topic API and state accessors can read the live
	// handle without blocking behind a reconnect in progress.
	client    mqtt.Client
	connected bool
	connMu    sync.RWMutex

	// Session policy, captured from the factory on each connect attempt.
	cleanSession bool
	stopAction   mqtt.StopAction

	// reconnect cancels the pending retry task; at most one is
	// outstanding. Guarded by mu.
	reconnect CancelFunc

	running atomic.Bool

	// topicLock guards the subscription registry, independently of mu.
	topicLock sync.Mutex
	topics    []topicEntry
}

// Config assembles an Adapter's collaborators and tuning.
type Config struct {
	// URL is the broker address used when the factory's connection
	// options carry no server URLs.
	URL string

	// ClientID identifies this consumer to the broker. Required.
	ClientID string

	// Factory supplies connection options, the stop action, and fresh
	// client handles. Required.
	Factory mqtt.ClientFactory

	// Consumer receives converted inbound messages. Required.
	Consumer Consumer

	// Converter translates protocol messages into Messages.
	// Defaults to DefaultConverter.
	Converter Converter

	// Events receives connection lifecycle notifications. Optional.
	Events EventSink

	// Scheduler runs the delayed reconnect task.
	// Defaults to a time.AfterFunc based scheduler.
	Scheduler TaskScheduler

	// Logger receives adapter diagnostics. Optional.
	Logger Logger

	// CompletionTimeout bounds broker acknowledgement waits.
	// Defaults to DefaultCompletionTimeout.
	CompletionTimeout time.Duration

	// RecoveryInterval is the fixed reconnect delay.
	// Defaults to DefaultRecoveryInterval.
	RecoveryInterval time.Duration

	// Topics is the initial subscription list.
	Topics []Topic
}

// New creates an Adapter from cfg.
//
// Returns:
//   - *Adapter: Ready to Start
//   - error: If required collaborators are missing or a topic entry is
//     invalid or duplicated
func New(cfg Config) (*Adapter, error) {
	if cfg.Factory == nil {
		return nil, fmt.Errorf("inbound: a client factory is required")
	}
	if cfg.Consumer == nil {
		return nil, fmt.Errorf("inbound: a consumer is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("inbound: a client ID is required")
	}

	a := &Adapter{
		url:               cfg.URL,
		clientID:          cfg.ClientID,
		factory:           cfg.Factory,
		converter:         cfg.Converter,
		consumer:          cfg.Consumer,
		events:            cfg.Events,
		scheduler:         cfg.Scheduler,
		logger:            cfg.Logger,
		completionTimeout: cfg.CompletionTimeout,
		recoveryInterval:  cfg.RecoveryInterval,
	}

	if a.converter == nil {
		a.converter = DefaultConverter{}
	}
	if a.scheduler == nil {
		a.scheduler = NewTimerScheduler()
	}
	if a.logger == nil {
		a.logger = nopLogger{}
	}
	if a.completionTimeout <= 0 {
		a.completionTimeout = DefaultCompletionTimeout
	}
	if a.recoveryInterval <= 0 {
		a.recoveryInterval = DefaultRecoveryInterval
	}

	for _, t := range cfg.Topics {
		if err := a.addTopicLocked(t.Pattern, t.QoS); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Start connects to the broker and subscribes the registered topics.
//
// On failure the error is returned to the caller and a reconnect is
// scheduled at the recovery interval, so the adapter keeps trying until
// Stop is called or the broker becomes reachable. Every later failure is
// handled internally through the same retry loop.
func (a *Adapter) Start() error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.connectAndSubscribe(); err != nil {
		a.logger.Error("error connecting and subscribing, retrying", "error", err)
		a.scheduleReconnect()
		return err
	}

	return nil
}

// Stop cancels any pending reconnect and unwinds the connection.
//
// The teardown order is: cancel retry, policy-dependent unsubscribe,
// forcible disconnect bounded by the completion timeout, callback
// deregistration, close. Teardown failures are logged and swallowed; the
// handle and connected flag are always cleared. Calling Stop without a
// live handle is a no-op beyond cancelling the pending retry.
func (a *Adapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Cancel before touching the handle, so a retry cannot fire
	// mid-teardown.
	a.cancelReconnect()
	a.running.Store(false)

	client := a.currentClient()
	if client == nil {
		return
	}

	if a.stopAction == mqtt.StopActionAlways ||
		(a.stopAction == mqtt.StopActionClean && a.cleanSession) {
		a.topicLock.Lock()
		topics, _ := a.snapshotLocked()
		a.topicLock.Unlock()

		if len(topics) > 0 {
			if err := client.Unsubscribe(topics); err != nil {
				a.logger.Error("error unsubscribing during stop", "topics", topics, "error", err)
			}
		}
	}

	if err := client.DisconnectForcibly(a.completionTimeout); err != nil {
		a.logger.Error("error disconnecting during stop", "error", err)
	}

	client.SetCallback(nil)

	if err := client.Close(); err != nil {
		a.logger.Error("error closing client during stop", "error", err)
	}

	a.setClient(nil)
}

// Connected reports whether a connect+subscribe sequence has fully
// succeeded and no loss or stop has been processed since.
func (a *Adapter) Connected() bool {
	a.connMu.RLock()
	defer a.connMu.RUnlock()
	return a.connected
}

// Running reports whether the adapter has been started and not stopped.
func (a *Adapter) Running() bool {
	return a.running.Load()
}

// connectAndSubscribe performs one connect attempt as an atomic unit:
// derive session policy, obtain a handle, connect, then issue a single
// batched subscribe covering the current registry snapshot.
//
// Caller must hold a.mu.
func (a *Adapter) connectAndSubscribe() error {
	opts := a.factory.ConnectionOptions()
	a.cleanSession = opts.CleanSession

	a.stopAction = a.factory.StopAction()
	if a.stopAction == "" {
		a.stopAction = mqtt.StopActionClean
	}

	if a.url == "" && len(opts.ServerURLs) == 0 {
		return fmt.Errorf("%w: no broker URL in adapter or connection options", ErrConfiguration)
	}

	client, err := a.factory.NewClient(a.url, a.clientID)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	client.SetCallback(&router{a})
	if tw, ok := client.(interface{ SetTimeToWait(time.Duration) }); ok {
		tw.SetTimeToWait(a.completionTimeout)
	}
	a.setClient(client)

	a.topicLock.Lock()
	topics, qos := a.snapshotLocked()
	err = a.connectClient(client, opts, topics, qos)
	a.topicLock.Unlock()

	if err != nil {
		a.emitConnectionFailed(err)
		a.logger.Error("error connecting or subscribing", "topics", topics, "error", err)

		// Best-effort teardown of the partially established handle;
		// cleanup failures never mask the original error.
		_ = client.DisconnectForcibly(a.completionTimeout)
		client.SetCallback(nil)
		_ = client.Close()
		a.setClient(nil)

		return err
	}

	if client.IsConnected() {
		a.setConnected(true)
		a.logger.Debug("connected and subscribed", "topics", topics)
		a.emitSubscribed(topics)
	}

	return nil
}

// connectClient connects the handle and subscribes the registry snapshot,
// warning when the broker grants a lower QoS than requested.
func (a *Adapter) connectClient(client mqtt.Client, opts mqtt.ConnectionOptions, topics []string, qos []byte) error {
	if err := client.Connect(opts); err != nil {
		return err
	}

	if len(topics) == 0 {
		return nil
	}

	granted, err := client.Subscribe(topics, qos)
	if err != nil {
		return err
	}

	warned := false
	for i := range qos {
		if i >= len(granted) {
			break
		}
		if granted[i] == mqtt.GrantedFailure {
			a.logger.Error("broker rejected subscription filter", "topic", topics[i])
			continue
		}
		if granted[i] != qos[i] && !warned {
			a.logger.Warn("granted QoS differs from requested",
				"topics", topics,
				"requested", qos,
				"granted", granted,
			)
			warned = true
		}
	}

	return nil
}

// connectionLost handles a loss notification from the protocol layer. It
// is a no-op once the adapter is stopped, which guards against callbacks
// firing during teardown.
func (a *Adapter) connectionLost(cause error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running.Load() {
		return
	}

	a.logger.Error("connection lost, retrying", "cause", cause)
	a.setConnected(false)

	if client := a.currentClient(); client != nil {
		client.SetCallback(nil)
		_ = client.Close() // the connection is already gone
		a.setClient(nil)
	}

	a.scheduleReconnect()
	a.emitConnectionFailed(cause)
}

// messageArrived converts an inbound protocol message and forwards it to
// the consumer. Failures are logged and returned to the protocol layer,
// which withholds the acknowledgement. It takes no adapter lock: delivery
// must never stall behind a reconnect.
func (a *Adapter) messageArrived(m mqtt.Message) error {
	msg, err := a.converter.ToMessage(m)
	if err != nil {
		a.logger.Error("error converting message", "topic", m.Topic, "error", err)
		return err
	}

	if err := a.consumer.Accept(msg); err != nil {
		a.logger.Error("unhandled error delivering message", "topic", msg.Topic, "error", err)
		return err
	}

	return nil
}

// router translates client callbacks into adapter actions. It is the only
// mqtt.Callback implementation registered on a live handle.
type router struct {
	a *Adapter
}

func (r *router) ConnectionLost(cause error) {
	r.a.connectionLost(cause)
}

func (r *router) MessageArrived(msg mqtt.Message) error {
	return r.a.messageArrived(msg)
}

// DeliveryComplete is a no-op: outbound delivery acknowledgement is out of
// scope for an inbound-only consumer.
func (r *router) DeliveryComplete(uint16) {}

// currentClient returns the handle reference, which may be nil.
func (a *Adapter) currentClient() mqtt.Client {
	a.connMu.RLock()
	defer a.connMu.RUnlock()
	return a.client
}

// liveClient returns the handle only when it exists and reports a live
// connection; the topic API uses it for immediate subscribe/unsubscribe.
func (a *Adapter) liveClient() mqtt.Client {
	a.connMu.RLock()
	defer a.connMu.RUnlock()
	if a.client != nil && a.client.IsConnected() {
		return a.client
	}
	return nil
}

func (a *Adapter) setClient(c mqtt.Client) {
	a.connMu.Lock()
	a.client = c
	if c == nil {
		a.connected = false
	}
	a.connMu.Unlock()
}

func (a *Adapter) setConnected(v bool) {
	a.connMu.Lock()
	a.connected = v
	a.connMu.Unlock()
}

func (a *Adapter) emitConnectionFailed(cause error) {
	if a.events != nil {
		a.events.ConnectionFailed(ConnectionFailedEvent{ClientID: a.clientID, Cause: cause})
	}
}

func (a *Adapter) emitSubscribed(topics []string) {
	if a.events != nil {
		a.events.Subscribed(SubscribedEvent{ClientID: a.clientID, Topics: topics})
	}
}

// nopLogger discards all diagnostics.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
