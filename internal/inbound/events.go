package inbound

// ConnectionFailedEvent is published when a connect attempt fails or an
// established connection is lost.
type ConnectionFailedEvent struct {
	ClientID string
	Cause    error
}

// SubscribedEvent is published after a successful connect+subscribe,
// listing the topics covered by the subscription.
type SubscribedEvent struct {
	ClientID string
	Topics   []string
}

// EventSink receives connection lifecycle notifications. Implementations
// must not block: events are fire-and-forget from the adapter's point of
// view and are emitted while lifecycle operations are serialised.
type EventSink interface {
	ConnectionFailed(evt ConnectionFailedEvent)
	Subscribed(evt SubscribedEvent)
}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) ConnectionFailed(evt ConnectionFailedEvent) {
	for _, sink := range m {
		sink.ConnectionFailed(evt)
	}
}

func (m MultiSink) Subscribed(evt SubscribedEvent) {
	for _, sink := range m {
		sink.Subscribed(evt)
	}
}
