package inbound

import (
	"fmt"
	"strings"

	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/mqtt"
)

// Topic is one subscription entry: a topic filter and the requested QoS.
type Topic struct {
	Pattern string
	QoS     byte
}

// topicEntry is the registry's internal representation. Insertion order is
// preserved so re-subscription after a reconnect is deterministic.
type topicEntry struct {
	pattern string
	qos     byte
}

// AddTopic registers a topic filter and, when a live connection exists,
// subscribes to it immediately.
//
// The registry is updated before the live subscribe so a concurrent
// reconnect picks the topic up even if the call below races with it. If
// the live subscribe fails the entry is rolled back and a
// *SubscriptionError is returned.
//
// Parameters:
//   - pattern: Topic filter, may contain + and # wildcards
//   - qos: Requested QoS level (0, 1, or 2)
func (a *Adapter) AddTopic(pattern string, qos byte) error {
	a.topicLock.Lock()
	defer a.topicLock.Unlock()

	if err := a.addTopicLocked(pattern, qos); err != nil {
		return err
	}

	if client := a.liveClient(); client != nil {
		if _, err := client.Subscribe([]string{pattern}, []byte{qos}); err != nil {
			a.removeTopicLocked(pattern)
			return &SubscriptionError{Topic: pattern, Err: err}
		}
	}

	return nil
}

// RemoveTopic unsubscribes the given topic filters and removes them from
// the registry.
//
// When a live connection exists the broker unsubscribe happens first; on
// failure the registry is left unchanged and a *SubscriptionError is
// returned. Without a live connection the entries are removed directly.
func (a *Adapter) RemoveTopic(patterns ...string) error {
	a.topicLock.Lock()
	defer a.topicLock.Unlock()

	if client := a.liveClient(); client != nil {
		if err := client.Unsubscribe(patterns); err != nil {
			return &SubscriptionError{Topic: strings.Join(patterns, ", "), Err: err}
		}
	}

	for _, pattern := range patterns {
		a.removeTopicLocked(pattern)
	}

	return nil
}

// Topics returns a snapshot of the current registry in subscription order.
func (a *Adapter) Topics() []Topic {
	a.topicLock.Lock()
	defer a.topicLock.Unlock()

	out := make([]Topic, len(a.topics))
	for i, e := range a.topics {
		out[i] = Topic{Pattern: e.pattern, QoS: e.qos}
	}
	return out
}

// addTopicLocked validates and appends a registry entry.
// Caller must hold a.topicLock (or have exclusive access during New).
func (a *Adapter) addTopicLocked(pattern string, qos byte) error {
	if pattern == "" {
		return ErrInvalidTopic
	}
	if qos > mqtt.MaxQoS {
		return ErrInvalidQoS
	}
	for _, e := range a.topics {
		if e.pattern == pattern {
			return fmt.Errorf("%w: %s", ErrTopicExists, pattern)
		}
	}

	a.topics = append(a.topics, topicEntry{pattern: pattern, qos: qos})
	return nil
}

// removeTopicLocked drops a registry entry if present.
// Caller must hold a.topicLock.
func (a *Adapter) removeTopicLocked(pattern string) {
	for i, e := range a.topics {
		if e.pattern == pattern {
			a.topics = append(a.topics[:i], a.topics[i+1:]...)
			return
		}
	}
}

// snapshotLocked returns the registry as aligned topic and QoS slices for
// a batched subscribe call.
// Caller must hold a.topicLock.
func (a *Adapter) snapshotLocked() ([]string, []byte) {
	topics := make([]string, len(a.topics))
	qos := make([]byte, len(a.topics))
	for i, e := range a.topics {
		topics[i] = e.pattern
		qos[i] = e.qos
	}
	return topics, qos
}
