package inbound

import (
	"errors"
	"fmt"
)

// Domain-specific errors for the inbound adapter.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConfiguration is returned when no broker URL is available from
	// either the adapter or the factory's connection options.
	ErrConfiguration = errors.New("inbound: configuration invalid")

	// ErrAlreadyRunning is returned when Start is called on a running
	// adapter.
	ErrAlreadyRunning = errors.New("inbound: adapter already running")

	// ErrTopicExists is returned when adding a topic pattern that is
	// already registered.
	ErrTopicExists = errors.New("inbound: topic already registered")

	// ErrInvalidTopic is returned when a topic pattern is empty.
	ErrInvalidTopic = errors.New("inbound: topic pattern cannot be empty")

	// ErrInvalidQoS is returned when a QoS level is outside 0-2.
	ErrInvalidQoS = errors.New("inbound: invalid QoS level (must be 0, 1, or 2)")
)

// SubscriptionError reports a failed runtime subscribe or unsubscribe,
// carrying the topic and the underlying protocol error. The registry is
// always consistent with the live subscription state when one of these is
// returned.
type SubscriptionError struct {
	Topic string
	Err   error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("inbound: subscription operation for topic %q failed: %v", e.Topic, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}
