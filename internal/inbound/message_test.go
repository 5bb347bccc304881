package inbound

import (
	"errors"
	"testing"
	"time"

	"github.com/stonehollow/mqtt-inbound/internal/infrastructure/mqtt"
)

// =============================================================================
// Converter Tests
// =============================================================================

func TestDefaultConverter(t *testing.T) {
	before := time.Now().UTC()
	msg, err := DefaultConverter{}.ToMessage(mqtt.Message{
		Topic:     "sensors/temp",
		Payload:   []byte("21.5"),
		QoS:       2,
		Retained:  true,
		Duplicate: true,
	})
	if err != nil {
		t.Fatalf("ToMessage() error = %v", err)
	}

	if msg.Topic != "sensors/temp" {
		t.Errorf("Topic = %q", msg.Topic)
	}
	if string(msg.Payload) != "21.5" {
		t.Errorf("Payload = %q", msg.Payload)
	}
	if msg.QoS != 2 || !msg.Retained || !msg.Duplicate {
		t.Errorf("flags = qos %d retained %v duplicate %v", msg.QoS, msg.Retained, msg.Duplicate)
	}
	if msg.ReceivedAt.Before(before) || msg.ReceivedAt.After(time.Now().UTC()) {
		t.Errorf("ReceivedAt = %v, outside test window", msg.ReceivedAt)
	}
	if msg.ReceivedAt.Location() != time.UTC {
		t.Errorf("ReceivedAt location = %v, want UTC", msg.ReceivedAt.Location())
	}
}

// =============================================================================
// Event Fanout Tests
// =============================================================================

func TestMultiSinkFansOutInOrder(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	sink := MultiSink{first, second}

	cause := errors.New("broken pipe")
	sink.ConnectionFailed(ConnectionFailedEvent{ClientID: "c1", Cause: cause})
	sink.Subscribed(SubscribedEvent{ClientID: "c1", Topics: []string{"a/b"}})

	for i, s := range []*recordingSink{first, second} {
		failed, subscribed := s.counts()
		if failed != 1 || subscribed != 1 {
			t.Errorf("sink %d received %d failed, %d subscribed; want 1, 1", i, failed, subscribed)
		}
		if !errors.Is(s.failed[0].Cause, cause) {
			t.Errorf("sink %d cause = %v", i, s.failed[0].Cause)
		}
	}
}

// =============================================================================
// Scheduler Tests
// =============================================================================

func TestTimerSchedulerFires(t *testing.T) {
	s := NewTimerScheduler()

	done := make(chan struct{})
	if _, err := s.Schedule(time.Millisecond, func() { close(done) }); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduled task never fired")
	}
}

func TestTimerSchedulerCancel(t *testing.T) {
	s := NewTimerScheduler()

	fired := make(chan struct{}, 1)
	cancel, err := s.Schedule(20*time.Millisecond, func() { fired <- struct{}{} })
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	cancel()

	select {
	case <-fired:
		t.Fatal("cancelled task fired")
	case <-time.After(60 * time.Millisecond):
	}
}
