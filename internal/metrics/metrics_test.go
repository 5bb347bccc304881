package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/stonehollow/mqtt-inbound/internal/inbound"
)

// =============================================================================
// Event Sink Tests
// =============================================================================

func TestConnectionLifecycleMetrics(t *testing.T) {
	c := NewCollector()

	c.ConnectionFailed(inbound.ConnectionFailedEvent{ClientID: "c1", Cause: errors.New("EOF")})
	c.ConnectionFailed(inbound.ConnectionFailedEvent{ClientID: "c1", Cause: errors.New("EOF")})

	if got := testutil.ToFloat64(c.connectFailuresTotal); got != 2 {
		t.Errorf("connect failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.connected); got != 0 {
		t.Errorf("connected gauge = %v, want 0", got)
	}

	c.Subscribed(inbound.SubscribedEvent{ClientID: "c1", Topics: []string{"a/b"}})

	if got := testutil.ToFloat64(c.subscribesTotal); got != 1 {
		t.Errorf("subscribes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.connected); got != 1 {
		t.Errorf("connected gauge = %v, want 1", got)
	}
}

// =============================================================================
// Consumer Instrumentation Tests
// =============================================================================

func TestInstrumentConsumerCountsDeliveries(t *testing.T) {
	c := NewCollector()
	consumer := c.InstrumentConsumer(inbound.ConsumerFunc(func(inbound.Message) error {
		return nil
	}))

	for i := 0; i < 3; i++ {
		if err := consumer.Accept(inbound.Message{Topic: "a/b"}); err != nil {
			t.Fatalf("Accept() error = %v", err)
		}
	}
	if err := consumer.Accept(inbound.Message{Topic: "c/d"}); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	if got := testutil.ToFloat64(c.messagesReceivedTotal.WithLabelValues("a/b")); got != 3 {
		t.Errorf("received[a/b] = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.messagesReceivedTotal.WithLabelValues("c/d")); got != 1 {
		t.Errorf("received[c/d] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.deliveryErrorsTotal); got != 0 {
		t.Errorf("delivery errors = %v, want 0", got)
	}
}

func TestInstrumentConsumerCountsErrors(t *testing.T) {
	c := NewCollector()
	deliveryErr := errors.New("downstream full")
	consumer := c.InstrumentConsumer(inbound.ConsumerFunc(func(inbound.Message) error {
		return deliveryErr
	}))

	if err := consumer.Accept(inbound.Message{Topic: "a/b"}); !errors.Is(err, deliveryErr) {
		t.Errorf("Accept() error = %v, want %v", err, deliveryErr)
	}

	if got := testutil.ToFloat64(c.deliveryErrorsTotal); got != 1 {
		t.Errorf("delivery errors = %v, want 1", got)
	}
	// Rejected deliveries are not counted as received.
	if got := testutil.ToFloat64(c.messagesReceivedTotal.WithLabelValues("a/b")); got != 0 {
		t.Errorf("received[a/b] = %v, want 0", got)
	}
}

// =============================================================================
// HTTP Handler Tests
// =============================================================================

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.Subscribed(inbound.SubscribedEvent{ClientID: "c1", Topics: []string{"a/b"}})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"mqtt_inbound_connected 1",
		"mqtt_inbound_subscribes_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
