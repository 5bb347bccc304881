package mqtt

import (
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Handle Lifecycle Tests
// =============================================================================

func TestPahoClientNotConnected(t *testing.T) {
	client := newPahoClient("tcp://127.0.0.1:1883", "mqttind-test")

	if client.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
	if _, err := client.Subscribe([]string{"a/b"}, []byte{1}); err != ErrNotConnected {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if err := client.Unsubscribe([]string{"a/b"}); err != ErrNotConnected {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
	if err := client.DisconnectForcibly(time.Second); err != nil {
		t.Errorf("DisconnectForcibly() error = %v, want nil without a handle", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestPahoClientSubscribeValidation(t *testing.T) {
	client := newPahoClient("tcp://127.0.0.1:1", "mqttind-test")
	_ = client.Connect(ConnectionOptions{ConnectTimeout: 200 * time.Millisecond})
	defer client.Close()

	if _, err := client.Subscribe([]string{"a/b"}, []byte{0, 1}); err == nil {
		t.Error("Subscribe() with mismatched topic/QoS lengths should fail")
	}
	if _, err := client.Subscribe([]string{""}, []byte{1}); err != ErrInvalidTopic {
		t.Errorf("Subscribe(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if _, err := client.Subscribe([]string{"a/b"}, []byte{3}); err != ErrInvalidQoS {
		t.Errorf("Subscribe(qos 3) error = %v, want ErrInvalidQoS", err)
	}
}

// TestPahoClientConcurrentCloseAndSubscribe drives broker operations
// concurrently with Close on one handle. The adapter issues live
// subscribe/unsubscribe calls while connection-loss handling tears the
// handle down, so these paths must be safe together; run with -race.
func TestPahoClientConcurrentCloseAndSubscribe(t *testing.T) {
	for i := 0; i < 20; i++ {
		client := newPahoClient("tcp://127.0.0.1:1", "mqttind-race")

		// The connect fails fast (nothing listens on port 1) but still
		// installs the underlying handle, matching a half-established
		// connection at teardown time.
		_ = client.Connect(ConnectionOptions{ConnectTimeout: 200 * time.Millisecond})

		var wg sync.WaitGroup
		wg.Add(4)
		go func() {
			defer wg.Done()
			_, _ = client.Subscribe([]string{"a/b"}, []byte{1})
		}()
		go func() {
			defer wg.Done()
			_ = client.Unsubscribe([]string{"a/b"})
		}()
		go func() {
			defer wg.Done()
			client.IsConnected()
		}()
		go func() {
			defer wg.Done()
			_ = client.Close()
		}()
		wg.Wait()

		if client.IsConnected() {
			t.Fatal("IsConnected() = true after Close")
		}
	}
}

func TestPahoClientSetTimeToWait(t *testing.T) {
	client := newPahoClient("tcp://127.0.0.1:1883", "mqttind-test")

	client.SetTimeToWait(5 * time.Second)
	if _, got := client.handle(); got != 5*time.Second {
		t.Errorf("timeToWait = %v, want 5s", got)
	}

	// Non-positive values keep the previous bound.
	client.SetTimeToWait(0)
	if _, got := client.handle(); got != 5*time.Second {
		t.Errorf("timeToWait = %v, want unchanged 5s", got)
	}
}
