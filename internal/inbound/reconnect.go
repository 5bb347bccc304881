package inbound

import "time"

// CancelFunc cancels a scheduled task. Cancellation is best-effort and
// non-blocking: it does not wait for an in-flight task body to finish.
type CancelFunc func()

// TaskScheduler runs a task once after a delay. The adapter treats it as
// an external capability so tests can drive retries with a manual clock.
type TaskScheduler interface {
	Schedule(delay time.Duration, task func()) (CancelFunc, error)
}

// timerScheduler is the production scheduler, backed by time.AfterFunc.
type timerScheduler struct{}

// NewTimerScheduler returns a TaskScheduler backed by the runtime timer.
func NewTimerScheduler() TaskScheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(delay time.Duration, task func()) (CancelFunc, error) {
	t := time.AfterFunc(delay, task)
	return func() { t.Stop() }, nil
}

// scheduleReconnect replaces any pending retry with a fresh one at the
// recovery interval. Scheduling failures are logged, not propagated: the
// adapter then stays disconnected until the next external trigger.
//
// Caller must hold a.mu.
func (a *Adapter) scheduleReconnect() {
	a.cancelReconnect()

	cancel, err := a.scheduler.Schedule(a.recoveryInterval, a.retryConnect)
	if err != nil {
		a.logger.Error("failed to schedule reconnect", "error", err)
		return
	}
	a.reconnect = cancel
}

// cancelReconnect cancels the pending retry task, if any.
// Caller must hold a.mu.
func (a *Adapter) cancelReconnect() {
	if a.reconnect != nil {
		a.reconnect()
		a.reconnect = nil
	}
}

// retryConnect is the retry task body. It serialises against the other
// lifecycle operations, so a body that fires during Stop simply observes
// the stopped state afterwards and returns. On failure it reschedules
// itself: fixed-interval linear retry, unbounded, until Stop or success.
func (a *Adapter) retryConnect() {
	a.logger.Debug("attempting reconnect")

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running.Load() || a.Connected() {
		return
	}

	if err := a.connectAndSubscribe(); err != nil {
		a.logger.Error("error connecting and subscribing", "error", err)
		a.scheduleReconnect()
		return
	}

	a.reconnect = nil
}
