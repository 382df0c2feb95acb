package jobqueue

import (
	"testing"
	"time"
)

func TestManagerStopSignalsWorkers(t *testing.T) {
	m := &Manager{
		queue:   NewQueue(1),
		stopCh:  make(chan struct{}),
		running: true,
	}
	m.retryTicker = time.NewTicker(time.Hour)
	m.purgeTicker = time.NewTicker(time.Hour)
	m.wg.Add(2)
	go m.retryWorker()
	go m.purgeWorker()

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return, workers never observed the stop signal")
	}

	if m.stopCh == nil {
		t.Fatal("stop channel must stay closed, not nil, for workers still selecting on it")
	}
	select {
	case <-m.stopCh:
	default:
		t.Fatal("stop channel should be closed after Stop")
	}
	if m.IsRunning() {
		t.Fatal("manager should report stopped")
	}
}

func TestManagerStopTwiceIsSafe(t *testing.T) {
	m := &Manager{
		queue:  NewQueue(1),
		stopCh: make(chan struct{}),
	}
	// Never started: both calls hit the running guard and return.
	m.Stop()
	m.Stop()
}
