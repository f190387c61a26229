package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeepAliveStaysAliveWithPongs(t *testing.T) {
	cfg := KeepAliveConfig{
		PingInterval:   10 * time.Millisecond,
		PongTimeout:    20 * time.Millisecond,
		MaxMissedPongs: 2,
	}

	var timedOut atomic.Bool
	var ka *KeepAlive
	ka = NewKeepAlive(cfg,
		func(seq uint32) error {
			// Answer every ping.
			go ka.PongReceived(seq)
			return nil
		},
		func() { timedOut.Store(true) },
	)

	ka.Start(context.Background())
	defer ka.Stop()

	time.Sleep(100 * time.Millisecond)

	if timedOut.Load() {
		t.Error("keep-alive timed out despite pongs")
	}
	if !ka.IsRunning() {
		t.Error("keep-alive stopped despite pongs")
	}
}

func TestKeepAliveFiresAfterMissedPongs(t *testing.T) {
	cfg := KeepAliveConfig{
		PingInterval:   5 * time.Millisecond,
		PongTimeout:    5 * time.Millisecond,
		MaxMissedPongs: 2,
	}

	timeoutCh := make(chan struct{})
	var once sync.Once
	var pings atomic.Int32

	ka := NewKeepAlive(cfg,
		func(seq uint32) error {
			pings.Add(1)
			// Never answer.
			return nil
		},
		func() { once.Do(func() { close(timeoutCh) }) },
	)

	ka.Start(context.Background())
	defer ka.Stop()

	select {
	case <-timeoutCh:
	case <-time.After(time.Second):
		t.Fatal("keep-alive never fired after missed pongs")
	}

	if got := pings.Load(); got < 2 {
		t.Errorf("pings before timeout = %d, want at least 2", got)
	}
	if ka.IsRunning() {
		t.Error("keep-alive still running after timeout")
	}
}

func TestKeepAliveFiresOnSendFailure(t *testing.T) {
	cfg := KeepAliveConfig{
		PingInterval:   5 * time.Millisecond,
		PongTimeout:    5 * time.Millisecond,
		MaxMissedPongs: 2,
	}

	timeoutCh := make(chan struct{})
	var once sync.Once

	ka := NewKeepAlive(cfg,
		func(seq uint32) error { return context.DeadlineExceeded },
		func() { once.Do(func() { close(timeoutCh) }) },
	)

	ka.Start(context.Background())
	defer ka.Stop()

	select {
	case <-timeoutCh:
	case <-time.After(time.Second):
		t.Fatal("keep-alive ignored a failing ping send")
	}
}

func TestKeepAliveIgnoresStalePongs(t *testing.T) {
	cfg := KeepAliveConfig{
		PingInterval:   10 * time.Millisecond,
		PongTimeout:    30 * time.Millisecond,
		MaxMissedPongs: 3,
	}

	var timedOut atomic.Bool
	var ka *KeepAlive
	ka = NewKeepAlive(cfg,
		func(seq uint32) error {
			go func() {
				// A stale pong first, then the right one.
				ka.PongReceived(seq + 100)
				ka.PongReceived(seq)
			}()
			return nil
		},
		func() { timedOut.Store(true) },
	)

	ka.Start(context.Background())
	defer ka.Stop()

	time.Sleep(100 * time.Millisecond)
	if timedOut.Load() {
		t.Error("stale pong broke liveness tracking")
	}
}

func TestKeepAliveStopIsIdempotent(t *testing.T) {
	ka := NewKeepAlive(KeepAliveConfig{}, func(uint32) error { return nil }, nil)
	ka.Start(context.Background())

	ka.Stop()
	ka.Stop()

	if ka.IsRunning() {
		t.Error("still running after Stop")
	}
}

func TestDetectionDelay(t *testing.T) {
	cfg := KeepAliveConfig{
		PingInterval:   10 * time.Second,
		PongTimeout:    3 * time.Second,
		MaxMissedPongs: 2,
	}
	if got, want := cfg.DetectionDelay(), 23*time.Second; got != want {
		t.Errorf("DetectionDelay() = %v, want %v", got, want)
	}
}
