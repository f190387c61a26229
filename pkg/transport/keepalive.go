package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Keep-alive defaults. Actuation links need loss detected within tens
// of seconds, not minutes.
const (
	DefaultPingInterval   = 10 * time.Second
	DefaultPongTimeout    = 3 * time.Second
	DefaultMaxMissedPongs = 2
)

// KeepAliveConfig configures liveness probing on a connection.
type KeepAliveConfig struct {
	// PingInterval is the interval between pings.
	PingInterval time.Duration

	// PongTimeout is how long to wait for the matching pong.
	PongTimeout time.Duration

	// MaxMissedPongs is how many consecutive pongs may go missing
	// before the link counts as dead.
	MaxMissedPongs int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

// DetectionDelay calculates the worst-case time to detect connection loss.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

func (c KeepAliveConfig) withDefaults() KeepAliveConfig {
	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = DefaultPongTimeout
	}
	if c.MaxMissedPongs == 0 {
		c.MaxMissedPongs = DefaultMaxMissedPongs
	}
	return c
}

// KeepAlive probes a connection for liveness. The owner wires sendPing
// to a wire-level Ping and feeds received pongs back via PongReceived.
type KeepAlive struct {
	config    KeepAliveConfig
	sendPing  func(seq uint32) error
	onTimeout func()

	sequence atomic.Uint32

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	pongCh  chan uint32
}

// NewKeepAlive creates a keep-alive prober. Zero config fields take the
// defaults.
func NewKeepAlive(config KeepAliveConfig, sendPing func(seq uint32) error, onTimeout func()) *KeepAlive {
	return &KeepAlive{
		config:    config.withDefaults(),
		sendPing:  sendPing,
		onTimeout: onTimeout,
		stopCh:    make(chan struct{}),
		pongCh:    make(chan uint32, 1),
	}
}

// Start launches the probing loop. Calling Start on a running prober is
// a no-op.
func (k *KeepAlive) Start(ctx context.Context) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.running {
		return
	}
	k.running = true
	k.stopCh = make(chan struct{})
	go k.loop(ctx, k.stopCh)
}

// Stop halts probing. Safe to call repeatedly.
func (k *KeepAlive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.running {
		k.running = false
		close(k.stopCh)
	}
}

// IsRunning reports whether the probing loop is active.
func (k *KeepAlive) IsRunning() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.running
}

// PongReceived hands an incoming pong to the prober.
func (k *KeepAlive) PongReceived(seq uint32) {
	select {
	case k.pongCh <- seq:
	default:
		// Nobody waiting; stale pong
	}
}

func (k *KeepAlive) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(k.config.PingInterval)
	defer ticker.Stop()

	missed := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
		}

		seq := k.sequence.Add(1)
		if err := k.sendPing(seq); err != nil {
			k.fireTimeout()
			return
		}

		if k.awaitPong(ctx, stop, seq) {
			missed = 0
			continue
		}
		if missed++; missed >= k.config.MaxMissedPongs {
			k.fireTimeout()
			return
		}
	}
}

// awaitPong waits for the pong matching seq within the pong timeout.
func (k *KeepAlive) awaitPong(ctx context.Context, stop <-chan struct{}, seq uint32) bool {
	timer := time.NewTimer(k.config.PongTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-stop:
			return false
		case <-timer.C:
			return false
		case got := <-k.pongCh:
			if got == seq {
				return true
			}
			// Pong from an earlier ping; keep waiting
		}
	}
}

func (k *KeepAlive) fireTimeout() {
	k.Stop()
	if k.onTimeout != nil {
		k.onTimeout()
	}
}
