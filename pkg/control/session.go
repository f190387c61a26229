package control

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hapticlink/haptic-go/pkg/actuator"
	"github.com/hapticlink/haptic-go/pkg/log"
)

// Mode selects which background loop owns the linear-position axis.
type Mode uint8

const (
	// ModeAuto gives authority to the oscillation loop.
	ModeAuto Mode = 0
	// ModeManual gives authority to the stroke loop.
	ModeManual Mode = 1
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "AUTO"
	case ModeManual:
		return "MANUAL"
	default:
		return "UNKNOWN"
	}
}

// Bus is the session's view of the device-control service connection.
// *bus.Bus satisfies it.
type Bus interface {
	// Devices returns a snapshot of the currently connected devices.
	// The set may be empty and may change between calls.
	Devices() []actuator.Device

	// StopAll halts every actuator of every device.
	StopAll(ctx context.Context) error

	// Disconnect closes the service connection.
	Disconnect() error
}

// Request is one arbitration request. Intensity is always applied;
// Position (when set) and Oscillate steer the position arbiter.
type Request struct {
	// Intensity is the overall intensity, clamped to [0,1].
	Intensity float64

	// Position, when non-nil, is an explicit manual target position.
	Position *float64

	// Oscillate, with Position unset, switches to automatic mode with
	// the intensity as oscillation speed.
	Oscillate bool
}

// Session is one arbitration core bound to one service connection.
// All exported methods are safe for concurrent use.
type Session struct {
	id     string
	config Config
	logger log.Logger
	bus    Bus

	mu sync.Mutex

	// Intensity channel state.
	current float64
	fading  bool

	// Position arbiter state.
	mode             Mode
	lastPosition     float64
	lastRawRequest   float64
	oscillationSpeed float64
	queue            []float64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	exited atomic.Bool
}

// NewSession creates the arbitration core for an established connection
// and starts both background loops. The loops run until Exit.
func NewSession(b Bus, config Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		id:     uuid.New().String(),
		config: config.withDefaults(),
		bus:    b,
		ctx:    ctx,
		cancel: cancel,
	}
	s.logger = s.config.Logger

	s.logState(log.EntitySession, "", "active", "")

	s.wg.Add(2)
	go s.oscillationLoop()
	go s.strokeLoop()

	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Intensity returns the current overall intensity.
func (s *Session) Intensity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Fading reports whether a fade is in progress.
func (s *Session) Fading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fading
}

// Mode returns the active driving mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// OscillationSpeed returns the automatic-mode oscillation speed.
func (s *Session) OscillationSpeed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oscillationSpeed
}

// LastPosition returns the last known linear position.
func (s *Session) LastPosition() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPosition
}

// QueueLen returns the number of pending manual stroke targets.
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Closed reports whether Exit has been called.
func (s *Session) Closed() bool {
	return s.exited.Load()
}

// Exit tears down the session: stops all devices, cancels both loops,
// joins them and disconnects. Safe to call more than once; later calls
// are no-ops.
func (s *Session) Exit(ctx context.Context) error {
	if !s.exited.CompareAndSwap(false, true) {
		return nil
	}

	// Final zero-intensity, zero-position command before the loops die.
	s.sendRaw(ctx, 0)
	s.sendLinearAll(ctx, s.config.PulseLinearDuration, 0)
	stopErr := s.bus.StopAll(ctx)

	s.cancel()
	s.wg.Wait()

	s.logState(log.EntitySession, "active", "closed", "")

	if err := s.bus.Disconnect(); err != nil {
		return err
	}
	return stopErr
}

// sleep waits for d or until the session is cancelled. It returns false
// on cancellation.
func (s *Session) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// sendRaw fans an intensity out to every scalar capability group of
// every connected device.
func (s *Session) sendRaw(ctx context.Context, intensity float64) {
	for _, d := range s.bus.Devices() {
		caps := d.Capabilities()
		if caps.Has(actuator.CapabilityVibrate) {
			_ = d.SendVibrate(ctx, intensity)
		}
		if caps.Has(actuator.CapabilityRotate) {
			_ = d.SendRotate(ctx, intensity, true)
		}
		if caps.Has(actuator.CapabilityOscillate) {
			_ = d.SendOscillate(ctx, intensity)
		}
	}
}

// sendLinearAll fans a linear move out to every device with linear
// capability.
func (s *Session) sendLinearAll(ctx context.Context, duration time.Duration, position float64) {
	for _, d := range s.bus.Devices() {
		if d.Capabilities().Has(actuator.CapabilityLinear) {
			_ = d.SendLinear(ctx, duration, position)
		}
	}
}

// logState emits a session-layer lifecycle event.
func (s *Session) logState(entity log.Entity, oldState, newState, reason string) {
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
