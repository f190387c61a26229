// Package mock provides recording fakes for the actuator and bus
// interfaces, used by arbitration and integration tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/hapticlink/haptic-go/pkg/actuator"
)

// CommandKind identifies a recorded device command.
type CommandKind string

// Recorded command kinds.
const (
	KindVibrate   CommandKind = "vibrate"
	KindRotate    CommandKind = "rotate"
	KindOscillate CommandKind = "oscillate"
	KindLinear    CommandKind = "linear"
	KindStop      CommandKind = "stop"
)

// Command is one recorded device command.
type Command struct {
	Kind      CommandKind
	Level     float64
	Clockwise bool
	Duration  time.Duration
	Position  float64
	At        time.Time
}

// Device is a recording actuator.Device.
type Device struct {
	DeviceID   string
	DeviceName string
	Caps       actuator.CapabilitySet

	// SendErr, when set, is returned by every send.
	SendErr error

	// SendDelay, when set, blocks each send to simulate a slow device.
	SendDelay time.Duration

	mu       sync.Mutex
	commands []Command
}

var _ actuator.Device = (*Device)(nil)

// NewDevice creates a recording device with the given capabilities.
func NewDevice(id string, caps actuator.CapabilitySet) *Device {
	return &Device{
		DeviceID:   id,
		DeviceName: "mock-" + id,
		Caps:       caps,
	}
}

// NewFullDevice creates a device with one channel of every capability.
func NewFullDevice(id string) *Device {
	return NewDevice(id, actuator.CapabilitySet{Vibrate: 1, Rotate: 1, Oscillate: 1, Linear: 1})
}

func (d *Device) ID() string                           { return d.DeviceID }
func (d *Device) Name() string                         { return d.DeviceName }
func (d *Device) Capabilities() actuator.CapabilitySet { return d.Caps }

func (d *Device) SendVibrate(ctx context.Context, level float64) error {
	if !d.Caps.Has(actuator.CapabilityVibrate) {
		return nil
	}
	return d.record(ctx, Command{Kind: KindVibrate, Level: level})
}

func (d *Device) SendRotate(ctx context.Context, level float64, clockwise bool) error {
	if !d.Caps.Has(actuator.CapabilityRotate) {
		return nil
	}
	return d.record(ctx, Command{Kind: KindRotate, Level: level, Clockwise: clockwise})
}

func (d *Device) SendOscillate(ctx context.Context, level float64) error {
	if !d.Caps.Has(actuator.CapabilityOscillate) {
		return nil
	}
	return d.record(ctx, Command{Kind: KindOscillate, Level: level})
}

func (d *Device) SendLinear(ctx context.Context, duration time.Duration, position float64) error {
	if !d.Caps.Has(actuator.CapabilityLinear) {
		return nil
	}
	return d.record(ctx, Command{Kind: KindLinear, Duration: duration, Position: position})
}

func (d *Device) SendStop(ctx context.Context) error {
	return d.record(ctx, Command{Kind: KindStop})
}

func (d *Device) record(ctx context.Context, cmd Command) error {
	if d.SendDelay > 0 {
		timer := time.NewTimer(d.SendDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	cmd.At = time.Now()
	d.mu.Lock()
	d.commands = append(d.commands, cmd)
	d.mu.Unlock()
	return d.SendErr
}

// Commands returns a snapshot of all recorded commands in order.
func (d *Device) Commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Command, len(d.commands))
	copy(out, d.commands)
	return out
}

// CommandsOfKind returns the recorded commands of one kind, in order.
func (d *Device) CommandsOfKind(kind CommandKind) []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Command
	for _, cmd := range d.commands {
		if cmd.Kind == kind {
			out = append(out, cmd)
		}
	}
	return out
}

// LinearPositions returns the positions of all recorded linear
// commands, in order.
func (d *Device) LinearPositions() []float64 {
	var out []float64
	for _, cmd := range d.CommandsOfKind(KindLinear) {
		out = append(out, cmd.Position)
	}
	return out
}

// Reset discards all recorded commands.
func (d *Device) Reset() {
	d.mu.Lock()
	d.commands = nil
	d.mu.Unlock()
}

// WaitForCommands polls until the device has recorded at least n
// commands of the given kind, or the timeout expires. It reports
// whether the count was reached.
func (d *Device) WaitForCommands(kind CommandKind, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(d.CommandsOfKind(kind)) >= n {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return len(d.CommandsOfKind(kind)) >= n
}
