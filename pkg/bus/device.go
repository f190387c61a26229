package bus

import (
	"context"
	"time"

	"github.com/hapticlink/haptic-go/pkg/actuator"
	"github.com/hapticlink/haptic-go/pkg/log"
	"github.com/hapticlink/haptic-go/pkg/wire"
)

// remoteDevice proxies actuator commands for one device over the bus.
type remoteDevice struct {
	bus  *Bus
	id   string
	name string
	caps actuator.CapabilitySet
}

var _ actuator.Device = (*remoteDevice)(nil)

func newRemoteDevice(b *Bus, desc wire.DeviceDescriptor) *remoteDevice {
	return &remoteDevice{
		bus:  b,
		id:   desc.ID,
		name: desc.Name,
		caps: actuator.CapabilitySet{
			Vibrate:   int(desc.Vibrate),
			Rotate:    int(desc.Rotate),
			Oscillate: int(desc.Oscillate),
			Linear:    int(desc.Linear),
		},
	}
}

func (d *remoteDevice) ID() string {
	return d.id
}

func (d *remoteDevice) Name() string {
	return d.name
}

func (d *remoteDevice) Capabilities() actuator.CapabilitySet {
	return d.caps
}

// SendVibrate sets the vibration level. No-op when the device has no
// vibration channels.
func (d *remoteDevice) SendVibrate(ctx context.Context, level float64) error {
	if !d.caps.Has(actuator.CapabilityVibrate) {
		return nil
	}
	err := d.bus.command(ctx, wire.TypeScalar, &wire.ScalarPayload{
		DeviceID: d.id,
		Class:    wire.ClassVibrate,
		Level:    level,
	})
	d.logCommand(log.CommandEvent{Kind: log.CommandVibrate, Level: level})
	return err
}

// SendRotate sets the rotation speed and direction. No-op when the device
// has no rotation channels.
func (d *remoteDevice) SendRotate(ctx context.Context, level float64, clockwise bool) error {
	if !d.caps.Has(actuator.CapabilityRotate) {
		return nil
	}
	err := d.bus.command(ctx, wire.TypeScalar, &wire.ScalarPayload{
		DeviceID:  d.id,
		Class:     wire.ClassRotate,
		Level:     level,
		Clockwise: clockwise,
	})
	d.logCommand(log.CommandEvent{Kind: log.CommandRotate, Level: level, Clockwise: clockwise})
	return err
}

// SendOscillate sets the oscillation level. No-op when the device has no
// oscillation channels.
func (d *remoteDevice) SendOscillate(ctx context.Context, level float64) error {
	if !d.caps.Has(actuator.CapabilityOscillate) {
		return nil
	}
	err := d.bus.command(ctx, wire.TypeScalar, &wire.ScalarPayload{
		DeviceID: d.id,
		Class:    wire.ClassOscillate,
		Level:    level,
	})
	d.logCommand(log.CommandEvent{Kind: log.CommandOscillate, Level: level})
	return err
}

// SendLinear moves the linear channels to position over duration. No-op when
// the device has no linear channels.
func (d *remoteDevice) SendLinear(ctx context.Context, duration time.Duration, position float64) error {
	if !d.caps.Has(actuator.CapabilityLinear) {
		return nil
	}
	durationMs := uint32(duration / time.Millisecond)
	err := d.bus.command(ctx, wire.TypeLinear, &wire.LinearPayload{
		DeviceID:   d.id,
		DurationMs: durationMs,
		Position:   position,
	})
	d.logCommand(log.CommandEvent{Kind: log.CommandLinear, DurationMs: durationMs, Position: position})
	return err
}

// SendStop halts all of the device's actuators.
func (d *remoteDevice) SendStop(ctx context.Context) error {
	err := d.bus.command(ctx, wire.TypeStopDevice, &wire.StopDevicePayload{
		DeviceID: d.id,
	})
	d.logCommand(log.CommandEvent{Kind: log.CommandStop})
	return err
}

func (d *remoteDevice) logCommand(ev log.CommandEvent) {
	d.bus.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: d.bus.conn.ID(),
		Layer:        log.LayerBus,
		Category:     log.CategoryCommand,
		DeviceID:     d.id,
		Command:      &ev,
	})
}
