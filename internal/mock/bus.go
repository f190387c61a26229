package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hapticlink/haptic-go/pkg/actuator"
)

// Bus is a fake control.Bus backed by a local device list.
type Bus struct {
	mu      sync.Mutex
	devices []actuator.Device

	// DisconnectErr, when set, is returned by Disconnect.
	DisconnectErr error

	stopAllCalls    atomic.Int32
	disconnectCalls atomic.Int32
}

// NewBus creates a fake bus holding the given devices.
func NewBus(devices ...actuator.Device) *Bus {
	return &Bus{devices: devices}
}

// Devices returns a snapshot of the current device list.
func (b *Bus) Devices() []actuator.Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]actuator.Device, len(b.devices))
	copy(out, b.devices)
	return out
}

// SetDevices replaces the device list, simulating attach/detach churn.
func (b *Bus) SetDevices(devices ...actuator.Device) {
	b.mu.Lock()
	b.devices = devices
	b.mu.Unlock()
}

// StopAll records the call and stops every device.
func (b *Bus) StopAll(ctx context.Context) error {
	b.stopAllCalls.Add(1)
	for _, d := range b.Devices() {
		if err := d.SendStop(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect records the call.
func (b *Bus) Disconnect() error {
	b.disconnectCalls.Add(1)
	return b.DisconnectErr
}

// StopAllCalls returns how often StopAll was called.
func (b *Bus) StopAllCalls() int {
	return int(b.stopAllCalls.Load())
}

// DisconnectCalls returns how often Disconnect was called.
func (b *Bus) DisconnectCalls() int {
	return int(b.disconnectCalls.Load())
}
