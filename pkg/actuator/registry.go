package actuator

import (
	"errors"
	"sync"
)

// Registry errors.
var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrDuplicateDevice = errors.New("duplicate device ID")
)

// Registry is the live set of connected devices. It mutates as devices attach
// and detach; callers must tolerate the set being empty or changing between
// any two calls.
type Registry struct {
	mu sync.RWMutex

	// Devices by service-assigned ID.
	devices map[string]Device

	// Callbacks, invoked outside the lock.
	onAdded   func(Device)
	onRemoved func(Device)
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]Device),
	}
}

// Add registers a device. Returns ErrDuplicateDevice if the ID is taken.
func (r *Registry) Add(d Device) error {
	r.mu.Lock()
	if _, exists := r.devices[d.ID()]; exists {
		r.mu.Unlock()
		return ErrDuplicateDevice
	}
	r.devices[d.ID()] = d
	callback := r.onAdded
	r.mu.Unlock()

	if callback != nil {
		callback(d)
	}
	return nil
}

// Remove deregisters a device by ID. Returns ErrDeviceNotFound if absent.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	d, exists := r.devices[id]
	if !exists {
		r.mu.Unlock()
		return ErrDeviceNotFound
	}
	delete(r.devices, id)
	callback := r.onRemoved
	r.mu.Unlock()

	if callback != nil {
		callback(d)
	}
	return nil
}

// Get returns the device with the given ID.
func (r *Registry) Get(id string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.devices[id]
	if !exists {
		return nil, ErrDeviceNotFound
	}
	return d, nil
}

// Devices returns a snapshot of the currently connected devices.
// The returned slice is owned by the caller; the set may have changed by the
// time it is used.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	return out
}

// WithCapability returns a snapshot of devices exposing the given capability.
func (r *Registry) WithCapability(c Capability) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Device
	for _, d := range r.devices {
		if d.Capabilities().Has(c) {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of connected devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Clear removes all devices without invoking removal callbacks.
// Used on disconnect, when the whole set is gone at once.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]Device)
}

// OnAdded sets the callback invoked when a device attaches.
func (r *Registry) OnAdded(fn func(Device)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAdded = fn
}

// OnRemoved sets the callback invoked when a device detaches.
func (r *Registry) OnRemoved(fn func(Device)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemoved = fn
}
