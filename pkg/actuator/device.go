package actuator

import (
	"context"
	"time"
)

// Capability identifies a class of actuator behavior a device may support.
type Capability uint8

const (
	// CapabilityVibrate is speed-controlled vibration.
	CapabilityVibrate Capability = iota

	// CapabilityRotate is speed- and direction-controlled rotation.
	CapabilityRotate

	// CapabilityOscillate is speed-controlled oscillation.
	CapabilityOscillate

	// CapabilityLinear is duration-timed linear positioning.
	CapabilityLinear
)

// String returns the capability name.
func (c Capability) String() string {
	switch c {
	case CapabilityVibrate:
		return "VIBRATE"
	case CapabilityRotate:
		return "ROTATE"
	case CapabilityOscillate:
		return "OSCILLATE"
	case CapabilityLinear:
		return "LINEAR"
	default:
		return "UNKNOWN"
	}
}

// CapabilitySet holds the number of independent actuator channels a device
// exposes per capability group. A count of zero means the group is absent.
type CapabilitySet struct {
	Vibrate   int
	Rotate    int
	Oscillate int
	Linear    int
}

// Has returns true if the set has at least one channel of the given capability.
func (s CapabilitySet) Has(c Capability) bool {
	return s.Count(c) > 0
}

// Count returns the channel count for the given capability.
func (s CapabilitySet) Count(c Capability) int {
	switch c {
	case CapabilityVibrate:
		return s.Vibrate
	case CapabilityRotate:
		return s.Rotate
	case CapabilityOscillate:
		return s.Oscillate
	case CapabilityLinear:
		return s.Linear
	default:
		return 0
	}
}

// IsEmpty returns true if the device exposes no actuator channels at all.
func (s CapabilitySet) IsEmpty() bool {
	return s.Vibrate == 0 && s.Rotate == 0 && s.Oscillate == 0 && s.Linear == 0
}

// Device is a handle to one connected output device. Implementations proxy
// commands to the device-control service. Sends block until the service
// acknowledges the command; they carry no retry policy.
//
// Levels and positions are normalized to [0,1]. Commands addressed to a
// capability group the device lacks must be silently ignored by the
// implementation, not failed.
type Device interface {
	// ID returns the service-assigned device identifier.
	ID() string

	// Name returns the human-readable device name.
	Name() string

	// Capabilities returns the device's actuator channel counts.
	Capabilities() CapabilitySet

	// SendVibrate sets the vibration level on all vibration channels.
	SendVibrate(ctx context.Context, level float64) error

	// SendRotate sets the rotation speed and direction on all rotation channels.
	SendRotate(ctx context.Context, level float64, clockwise bool) error

	// SendOscillate sets the oscillation level on all oscillation channels.
	SendOscillate(ctx context.Context, level float64) error

	// SendLinear moves all linear channels to position over duration.
	SendLinear(ctx context.Context, duration time.Duration, position float64) error

	// SendStop halts all of the device's actuators.
	SendStop(ctx context.Context) error
}
