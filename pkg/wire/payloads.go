package wire

import (
	"fmt"
)

// ActuatorClass selects the scalar capability group a Scalar command targets.
type ActuatorClass uint8

const (
	// ClassVibrate targets the vibration channels.
	ClassVibrate ActuatorClass = 0
	// ClassRotate targets the rotation channels.
	ClassRotate ActuatorClass = 1
	// ClassOscillate targets the oscillation channels.
	ClassOscillate ActuatorClass = 2
)

// String returns the actuator class name.
func (c ActuatorClass) String() string {
	switch c {
	case ClassVibrate:
		return "VIBRATE"
	case ClassRotate:
		return "ROTATE"
	case ClassOscillate:
		return "OSCILLATE"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true for known actuator classes.
func (c ActuatorClass) IsValid() bool {
	return c == ClassVibrate || c == ClassRotate || c == ClassOscillate
}

// HelloPayload opens the session.
type HelloPayload struct {
	// ClientName identifies the connecting application.
	ClientName string `cbor:"1,keyasint"`

	// Version is the protocol version the client speaks.
	Version uint8 `cbor:"2,keyasint"`
}

// WelcomePayload answers Hello.
type WelcomePayload struct {
	// ServerName identifies the device-control service.
	ServerName string `cbor:"1,keyasint"`

	// Version is the protocol version the server speaks.
	Version uint8 `cbor:"2,keyasint"`
}

// ScalarPayload sets a level on one scalar actuator class of a device.
type ScalarPayload struct {
	DeviceID string        `cbor:"1,keyasint"`
	Class    ActuatorClass `cbor:"2,keyasint"`

	// Level is the normalized intensity in [0,1].
	Level float64 `cbor:"3,keyasint"`

	// Clockwise is the rotation direction; only meaningful for ClassRotate.
	Clockwise bool `cbor:"4,keyasint,omitempty"`
}

// Validate checks the payload.
func (p *ScalarPayload) Validate() error {
	if p.DeviceID == "" {
		return fmt.Errorf("scalar command requires a device ID")
	}
	if !p.Class.IsValid() {
		return fmt.Errorf("invalid actuator class: %d", p.Class)
	}
	if p.Level < 0 || p.Level > 1 {
		return fmt.Errorf("scalar level %v out of range [0,1]", p.Level)
	}
	return nil
}

// LinearPayload moves a device's linear actuators to a position over a duration.
type LinearPayload struct {
	DeviceID string `cbor:"1,keyasint"`

	// DurationMs is the time the move should take, in milliseconds.
	DurationMs uint32 `cbor:"2,keyasint"`

	// Position is the normalized target position in [0,1].
	Position float64 `cbor:"3,keyasint"`
}

// Validate checks the payload.
func (p *LinearPayload) Validate() error {
	if p.DeviceID == "" {
		return fmt.Errorf("linear command requires a device ID")
	}
	if p.Position < 0 || p.Position > 1 {
		return fmt.Errorf("linear position %v out of range [0,1]", p.Position)
	}
	return nil
}

// StopDevicePayload halts all actuators of one device.
type StopDevicePayload struct {
	DeviceID string `cbor:"1,keyasint"`
}

// PingPayload probes connection liveness.
type PingPayload struct {
	Seq uint32 `cbor:"1,keyasint"`
}

// PongPayload answers Ping.
type PongPayload struct {
	Seq uint32 `cbor:"1,keyasint"`
}

// DeviceDescriptor describes one device and its actuator channel counts.
// A count of zero means the capability group is absent.
type DeviceDescriptor struct {
	ID        string `cbor:"1,keyasint"`
	Name      string `cbor:"2,keyasint,omitempty"`
	Vibrate   uint8  `cbor:"3,keyasint,omitempty"`
	Rotate    uint8  `cbor:"4,keyasint,omitempty"`
	Oscillate uint8  `cbor:"5,keyasint,omitempty"`
	Linear    uint8  `cbor:"6,keyasint,omitempty"`
}

// DeviceListPayload answers RequestDeviceList.
type DeviceListPayload struct {
	Devices []DeviceDescriptor `cbor:"1,keyasint"`
}

// DeviceAddedPayload announces a newly attached device.
type DeviceAddedPayload struct {
	Device DeviceDescriptor `cbor:"1,keyasint"`
}

// DeviceRemovedPayload announces a detached device.
type DeviceRemovedPayload struct {
	DeviceID string `cbor:"1,keyasint"`
}

// ErrorCode classifies request rejections.
type ErrorCode uint8

const (
	// CodeUnknownMessage rejects an unrecognized message type.
	CodeUnknownMessage ErrorCode = 1
	// CodeUnknownDevice rejects a command for an unknown device ID.
	CodeUnknownDevice ErrorCode = 2
	// CodeInvalidParameter rejects an out-of-range or malformed payload.
	CodeInvalidParameter ErrorCode = 3
	// CodeVersionMismatch rejects an incompatible Hello.
	CodeVersionMismatch ErrorCode = 4
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case CodeUnknownMessage:
		return "UNKNOWN_MESSAGE"
	case CodeUnknownDevice:
		return "UNKNOWN_DEVICE"
	case CodeInvalidParameter:
		return "INVALID_PARAMETER"
	case CodeVersionMismatch:
		return "VERSION_MISMATCH"
	default:
		return "UNKNOWN"
	}
}

// ErrorPayload rejects a request.
type ErrorPayload struct {
	Code    ErrorCode `cbor:"1,keyasint"`
	Message string    `cbor:"2,keyasint,omitempty"`
}
