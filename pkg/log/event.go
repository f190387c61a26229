package log

import (
	"time"
)

// Event represents a lifecycle or command event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the arbitration session (UUID), if any.
	SessionID string `cbor:"2,keyasint,omitempty"`

	// ConnectionID identifies the service connection (UUID), if any.
	ConnectionID string `cbor:"3,keyasint,omitempty"`

	// Direction indicates message flow for transport frames.
	Direction Direction `cbor:"4,keyasint,omitempty"`

	// Layer where the event was captured.
	Layer Layer `cbor:"5,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"6,keyasint"`

	// RemoteAddr is the peer address (IP:port), if known.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// DeviceID is the device the event concerns, if any.
	DeviceID string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (exactly one of these is set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // Lifecycle transitions
	Device      *DeviceEvent      `cbor:"12,keyasint,omitempty"` // Attach/detach
	Command     *CommandEvent     `cbor:"13,keyasint,omitempty"` // Issued device commands
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerBus is the service-client layer (decoded messages, registry).
	LayerBus Layer = 1
	// LayerSession is the arbitration-core layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerBus:
		return "BUS"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a lifecycle state change.
	CategoryState Category = 0
	// CategoryDevice indicates a device attach or detach.
	CategoryDevice Category = 1
	// CategoryCommand indicates an issued device command.
	CategoryCommand Category = 2
	// CategoryFrame indicates a raw transport frame.
	CategoryFrame Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryDevice:
		return "DEVICE"
	case CategoryCommand:
		return "COMMAND"
	case CategoryFrame:
		return "FRAME"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Entity names the component whose state changed.
type Entity uint8

const (
	// EntityConnection is the link to the device-control service.
	EntityConnection Entity = 0
	// EntitySession is the arbitration session.
	EntitySession Entity = 1
	// EntityOscillationLoop is the automatic oscillation driver.
	EntityOscillationLoop Entity = 2
	// EntityStrokeLoop is the manual stroke-queue driver.
	EntityStrokeLoop Entity = 3
)

// String returns the entity name.
func (e Entity) String() string {
	switch e {
	case EntityConnection:
		return "CONNECTION"
	case EntitySession:
		return "SESSION"
	case EntityOscillationLoop:
		return "OSCILLATION_LOOP"
	case EntityStrokeLoop:
		return "STROKE_LOOP"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures a lifecycle transition.
type StateChangeEvent struct {
	// Entity is the component that changed state.
	Entity Entity `cbor:"1,keyasint"`

	// OldState and NewState are component-defined state names.
	OldState string `cbor:"2,keyasint"`
	NewState string `cbor:"3,keyasint"`

	// Reason optionally explains the transition.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// DeviceChange distinguishes attach from detach.
type DeviceChange uint8

const (
	// DeviceAttached indicates a device joined the registry.
	DeviceAttached DeviceChange = 0
	// DeviceDetached indicates a device left the registry.
	DeviceDetached DeviceChange = 1
)

// String returns the change name.
func (c DeviceChange) String() string {
	switch c {
	case DeviceAttached:
		return "ATTACHED"
	case DeviceDetached:
		return "DETACHED"
	default:
		return "UNKNOWN"
	}
}

// DeviceEvent captures a registry mutation.
type DeviceEvent struct {
	// Change is attach or detach.
	Change DeviceChange `cbor:"1,keyasint"`

	// Name is the device's human-readable name.
	Name string `cbor:"2,keyasint,omitempty"`

	// Channel counts per capability group.
	Vibrate   int `cbor:"3,keyasint,omitempty"`
	Rotate    int `cbor:"4,keyasint,omitempty"`
	Oscillate int `cbor:"5,keyasint,omitempty"`
	Linear    int `cbor:"6,keyasint,omitempty"`
}

// CommandKind identifies the kind of device command issued.
type CommandKind uint8

const (
	// CommandVibrate is a vibration level command.
	CommandVibrate CommandKind = 0
	// CommandRotate is a rotation level/direction command.
	CommandRotate CommandKind = 1
	// CommandOscillate is an oscillation level command.
	CommandOscillate CommandKind = 2
	// CommandLinear is a timed linear-position command.
	CommandLinear CommandKind = 3
	// CommandStop is a stop-all command.
	CommandStop CommandKind = 4
)

// String returns the command kind name.
func (k CommandKind) String() string {
	switch k {
	case CommandVibrate:
		return "VIBRATE"
	case CommandRotate:
		return "ROTATE"
	case CommandOscillate:
		return "OSCILLATE"
	case CommandLinear:
		return "LINEAR"
	case CommandStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// CommandEvent captures one issued device command.
type CommandEvent struct {
	// Kind is the command kind.
	Kind CommandKind `cbor:"1,keyasint"`

	// Level is the normalized intensity for scalar commands.
	Level float64 `cbor:"2,keyasint,omitempty"`

	// Clockwise is the rotation direction (rotate only).
	Clockwise bool `cbor:"3,keyasint,omitempty"`

	// DurationMs is the move duration for linear commands.
	DurationMs uint32 `cbor:"4,keyasint,omitempty"`

	// Position is the normalized target position for linear commands.
	Position float64 `cbor:"5,keyasint,omitempty"`
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`

	// Context describes what was being attempted.
	Context string `cbor:"3,keyasint,omitempty"`
}
