package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ProtocolVersion is the haptic bus protocol version this package speaks.
const ProtocolVersion uint8 = 1

// NotificationMessageID marks server-initiated messages that do not answer
// a client request (DeviceAdded, DeviceRemoved).
const NotificationMessageID uint32 = 0

// MessageType identifies the message carried in the envelope.
type MessageType uint8

// Client-to-server message types.
const (
	// TypeHello opens the session after the transport connects.
	TypeHello MessageType = 1

	// TypeRequestDeviceList asks for the current device set.
	TypeRequestDeviceList MessageType = 2

	// TypeScalar sets a level on one scalar actuator class of a device.
	TypeScalar MessageType = 3

	// TypeLinear moves a device's linear actuators to a position over a duration.
	TypeLinear MessageType = 4

	// TypeStopDevice halts all actuators of one device.
	TypeStopDevice MessageType = 5

	// TypeStopAll halts all actuators of all devices.
	TypeStopAll MessageType = 6

	// TypePing probes connection liveness.
	TypePing MessageType = 7
)

// Server-to-client message types.
const (
	// TypeWelcome answers Hello.
	TypeWelcome MessageType = 16

	// TypeDeviceList answers RequestDeviceList.
	TypeDeviceList MessageType = 17

	// TypeDeviceAdded announces a newly attached device (notification).
	TypeDeviceAdded MessageType = 18

	// TypeDeviceRemoved announces a detached device (notification).
	TypeDeviceRemoved MessageType = 19

	// TypeOk acknowledges a command.
	TypeOk MessageType = 20

	// TypeError rejects a request.
	TypeError MessageType = 21

	// TypePong answers Ping.
	TypePong MessageType = 22
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case TypeHello:
		return "HELLO"
	case TypeRequestDeviceList:
		return "REQUEST_DEVICE_LIST"
	case TypeScalar:
		return "SCALAR"
	case TypeLinear:
		return "LINEAR"
	case TypeStopDevice:
		return "STOP_DEVICE"
	case TypeStopAll:
		return "STOP_ALL"
	case TypePing:
		return "PING"
	case TypeWelcome:
		return "WELCOME"
	case TypeDeviceList:
		return "DEVICE_LIST"
	case TypeDeviceAdded:
		return "DEVICE_ADDED"
	case TypeDeviceRemoved:
		return "DEVICE_REMOVED"
	case TypeOk:
		return "OK"
	case TypeError:
		return "ERROR"
	case TypePong:
		return "PONG"
	default:
		return "UNKNOWN"
	}
}

// IsNotification returns true for server-initiated message types.
func (t MessageType) IsNotification() bool {
	return t == TypeDeviceAdded || t == TypeDeviceRemoved
}

// IsValid returns true for known message types.
func (t MessageType) IsValid() bool {
	switch t {
	case TypeHello, TypeRequestDeviceList, TypeScalar, TypeLinear,
		TypeStopDevice, TypeStopAll, TypePing,
		TypeWelcome, TypeDeviceList, TypeDeviceAdded, TypeDeviceRemoved,
		TypeOk, TypeError, TypePong:
		return true
	default:
		return false
	}
}

// Message is the envelope every haptic bus frame carries.
//
// CBOR encoding:
//
//	{
//	  1: messageId,   // uint32; matches the request for responses, 0 for notifications
//	  2: type,        // uint8
//	  3: payload      // type-specific map, absent for payload-free types
//	}
type Message struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Type      MessageType     `cbor:"2,keyasint"`
	Payload   cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

// Validate checks envelope-level consistency.
func (m *Message) Validate() error {
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid message type: %d", m.Type)
	}
	if m.Type.IsNotification() && m.MessageID != NotificationMessageID {
		return fmt.Errorf("notification %s must carry messageId 0", m.Type)
	}
	if !m.Type.IsNotification() && m.MessageID == NotificationMessageID {
		return fmt.Errorf("messageId 0 is reserved for notifications")
	}
	return nil
}
