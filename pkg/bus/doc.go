// Package bus implements the client side of the haptic bus: the link between
// the arbitration core and the external device-control service.
//
// Connect dials the service, performs the Hello/Welcome exchange, and fetches
// the initial device list. From then on the Bus keeps a live actuator.Registry
// in sync with DeviceAdded/DeviceRemoved notifications and exposes each
// remote device as an actuator.Device whose sends block until the service
// acknowledges the command.
package bus
