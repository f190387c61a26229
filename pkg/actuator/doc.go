// Package actuator defines the device model at the boundary to the
// device-control service: capability groups, the Device command surface,
// and the live Registry of connected devices.
package actuator
