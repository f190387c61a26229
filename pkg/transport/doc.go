// Package transport provides the framed TCP link to the device-control
// service.
//
// Messages travel as length-prefixed frames (4-byte big-endian prefix).
// Conn is the client side: it dials the service, runs a read loop that
// hands complete frames to a handler, and multiplexes writes. Server is the
// accepting side, used by the simulator and by tests. KeepAlive drives
// periodic liveness pings over an established connection.
//
// TLS is optional: the device-control service typically runs on the local
// machine or LAN. Supply a tls.Config to either side to enable it.
package transport
