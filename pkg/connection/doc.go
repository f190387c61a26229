// Package connection provides exponential backoff and an automatic
// redial loop for the link to the device-control service.
//
// The arbitration core itself never reconnects; a dropped link ends the
// session. Redialing is a client-application concern, used to build a
// fresh session once the service is reachable again.
package connection
