// Package discovery finds haptic bus services on the local network via
// mDNS/DNS-SD, and lets a service advertise itself.
//
// Services announce under "_hapticbus._tcp" with a TXT record carrying
// the service name, protocol version and device count.
package discovery
