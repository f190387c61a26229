// Package control implements the command-arbitration core that turns
// high-level intensity and position requests into a coherent stream of
// device commands.
//
// A Session owns all arbitration state and two supervised background
// loops. The oscillation loop drives a continuous triangle-wave motion
// profile while the session is in automatic mode; the stroke loop drains
// a queue of manually requested positions while the session is in manual
// mode. The mode field is the sole arbiter: at most one loop issues
// linear-position commands at any instant.
//
// All intensity-affecting requests flow through Control. Set, Press,
// Stop, Fade, Pulse and Hold are layered on top of it. Exit is the only
// teardown entry point: it stops all devices, cancels both loops, joins
// them and disconnects from the service.
package control
