package control

import "errors"

// Session errors.
var (
	// ErrReboundOutOfRange rejects a Pulse or Hold with a rebound speed
	// outside [0,1]. No state is mutated.
	ErrReboundOutOfRange = errors.New("rebound speed out of range [0,1]")

	// ErrSessionClosed indicates the session has been exited.
	ErrSessionClosed = errors.New("session is closed")
)
