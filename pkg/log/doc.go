// Package log provides structured event logging for the haptic bus stack.
//
// The arbitration core and the transport expose their lifecycle transitions
// (connect, device attach/detach, loop start/stop) and every issued device
// command as a stream of typed Events. Applications consume the stream
// through the Logger interface: write it to a CBOR capture file with
// FileLogger, mirror it to the console with SlogAdapter, or fan it out to
// several sinks with MultiLogger.
//
// Logging never disrupts operation: sinks must be thread-safe and encoding
// errors are dropped silently.
package log
