// Package wire implements the haptic bus message encoding.
//
// All messages are CBOR maps with integer keys: a small envelope carrying a
// message ID, a type, and a type-specific payload. Clients correlate
// responses to requests by message ID; message ID 0 is reserved for
// server-initiated notifications (device attach/detach).
package wire
