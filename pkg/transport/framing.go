package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hapticlink/haptic-go/pkg/log"
)

const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize caps a single frame payload at 64 KB.
	DefaultMaxMessageSize = 65536

	// MaxLogFrameDataSize bounds how many payload bytes a frame log
	// event carries. Anything beyond it is marked truncated.
	MaxLogFrameDataSize = 4096
)

var (
	// ErrMessageTooLarge indicates a payload over the configured maximum.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates a zero-length payload.
	ErrMessageEmpty = errors.New("message is empty")

	// ErrFrameTruncated indicates the stream ended mid-frame.
	ErrFrameTruncated = errors.New("frame truncated")
)

// Framer moves length-prefixed frames over an io.ReadWriter. The prefix
// is a 4-byte big-endian payload length. Writes are serialized; reads
// must come from a single goroutine.
type Framer struct {
	rw             io.ReadWriter
	maxMessageSize uint32
	lengthBuf      [LengthPrefixSize]byte
	writeMu        sync.Mutex

	logger log.Logger
	connID string
}

// NewFramer creates a framer with the default maximum message size.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxMessageSize)
}

// NewFramerWithMaxSize creates a framer with a custom maximum message size.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize uint32) *Framer {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Framer{rw: rw, maxMessageSize: maxSize}
}

// SetLogger configures frame logging. Pass nil to disable.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.logger = logger
	f.connID = connID
}

// WriteFrame writes one length-prefixed frame.
// Thread-safe: can be called from multiple goroutines.
func (f *Framer) WriteFrame(data []byte) error {
	if err := f.checkSize(uint32(len(data))); err != nil {
		return err
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))

	if _, err := f.rw.Write(prefix[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := f.rw.Write(data); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	f.logFrame(data, log.DirectionOut)
	return nil
}

// ReadFrame reads one length-prefixed frame and returns its payload.
func (f *Framer) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(f.rw, f.lengthBuf[:]); err != nil {
		switch {
		case err == io.EOF:
			return nil, err
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, ErrFrameTruncated
		default:
			return nil, fmt.Errorf("read length prefix: %w", err)
		}
	}

	length := binary.BigEndian.Uint32(f.lengthBuf[:])
	if err := f.checkSize(length); err != nil {
		return nil, err
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(f.rw, payload); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}

	f.logFrame(payload, log.DirectionIn)
	return payload, nil
}

func (f *Framer) checkSize(n uint32) error {
	switch {
	case n == 0:
		return ErrMessageEmpty
	case n > f.maxMessageSize:
		return fmt.Errorf("%w: %d exceeds limit %d", ErrMessageTooLarge, n, f.maxMessageSize)
	}
	return nil
}

func (f *Framer) logFrame(data []byte, direction log.Direction) {
	if f.logger == nil {
		return
	}

	logged := data
	truncated := len(data) > MaxLogFrameDataSize
	if truncated {
		logged = data[:MaxLogFrameDataSize]
	}

	f.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: f.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryFrame,
		Frame: &log.FrameEvent{
			Size:      FrameSize(len(data)),
			Data:      logged,
			Truncated: truncated,
		},
	})
}

// FrameSize returns the on-wire size of a frame with the given payload.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}
