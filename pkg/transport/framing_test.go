package transport

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hapticlink/haptic-go/pkg/log"
)

func TestFramerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	f := NewFramer(&buf)

	frames := [][]byte{
		[]byte{0x01},
		[]byte("hello"),
		bytes.Repeat([]byte{0xAB}, 1024),
	}
	for _, frame := range frames {
		if err := f.WriteFrame(frame); err != nil {
			t.Fatalf("WriteFrame(%d bytes): %v", len(frame), err)
		}
	}

	for i, want := range frames {
		got, err := f.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame #%d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame #%d = %x, want %x", i, got, want)
		}
	}
}

func TestFramerRejectsEmptyWrite(t *testing.T) {
	var buf bytes.Buffer
	f := NewFramer(&buf)

	if err := f.WriteFrame(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("WriteFrame(nil) = %v, want ErrMessageEmpty", err)
	}
}

func TestFramerEnforcesMaxSize(t *testing.T) {
	var buf bytes.Buffer
	f := NewFramerWithMaxSize(&buf, 16)

	if err := f.WriteFrame(bytes.Repeat([]byte{0x01}, 17)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("oversized write = %v, want ErrMessageTooLarge", err)
	}

	// An oversized length prefix from the peer is rejected on read.
	big := NewFramer(&buf)
	if err := big.WriteFrame(bytes.Repeat([]byte{0x02}, 32)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := f.ReadFrame(); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("oversized read = %v, want ErrMessageTooLarge", err)
	}
}

func TestFramerDetectsTruncation(t *testing.T) {
	var buf bytes.Buffer
	f := NewFramer(&buf)
	if err := f.WriteFrame([]byte("truncate me")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	short := bytes.NewBuffer(buf.Bytes()[:buf.Len()-3])
	r := NewFramer(short)
	if _, err := r.ReadFrame(); !errors.Is(err, ErrFrameTruncated) {
		t.Errorf("ReadFrame on truncated stream = %v, want ErrFrameTruncated", err)
	}
}

// captureLogger collects events for assertions.
type captureLogger struct {
	events []log.Event
}

func (l *captureLogger) Log(e log.Event) {
	l.events = append(l.events, e)
}

func TestFramerLogsFrames(t *testing.T) {
	var buf bytes.Buffer
	logger := &captureLogger{}

	f := NewFramer(&buf)
	f.SetLogger(logger, "conn-1")

	payload := []byte("ping")
	if err := f.WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := f.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	if len(logger.events) != 2 {
		t.Fatalf("events = %d, want 2", len(logger.events))
	}

	out, in := logger.events[0], logger.events[1]
	if out.Direction != log.DirectionOut || in.Direction != log.DirectionIn {
		t.Errorf("directions = %s, %s", out.Direction, in.Direction)
	}
	for _, e := range logger.events {
		if e.ConnectionID != "conn-1" {
			t.Errorf("connection ID = %q", e.ConnectionID)
		}
		if e.Frame == nil {
			t.Fatal("event has no frame payload")
		}
		if e.Frame.Size != FrameSize(len(payload)) {
			t.Errorf("frame size = %d, want %d", e.Frame.Size, FrameSize(len(payload)))
		}
		if !bytes.Equal(e.Frame.Data, payload) {
			t.Errorf("frame data = %x", e.Frame.Data)
		}
	}
}

func TestFramerTruncatesLoggedData(t *testing.T) {
	var buf bytes.Buffer
	logger := &captureLogger{}

	f := NewFramer(&buf)
	f.SetLogger(logger, "conn-1")

	payload := bytes.Repeat([]byte{0x5A}, MaxLogFrameDataSize+100)
	if err := f.WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	if len(logger.events) != 1 {
		t.Fatalf("events = %d, want 1", len(logger.events))
	}
	frame := logger.events[0].Frame
	if !frame.Truncated {
		t.Error("large frame not marked truncated")
	}
	if len(frame.Data) != MaxLogFrameDataSize {
		t.Errorf("logged data = %d bytes, want %d", len(frame.Data), MaxLogFrameDataSize)
	}
	if frame.Size != FrameSize(len(payload)) {
		t.Errorf("frame size = %d, want full %d", frame.Size, FrameSize(len(payload)))
	}
}
