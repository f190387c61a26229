package log

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleEvent() Event {
	return Event{
		Timestamp:    time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC),
		SessionID:    "sess-1",
		ConnectionID: "conn-1",
		Layer:        LayerSession,
		Category:     CategoryCommand,
		DeviceID:     "dev-1",
		Command: &CommandEvent{
			Kind:       CommandLinear,
			DurationMs: 250,
			Position:   0.35,
		},
	}
}

func TestEventRoundTrip(t *testing.T) {
	orig := sampleEvent()

	data, err := EncodeEvent(orig)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}

	if !got.Timestamp.Equal(orig.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, orig.Timestamp)
	}
	if got.SessionID != orig.SessionID || got.ConnectionID != orig.ConnectionID {
		t.Errorf("IDs = %q/%q", got.SessionID, got.ConnectionID)
	}
	if got.Layer != LayerSession || got.Category != CategoryCommand {
		t.Errorf("layer/category = %s/%s", got.Layer, got.Category)
	}
	if got.Command == nil {
		t.Fatal("command payload lost")
	}
	if *got.Command != *orig.Command {
		t.Errorf("command = %+v, want %+v", *got.Command, *orig.Command)
	}
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		e := sampleEvent()
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		if i%2 == 0 {
			e.Layer = LayerBus
		}
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// After Close further events are dropped, not written.
	logger.Log(sampleEvent())

	all, err := ReadFile(path, nil)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("events = %d, want 5", len(all))
	}

	busLayer := LayerBus
	filtered, err := ReadFile(path, &Filter{Layer: &busLayer})
	if err != nil {
		t.Fatalf("ReadFile filtered: %v", err)
	}
	if len(filtered) != 3 {
		t.Errorf("bus-layer events = %d, want 3", len(filtered))
	}

	start := base.Add(2 * time.Second)
	end := base.Add(4 * time.Second)
	window, err := ReadFile(path, &Filter{TimeStart: &start, TimeEnd: &end})
	if err != nil {
		t.Fatalf("ReadFile window: %v", err)
	}
	if len(window) != 2 {
		t.Errorf("windowed events = %d, want 2", len(window))
	}
}

func TestReadEventsToleratesTruncatedTail(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for i := 0; i < 3; i++ {
		if err := enc.Encode(sampleEvent()); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	// Cut the last record short, as an interrupted capture would.
	data := buf.Bytes()
	truncated := bytes.NewReader(data[:len(data)-4])

	events, err := ReadEvents(truncated, nil)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("events = %d, want the 2 complete records", len(events))
	}
}

func TestFilterMatching(t *testing.T) {
	e := sampleEvent()
	cmdCategory := CategoryCommand
	stateCategory := CategoryState

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty matches", Filter{}, true},
		{"session match", Filter{SessionID: "sess-1"}, true},
		{"session mismatch", Filter{SessionID: "other"}, false},
		{"device match", Filter{DeviceID: "dev-1"}, true},
		{"category match", Filter{Category: &cmdCategory}, true},
		{"category mismatch", Filter{Category: &stateCategory}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.matches(e); got != tt.want {
				t.Errorf("matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMultiLoggerFansOut(t *testing.T) {
	var a, b countingLogger
	m := NewMultiLogger(&a, &b)

	m.Log(sampleEvent())
	m.Log(sampleEvent())

	if a.count != 2 || b.count != 2 {
		t.Errorf("counts = %d, %d, want 2, 2", a.count, b.count)
	}
}

type countingLogger struct {
	count int
}

func (l *countingLogger) Log(Event) { l.count++ }

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(sampleEvent())

	out := buf.String()
	for _, want := range []string{"hapticbus", "layer=SESSION", "kind=LINEAR", "position=0.35", "device_id=dev-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("slog output missing %q: %s", want, out)
		}
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{LayerTransport.String(), "TRANSPORT"},
		{LayerBus.String(), "BUS"},
		{LayerSession.String(), "SESSION"},
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{CategoryFrame.String(), "FRAME"},
		{EntityOscillationLoop.String(), "OSCILLATION_LOOP"},
		{DeviceAttached.String(), "ATTACHED"},
		{CommandOscillate.String(), "OSCILLATE"},
		{Layer(99).String(), "UNKNOWN"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}
