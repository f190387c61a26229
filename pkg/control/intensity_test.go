package control

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/hapticlink/haptic-go/internal/mock"
	"github.com/hapticlink/haptic-go/pkg/actuator"
)

func TestControlClampsIntensity(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{"below range", -1, 0},
		{"slightly below", -0.01, 0},
		{"zero", 0, 0},
		{"mid", 0.5, 0.5},
		{"one", 1, 1},
		{"slightly above", 1.01, 1},
		{"far above", 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t, idleConfig(), mock.NewFullDevice("d1"))
			if err := s.Control(context.Background(), Request{Intensity: tt.input}); err != nil {
				t.Fatalf("Control: %v", err)
			}
			if got := s.Intensity(); got != tt.want {
				t.Errorf("Intensity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestControlNoDevicesIsNoOp(t *testing.T) {
	s, _ := newTestSession(t, idleConfig())

	if err := s.Control(context.Background(), Request{Intensity: 0.7}); err != nil {
		t.Fatalf("Control: %v", err)
	}
	if got := s.Intensity(); got != 0 {
		t.Errorf("Intensity() = %v, want 0 after no-op", got)
	}
	if got := s.QueueLen(); got != 0 {
		t.Errorf("QueueLen() = %d, want 0 after no-op", got)
	}
}

func TestControlFansOutRawIntensity(t *testing.T) {
	dev := mock.NewFullDevice("d1")
	s, _ := newTestSession(t, idleConfig(), dev)

	if err := s.Control(context.Background(), Request{Intensity: 0.6}); err != nil {
		t.Fatalf("Control: %v", err)
	}

	for _, kind := range []mock.CommandKind{mock.KindVibrate, mock.KindRotate, mock.KindOscillate} {
		cmds := dev.CommandsOfKind(kind)
		if len(cmds) != 1 {
			t.Fatalf("%s commands = %d, want 1", kind, len(cmds))
		}
		if cmds[0].Level != 0.6 {
			t.Errorf("%s level = %v, want 0.6", kind, cmds[0].Level)
		}
	}
}

func TestControlSkipsAbsentCapabilities(t *testing.T) {
	dev := mock.NewDevice("d1", actuator.CapabilitySet{Vibrate: 1})
	s, _ := newTestSession(t, idleConfig(), dev)

	if err := s.Control(context.Background(), Request{Intensity: 0.6}); err != nil {
		t.Fatalf("Control: %v", err)
	}

	if n := len(dev.CommandsOfKind(mock.KindVibrate)); n != 1 {
		t.Errorf("vibrate commands = %d, want 1", n)
	}
	if n := len(dev.CommandsOfKind(mock.KindRotate)); n != 0 {
		t.Errorf("rotate commands = %d, want 0", n)
	}
	if n := len(dev.CommandsOfKind(mock.KindOscillate)); n != 0 {
		t.Errorf("oscillate commands = %d, want 0", n)
	}
}

func TestControlModeSwitch(t *testing.T) {
	s, _ := newTestSession(t, idleConfig(), mock.NewFullDevice("d1"))
	ctx := context.Background()

	if err := s.Set(ctx, 0.5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s.Mode() != ModeAuto {
		t.Fatalf("mode after Set = %v, want AUTO", s.Mode())
	}
	if s.OscillationSpeed() != 0.5 {
		t.Errorf("oscillation speed = %v, want 0.5", s.OscillationSpeed())
	}

	if err := s.Press(ctx, 0.5); err != nil {
		t.Fatalf("Press: %v", err)
	}
	if s.Mode() != ModeManual {
		t.Errorf("mode after Press = %v, want MANUAL", s.Mode())
	}
}

func TestControlExplicitPosition(t *testing.T) {
	s, _ := newTestSession(t, idleConfig(), mock.NewFullDevice("d1"))

	pos := 0.9
	if err := s.Control(context.Background(), Request{Intensity: 0.4, Position: &pos}); err != nil {
		t.Fatalf("Control: %v", err)
	}

	if got := s.Intensity(); got != 0.4 {
		t.Errorf("Intensity() = %v, want 0.4", got)
	}
	if s.Mode() != ModeManual {
		t.Errorf("mode = %v, want MANUAL", s.Mode())
	}
	if got := s.QueueLen(); got != 1 {
		t.Errorf("QueueLen() = %d, want 1", got)
	}
}

func TestControlClampsPosition(t *testing.T) {
	dev := mock.NewFullDevice("d1")
	cfg := fastConfig()
	s, _ := newTestSession(t, cfg, dev)

	pos := 1.5
	if err := s.Control(context.Background(), Request{Intensity: 0.4, Position: &pos}); err != nil {
		t.Fatalf("Control: %v", err)
	}

	if !dev.WaitForCommands(mock.KindLinear, 1, time.Second) {
		t.Fatal("no linear command observed")
	}
	if got := dev.LinearPositions()[0]; got != 1 {
		t.Errorf("linear position = %v, want 1", got)
	}
}

func TestControlDeduplicatesNearbyPositions(t *testing.T) {
	s, _ := newTestSession(t, idleConfig(), mock.NewFullDevice("d1"))
	ctx := context.Background()

	if err := s.Press(ctx, 0.5); err != nil {
		t.Fatalf("Press: %v", err)
	}
	if got := s.QueueLen(); got != 1 {
		t.Fatalf("QueueLen() = %d, want 1", got)
	}

	// All within the dedup threshold of the last accepted request.
	for _, v := range []float64{0.55, 0.45, 0.5, 0.61} {
		if err := s.Press(ctx, v); err != nil {
			t.Fatalf("Press(%v): %v", v, err)
		}
	}
	if got := s.QueueLen(); got != 1 {
		t.Errorf("QueueLen() = %d, want 1 after near-duplicates", got)
	}

	// Far enough to be accepted.
	if err := s.Press(ctx, 0.8); err != nil {
		t.Fatalf("Press: %v", err)
	}
	if got := s.QueueLen(); got != 2 {
		t.Errorf("QueueLen() = %d, want 2", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t, idleConfig(), mock.NewFullDevice("d1"))
	ctx := context.Background()

	if err := s.Set(ctx, 0.9); err != nil {
		t.Fatalf("Set: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.Stop(ctx); err != nil {
			t.Fatalf("Stop #%d: %v", i+1, err)
		}
		if got := s.Intensity(); got != 0 {
			t.Errorf("Intensity() = %v after Stop #%d, want 0", got, i+1)
		}
		if got := s.OscillationSpeed(); got != 0 {
			t.Errorf("OscillationSpeed() = %v after Stop #%d, want 0", got, i+1)
		}
	}
}

func TestAutoModeFreezesStrokeQueue(t *testing.T) {
	dev := mock.NewFullDevice("d1")
	cfg := fastConfig()
	cfg.PollInterval = 50 * time.Millisecond
	s, _ := newTestSession(t, cfg, dev)
	ctx := context.Background()

	// Queue a manual stroke, then hand authority to the oscillation
	// loop before the stroke loop's first poll.
	if err := s.Press(ctx, 0.5); err != nil {
		t.Fatalf("Press: %v", err)
	}
	if err := s.Set(ctx, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	if n := len(dev.CommandsOfKind(mock.KindLinear)); n != 0 {
		t.Errorf("linear commands in auto mode = %d, want 0", n)
	}
	if got := s.QueueLen(); got != 1 {
		t.Errorf("QueueLen() = %d, want 1 (queue frozen)", got)
	}
}

func TestIntensityNotOverwrittenWhileFading(t *testing.T) {
	dev := mock.NewDevice("d1", actuator.CapabilitySet{Vibrate: 1})
	cfg := idleConfig()
	cfg.FadeTickPeriod = 50 * time.Millisecond
	s, _ := newTestSession(t, cfg, dev)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- s.Fade(ctx, 1, 1)
	}()

	waitUntil(t, time.Second, s.Fading)

	// A direct request mid-fade must not clobber the fade's target.
	if err := s.Control(ctx, Request{Intensity: 0.3}); err != nil {
		t.Fatalf("Control: %v", err)
	}
	if got := s.Intensity(); got == 0.3 {
		t.Error("intensity overwritten while fading")
	}

	if err := <-done; err != nil {
		t.Fatalf("Fade: %v", err)
	}
	if got := s.Intensity(); got != 1 {
		t.Errorf("Intensity() = %v after fade, want 1", got)
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-5, 0}, {0, 0}, {0.25, 0.25}, {1, 1}, {7, 1},
	}
	for _, tt := range tests {
		if got := clamp01(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
