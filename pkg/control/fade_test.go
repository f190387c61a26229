package control

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/hapticlink/haptic-go/internal/mock"
	"github.com/hapticlink/haptic-go/pkg/actuator"
)

func TestFadeStepsToTarget(t *testing.T) {
	dev := mock.NewDevice("d1", actuator.CapabilitySet{Vibrate: 1})
	s, _ := newTestSession(t, idleConfig(), dev)

	if err := s.Fade(context.Background(), 1, 1); err != nil {
		t.Fatalf("Fade: %v", err)
	}

	// Ten steps of 0.1 plus the final pin at the target.
	want := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.0}
	cmds := dev.CommandsOfKind(mock.KindVibrate)
	if len(cmds) != len(want) {
		t.Fatalf("vibrate commands = %d, want %d", len(cmds), len(want))
	}
	for i, cmd := range cmds {
		if math.Abs(cmd.Level-want[i]) > 1e-6 {
			t.Errorf("step %d level = %v, want %v", i, cmd.Level, want[i])
		}
	}

	if got := s.Intensity(); got != 1 {
		t.Errorf("Intensity() = %v after fade, want 1", got)
	}
	if s.Fading() {
		t.Error("still fading after Fade returned")
	}
}

func TestFadeDown(t *testing.T) {
	dev := mock.NewDevice("d1", actuator.CapabilitySet{Vibrate: 1})
	s, _ := newTestSession(t, idleConfig(), dev)
	ctx := context.Background()

	if err := s.Press(ctx, 1); err != nil {
		t.Fatalf("Press: %v", err)
	}
	dev.Reset()

	if err := s.FadeOut(ctx); err != nil {
		t.Fatalf("FadeOut: %v", err)
	}

	want := []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1, 0.0, 0.0}
	cmds := dev.CommandsOfKind(mock.KindVibrate)
	if len(cmds) != len(want) {
		t.Fatalf("vibrate commands = %d, want %d", len(cmds), len(want))
	}
	for i, cmd := range cmds {
		if math.Abs(cmd.Level-want[i]) > 1e-6 {
			t.Errorf("step %d level = %v, want %v", i, cmd.Level, want[i])
		}
	}
	if got := s.Intensity(); got != 0 {
		t.Errorf("Intensity() = %v, want 0", got)
	}
}

func TestFadePartialRange(t *testing.T) {
	dev := mock.NewDevice("d1", actuator.CapabilitySet{Vibrate: 1})
	s, _ := newTestSession(t, idleConfig(), dev)
	ctx := context.Background()

	if err := s.Press(ctx, 0.2); err != nil {
		t.Fatalf("Press: %v", err)
	}
	dev.Reset()

	if err := s.Fade(ctx, 0.5, 1); err != nil {
		t.Fatalf("Fade: %v", err)
	}

	want := []float64{0.3, 0.4, 0.5, 0.5}
	cmds := dev.CommandsOfKind(mock.KindVibrate)
	if len(cmds) != len(want) {
		t.Fatalf("vibrate commands = %d, want %d", len(cmds), len(want))
	}
	for i, cmd := range cmds {
		if math.Abs(cmd.Level-want[i]) > 1e-6 {
			t.Errorf("step %d level = %v, want %v", i, cmd.Level, want[i])
		}
	}
}

func TestFadeSmoothnessStretchesTicks(t *testing.T) {
	dev := mock.NewDevice("d1", actuator.CapabilitySet{Vibrate: 1})
	cfg := idleConfig()
	cfg.FadeTickPeriod = 20 * time.Millisecond
	s, _ := newTestSession(t, cfg, dev)
	ctx := context.Background()

	if err := s.Press(ctx, 0.8); err != nil {
		t.Fatalf("Press: %v", err)
	}

	// Two steps at half smoothness: ticks of 40ms each.
	start := time.Now()
	if err := s.Fade(ctx, 1, 0.5); err != nil {
		t.Fatalf("Fade: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 80*time.Millisecond {
		t.Errorf("fade took %v, want at least 80ms", elapsed)
	}
}

func TestFadeRejectsConcurrentFade(t *testing.T) {
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

	// The second fade must return immediately without touching state.
	start := time.Now()
	if err := s.Fade(ctx, 0, 1); err != nil {
		t.Fatalf("concurrent Fade: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("rejected fade took %v, want immediate return", elapsed)
	}
	if !s.Fading() {
		t.Error("original fade no longer running")
	}

	if err := <-done; err != nil {
		t.Fatalf("Fade: %v", err)
	}
	if got := s.Intensity(); got != 1 {
		t.Errorf("Intensity() = %v, want the first fade's target 1", got)
	}
}

func TestFadeClampsSmoothness(t *testing.T) {
	dev := mock.NewDevice("d1", actuator.CapabilitySet{Vibrate: 1})
	cfg := idleConfig()
	cfg.FadeTickPeriod = time.Millisecond
	s, _ := newTestSession(t, cfg, dev)
	ctx := context.Background()

	if err := s.Press(ctx, 0.9); err != nil {
		t.Fatalf("Press: %v", err)
	}

	// Smoothness 0 clamps to 0.1: one step at 10x the tick period, far
	// from a divide-by-zero hang.
	done := make(chan error, 1)
	go func() {
		done <- s.Fade(ctx, 1, 0)
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Fade: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("fade with zero smoothness did not finish")
	}
}
