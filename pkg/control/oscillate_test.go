package control

import (
	"context"
	"testing"
	"time"

	"github.com/hapticlink/haptic-go/internal/mock"
	"github.com/hapticlink/haptic-go/pkg/actuator"
)

func TestOscillationAlternatesEndpoints(t *testing.T) {
	dev := mock.NewFullDevice("d1")
	cfg := fastConfig()
	s, _ := newTestSession(t, cfg, dev)

	// Speed 0.5: half-cycle = 40ms - 20ms*0.5 = 30ms.
	if err := s.Set(context.Background(), 0.5); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if s.Mode() != ModeAuto {
		t.Fatalf("mode = %v, want AUTO", s.Mode())
	}
	if s.OscillationSpeed() != 0.5 {
		t.Fatalf("speed = %v, want 0.5", s.OscillationSpeed())
	}

	// The raw intensity goes out immediately.
	vibes := dev.CommandsOfKind(mock.KindVibrate)
	if len(vibes) != 1 || vibes[0].Level != 0.5 {
		t.Fatalf("vibrate commands = %+v, want one at 0.5", vibes)
	}

	if !dev.WaitForCommands(mock.KindLinear, 4, 2*time.Second) {
		t.Fatalf("linear commands = %d, want at least 4", len(dev.CommandsOfKind(mock.KindLinear)))
	}

	linears := dev.CommandsOfKind(mock.KindLinear)[:4]
	wantInterval := cfg.halfCycle(0.5)
	for i, cmd := range linears {
		wantPos := DefaultOscillationFloor
		if i%2 == 0 {
			wantPos = DefaultOscillationCeil
		}
		if cmd.Position != wantPos {
			t.Errorf("linear #%d position = %v, want %v", i, cmd.Position, wantPos)
		}
		if cmd.Duration != wantInterval {
			t.Errorf("linear #%d duration = %v, want %v", i, cmd.Duration, wantInterval)
		}
	}
}

func TestOscillationHalfCyclePacing(t *testing.T) {
	dev := mock.NewFullDevice("d1")
	cfg := fastConfig()
	s, _ := newTestSession(t, cfg, dev)

	// Speed 1: half-cycle = 20ms, command-to-command spacing at least
	// the 1.1x slack wait.
	if err := s.Set(context.Background(), 1); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if !dev.WaitForCommands(mock.KindLinear, 3, 2*time.Second) {
		t.Fatal("too few linear commands")
	}

	linears := dev.CommandsOfKind(mock.KindLinear)[:3]
	minGap := time.Duration(cfg.OscillationSlack * float64(cfg.halfCycle(1)))
	for i := 1; i < len(linears); i++ {
		gap := linears[i].At.Sub(linears[i-1].At)
		if gap < minGap {
			t.Errorf("gap #%d = %v, want at least %v", i, gap, minGap)
		}
	}
}

func TestOscillationZeroSpeedReturnsToRest(t *testing.T) {
	dev := mock.NewFullDevice("d1")
	cfg := fastConfig()
	s, _ := newTestSession(t, cfg, dev)
	ctx := context.Background()

	if err := s.Set(ctx, 0.5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !dev.WaitForCommands(mock.KindLinear, 1, 2*time.Second) {
		t.Fatal("oscillation never started")
	}

	// Dropping the speed to zero sends one return-to-zero move.
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Set(ctx, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		linears := dev.CommandsOfKind(mock.KindLinear)
		return len(linears) > 0 && linears[len(linears)-1].Position == 0
	})
	if got := s.LastPosition(); got != 0 {
		t.Errorf("LastPosition() = %v, want 0", got)
	}

	// At rest, zero speed issues nothing further.
	n := len(dev.CommandsOfKind(mock.KindLinear))
	time.Sleep(100 * time.Millisecond)
	if got := len(dev.CommandsOfKind(mock.KindLinear)); got != n {
		t.Errorf("linear commands while at rest: %d new", got-n)
	}
}

func TestOscillationIgnoredInManualMode(t *testing.T) {
	dev := mock.NewDevice("d1", actuator.CapabilitySet{Linear: 1})
	cfg := fastConfig()
	s, _ := newTestSession(t, cfg, dev)
	ctx := context.Background()

	// Manual mode with an empty queue: neither loop should move.
	if err := s.Press(ctx, 0); err != nil {
		t.Fatalf("Press: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if n := len(dev.CommandsOfKind(mock.KindLinear)); n != 0 {
		t.Errorf("linear commands = %d, want 0", n)
	}
}

func TestOscillationWindDownOnExit(t *testing.T) {
	dev := mock.NewFullDevice("d1")
	cfg := fastConfig()
	// Distinct from every other configured duration so the wind-down
	// command is unambiguous in the recording.
	cfg.WindDownDuration = 7 * time.Millisecond
	b := mock.NewBus(dev)
	s := NewSession(b, cfg)

	if err := s.Set(context.Background(), 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	dev.WaitForCommands(mock.KindLinear, 1, 2*time.Second)

	if err := s.Exit(context.Background()); err != nil {
		t.Fatalf("Exit: %v", err)
	}

	// The loop's graceful wind-down issues a final return-to-zero with
	// the wind-down duration.
	linears := dev.CommandsOfKind(mock.KindLinear)
	var found bool
	for _, cmd := range linears {
		if cmd.Position == 0 && cmd.Duration == cfg.WindDownDuration {
			found = true
		}
	}
	if !found {
		t.Errorf("no wind-down linear command in %+v", linears)
	}
}
