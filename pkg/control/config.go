package control

import (
	"time"

	"github.com/hapticlink/haptic-go/pkg/log"
)

// Default timing and arbitration constants.
const (
	// DefaultPollInterval is how often the background loops wake up.
	DefaultPollInterval = 12 * time.Millisecond

	// DefaultDedupThreshold is the minimum position delta between two
	// manual requests for the second one to be enqueued.
	DefaultDedupThreshold = 0.12

	// DefaultFadeStep is the intensity change per fade tick.
	DefaultFadeStep = 0.1

	// DefaultFadeTickPeriod is the fade tick period at smoothness 1.
	// Lower smoothness stretches the period proportionally.
	DefaultFadeTickPeriod = 500 * time.Millisecond

	// DefaultOscillationFloor and DefaultOscillationCeil are the two
	// endpoints the triangle wave alternates between.
	DefaultOscillationFloor = 0.35
	DefaultOscillationCeil  = 1.0

	// DefaultHalfCycleBase and DefaultHalfCycleSlope define the
	// oscillation half-cycle: base minus slope times speed. Speed 1
	// yields a 1s half-cycle, speed near 0 approaches 1.5s.
	DefaultHalfCycleBase  = 1500 * time.Millisecond
	DefaultHalfCycleSlope = 500 * time.Millisecond

	// DefaultOscillationSlack is the multiplier applied to the
	// half-cycle wait so the next move is never issued before the
	// device finishes the previous one.
	DefaultOscillationSlack = 1.1

	// DefaultReturnToZeroDuration is the move time for the single
	// return-to-zero command issued when oscillation speed drops to 0.
	DefaultReturnToZeroDuration = 250 * time.Millisecond

	// DefaultReturnToZeroSettle is the pause after a return-to-zero
	// before the loop re-polls.
	DefaultReturnToZeroSettle = 250 * time.Millisecond

	// DefaultWindDownDuration is the move time for the final
	// return-to-zero the oscillation loop issues on cancellation.
	DefaultWindDownDuration = 500 * time.Millisecond

	// DefaultWindDownSettle is the pause after the wind-down move
	// before the oscillation loop exits.
	DefaultWindDownSettle = 1000 * time.Millisecond

	// DefaultStrokeUnitDuration is the time a stroke takes to traverse
	// the full position range. Shorter strokes scale linearly.
	DefaultStrokeUnitDuration = 1000 * time.Millisecond

	// DefaultPulseLinearDuration is the move time for each of the two
	// linear commands a Pulse issues.
	DefaultPulseLinearDuration = 250 * time.Millisecond

	// DefaultGestureHoldBase scales the peak hold time of Pulse and
	// Hold: hold = base times (1 - reboundSpeed).
	DefaultGestureHoldBase = 1000 * time.Millisecond
)

// Config configures a Session. The zero value of any field is replaced
// with its default.
type Config struct {
	PollInterval   time.Duration
	DedupThreshold float64

	FadeStep       float64
	FadeTickPeriod time.Duration

	OscillationFloor float64
	OscillationCeil  float64
	HalfCycleBase    time.Duration
	HalfCycleSlope   time.Duration
	OscillationSlack float64

	ReturnToZeroDuration time.Duration
	ReturnToZeroSettle   time.Duration
	WindDownDuration     time.Duration
	WindDownSettle       time.Duration

	StrokeUnitDuration  time.Duration
	PulseLinearDuration time.Duration
	GestureHoldBase     time.Duration

	// Logger receives session lifecycle events (optional).
	Logger log.Logger
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:         DefaultPollInterval,
		DedupThreshold:       DefaultDedupThreshold,
		FadeStep:             DefaultFadeStep,
		FadeTickPeriod:       DefaultFadeTickPeriod,
		OscillationFloor:     DefaultOscillationFloor,
		OscillationCeil:      DefaultOscillationCeil,
		HalfCycleBase:        DefaultHalfCycleBase,
		HalfCycleSlope:       DefaultHalfCycleSlope,
		OscillationSlack:     DefaultOscillationSlack,
		ReturnToZeroDuration: DefaultReturnToZeroDuration,
		ReturnToZeroSettle:   DefaultReturnToZeroSettle,
		WindDownDuration:     DefaultWindDownDuration,
		WindDownSettle:       DefaultWindDownSettle,
		StrokeUnitDuration:   DefaultStrokeUnitDuration,
		PulseLinearDuration:  DefaultPulseLinearDuration,
		GestureHoldBase:      DefaultGestureHoldBase,
	}
}

// withDefaults fills zero-valued fields with defaults.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PollInterval == 0 {
		c.PollInterval = def.PollInterval
	}
	if c.DedupThreshold == 0 {
		c.DedupThreshold = def.DedupThreshold
	}
	if c.FadeStep == 0 {
		c.FadeStep = def.FadeStep
	}
	if c.FadeTickPeriod == 0 {
		c.FadeTickPeriod = def.FadeTickPeriod
	}
	if c.OscillationFloor == 0 {
		c.OscillationFloor = def.OscillationFloor
	}
	if c.OscillationCeil == 0 {
		c.OscillationCeil = def.OscillationCeil
	}
	if c.HalfCycleBase == 0 {
		c.HalfCycleBase = def.HalfCycleBase
	}
	if c.HalfCycleSlope == 0 {
		c.HalfCycleSlope = def.HalfCycleSlope
	}
	if c.OscillationSlack == 0 {
		c.OscillationSlack = def.OscillationSlack
	}
	if c.ReturnToZeroDuration == 0 {
		c.ReturnToZeroDuration = def.ReturnToZeroDuration
	}
	if c.ReturnToZeroSettle == 0 {
		c.ReturnToZeroSettle = def.ReturnToZeroSettle
	}
	if c.WindDownDuration == 0 {
		c.WindDownDuration = def.WindDownDuration
	}
	if c.WindDownSettle == 0 {
		c.WindDownSettle = def.WindDownSettle
	}
	if c.StrokeUnitDuration == 0 {
		c.StrokeUnitDuration = def.StrokeUnitDuration
	}
	if c.PulseLinearDuration == 0 {
		c.PulseLinearDuration = def.PulseLinearDuration
	}
	if c.GestureHoldBase == 0 {
		c.GestureHoldBase = def.GestureHoldBase
	}
	if c.Logger == nil {
		c.Logger = log.NoopLogger{}
	}
	return c
}

// halfCycle computes the oscillation half-cycle for a given speed.
func (c Config) halfCycle(speed float64) time.Duration {
	return c.HalfCycleBase - time.Duration(float64(c.HalfCycleSlope)*speed)
}
