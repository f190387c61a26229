package control

import (
	"context"
	"time"
)

// fadeEpsilon absorbs float accumulation drift when stepping toward the
// fade target.
const fadeEpsilon = 1e-9

// Fade ramps the intensity from its current value to target in fixed
// steps. Smoothness in [0.1,1] controls the tick period: a full 500ms
// per step at 1, proportionally longer below. A fade already in
// progress makes the call a silent no-op.
//
// Each step goes through Press, so manual position updates are enqueued
// along the ramp. A final Press pins the exact target.
func (s *Session) Fade(ctx context.Context, target, smoothness float64) error {
	if s.exited.Load() {
		return ErrSessionClosed
	}

	target = clamp01(target)
	if smoothness < 0.1 {
		smoothness = 0.1
	} else if smoothness > 1 {
		smoothness = 1
	}

	s.mu.Lock()
	if s.fading {
		s.mu.Unlock()
		return nil
	}
	s.fading = true
	start := s.current
	s.mu.Unlock()

	tick := time.Duration(float64(s.config.FadeTickPeriod) / smoothness)
	step := s.config.FadeStep
	if target < start {
		step = -step
	}

	err := s.fadeLoop(ctx, start, target, step, tick)

	s.mu.Lock()
	s.fading = false
	s.mu.Unlock()

	if err != nil {
		return err
	}

	// Pins current to the exact target now that the fade flag is clear.
	return s.Press(ctx, target)
}

// FadeIn fades to full intensity.
func (s *Session) FadeIn(ctx context.Context) error {
	return s.Fade(ctx, 1, 1)
}

// FadeOut fades to zero intensity.
func (s *Session) FadeOut(ctx context.Context) error {
	return s.Fade(ctx, 0, 1)
}

// fadeLoop applies Press steps until the value passes the target.
func (s *Session) fadeLoop(ctx context.Context, start, target, step float64, tick time.Duration) error {
	v := start
	for {
		v += step
		if step > 0 && v > target+fadeEpsilon {
			return nil
		}
		if step < 0 && v < target-fadeEpsilon {
			return nil
		}

		if err := s.Press(ctx, clamp01(v)); err != nil {
			return err
		}

		timer := time.NewTimer(tick)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
