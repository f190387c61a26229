package control

import (
	"context"
	"time"
)

// Pulse drives intensity and linear position to maximum, holds for
// 1000ms times (1 - reboundSpeed), then drives both back to zero. The
// jump is instantaneous; use Hold for a ramped version.
func (s *Session) Pulse(ctx context.Context, reboundSpeed float64) error {
	if reboundSpeed < 0 || reboundSpeed > 1 {
		return ErrReboundOutOfRange
	}
	if s.exited.Load() {
		return ErrSessionClosed
	}

	hold := time.Duration((1 - reboundSpeed) * float64(s.config.GestureHoldBase))

	s.setIntensity(1)
	s.sendRaw(ctx, 1)
	s.setLastPosition(1)
	s.sendLinearAll(ctx, s.config.PulseLinearDuration, 1)

	if err := s.wait(ctx, hold); err != nil {
		return err
	}

	s.setLastPosition(0)
	s.sendLinearAll(ctx, s.config.PulseLinearDuration, 0)
	s.setIntensity(0)
	s.sendRaw(ctx, 0)
	return nil
}

// Hold is the ramped counterpart of Pulse: fade in, hold the peak for
// 1000ms times (1 - reboundSpeed), fade out.
func (s *Session) Hold(ctx context.Context, reboundSpeed float64) error {
	if reboundSpeed < 0 || reboundSpeed > 1 {
		return ErrReboundOutOfRange
	}
	if s.exited.Load() {
		return ErrSessionClosed
	}

	if err := s.FadeIn(ctx); err != nil {
		return err
	}

	hold := time.Duration((1 - reboundSpeed) * float64(s.config.GestureHoldBase))
	if err := s.wait(ctx, hold); err != nil {
		return err
	}

	return s.FadeOut(ctx)
}

// wait sleeps for d, honoring both the caller and session contexts.
func (s *Session) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return nil
	case <-timer.C:
		return nil
	}
}

// setIntensity updates the current intensity unless a fade owns it.
func (s *Session) setIntensity(v float64) {
	s.mu.Lock()
	if !s.fading {
		s.current = v
	}
	s.mu.Unlock()
}

// setLastPosition records a directly issued linear target.
func (s *Session) setLastPosition(v float64) {
	s.mu.Lock()
	s.lastPosition = v
	s.mu.Unlock()
}
