package control

import (
	"context"
	"math"
)

// Control is the single entry point for all intensity-affecting
// requests. It clamps the intensity, updates the intensity channel
// unless a fade is in progress, resolves the driving mode, and fans the
// intensity out to every scalar capability group.
//
// With no connected devices the call is a silent no-op.
func (s *Session) Control(ctx context.Context, req Request) error {
	if s.exited.Load() {
		return ErrSessionClosed
	}
	if len(s.bus.Devices()) == 0 {
		return nil
	}

	intensity := clamp01(req.Intensity)

	s.mu.Lock()
	if !s.fading {
		s.current = intensity
	}

	location := intensity
	if req.Position != nil {
		location = clamp01(*req.Position)
	}

	if req.Position == nil && req.Oscillate {
		s.mode = ModeAuto
		s.oscillationSpeed = intensity
	} else {
		s.mode = ModeManual
		if math.Abs(location-s.lastRawRequest) >= s.config.DedupThreshold {
			s.queue = append(s.queue, location)
			s.lastRawRequest = location
		}
	}
	s.mu.Unlock()

	s.sendRaw(ctx, intensity)
	return nil
}

// Set switches to automatic oscillation at the given intensity.
func (s *Session) Set(ctx context.Context, intensity float64) error {
	return s.Control(ctx, Request{Intensity: intensity, Oscillate: true})
}

// Press applies an intensity as a manual request.
func (s *Session) Press(ctx context.Context, value float64) error {
	return s.Control(ctx, Request{Intensity: value})
}

// Stop zeroes the intensity and the oscillation speed. Repeated calls
// are stable.
func (s *Session) Stop(ctx context.Context) error {
	err := s.Control(ctx, Request{Intensity: 0})

	s.mu.Lock()
	s.oscillationSpeed = 0
	s.mu.Unlock()

	return err
}
