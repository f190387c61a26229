package control

import (
	"context"
	"time"

	"github.com/hapticlink/haptic-go/pkg/log"
)

// oscillationLoop drives the triangle-wave motion profile while the
// session is in automatic mode. It polls at the configured interval for
// the session's lifetime and never restarts after cancellation.
func (s *Session) oscillationLoop() {
	defer s.wg.Done()

	s.logState(log.EntityOscillationLoop, "", "running", "")

	high := false
	for s.sleep(s.config.PollInterval) {
		s.mu.Lock()
		mode := s.mode
		speed := s.oscillationSpeed
		atRest := s.lastPosition == 0
		s.mu.Unlock()

		if mode != ModeAuto {
			continue
		}

		if speed <= 0 {
			if !atRest {
				s.returnToZero()
			}
			continue
		}

		interval := s.config.halfCycle(speed)
		high = !high
		target := s.config.OscillationFloor
		if high {
			target = s.config.OscillationCeil
		}

		// The slack keeps the next command from being issued before the
		// device finishes the previous move.
		if !s.sleep(time.Duration(s.config.OscillationSlack * float64(interval))) {
			break
		}

		// Mode may have flipped during the wait; manual now owns the axis.
		s.mu.Lock()
		if s.mode != ModeAuto {
			s.mu.Unlock()
			continue
		}
		s.lastPosition = target
		s.mu.Unlock()

		s.sendLinearAll(s.ctx, interval, target)
	}

	s.windDown()
	s.logState(log.EntityOscillationLoop, "running", "stopped", "")
}

// returnToZero issues a single move back to rest and settles before the
// loop re-polls.
func (s *Session) returnToZero() {
	s.mu.Lock()
	s.lastPosition = 0
	s.mu.Unlock()

	s.sendLinearAll(s.ctx, s.config.ReturnToZeroDuration, 0)
	s.sleep(s.config.ReturnToZeroSettle)
}

// windDown issues the final return-to-zero after cancellation and waits
// for the devices to finish the move.
func (s *Session) windDown() {
	s.mu.Lock()
	s.lastPosition = 0
	s.mu.Unlock()

	// The session context is already cancelled here.
	s.sendLinearAll(context.Background(), s.config.WindDownDuration, 0)
	time.Sleep(s.config.WindDownSettle)
}
