package control

import (
	"math"
	"time"

	"github.com/hapticlink/haptic-go/pkg/log"
)

// strokeLoop drains the manual stroke queue while the session is in
// manual mode. Moves take time proportional to their distance, at a
// fixed virtual speed of one full range per StrokeUnitDuration.
//
// Cancellation exits the loop immediately: remaining queued strokes are
// dropped and no reset command is issued.
func (s *Session) strokeLoop() {
	defer s.wg.Done()

	s.logState(log.EntityStrokeLoop, "", "running", "")

	for s.sleep(s.config.PollInterval) {
		s.mu.Lock()
		if s.mode != ModeManual || len(s.queue) == 0 {
			s.mu.Unlock()
			continue
		}
		target := s.queue[0]
		s.queue = s.queue[1:]
		distance := math.Abs(target - s.lastPosition)
		s.lastPosition = target
		s.mu.Unlock()

		duration := time.Duration(distance * float64(s.config.StrokeUnitDuration))
		s.sendLinearAll(s.ctx, duration, target)

		if !s.sleep(duration) {
			break
		}
	}

	s.logState(log.EntityStrokeLoop, "running", "stopped", "")
}
