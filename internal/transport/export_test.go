package transport

import "time"

// SetClock replaces the token source clock.
func (s *SignedTokenSource) SetClock(now func() time.Time) {
	s.now = now
}
