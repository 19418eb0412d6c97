package worker

import "time"

// SetClock replaces the reconciler clock.
func (r *LinkageReconciler) SetClock(now func() time.Time) {
	r.now = now
}
