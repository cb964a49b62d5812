package appointment

import (
	"time"
)

// GateOpen reports whether the scheduled time has been reached, boundary
// inclusive. Pure; callers supply now so the predicate stays testable.
func GateOpen(scheduledAt, now time.Time) bool {
	return !now.Before(scheduledAt)
}

// SecondsUntilOpen returns the whole seconds remaining until the gate
// opens, or 0 if it is already open. Read paths use it to render the
// "not yet available" countdown.
func SecondsUntilOpen(scheduledAt, now time.Time) int64 {
	if GateOpen(scheduledAt, now) {
		return 0
	}
	return int64(scheduledAt.Sub(now).Seconds())
}
