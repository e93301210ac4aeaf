package viewport

import (
	"time"
)

// TimerID identifies a timeout scheduled via [Host.SetTimeout]. The zero
// value never identifies a timer.
type TimerID uint64

// Host is the runtime a [Scheduler] is driven by, the analogue of the
// browser window. All callbacks must be invoked on the goroutine that owns
// the scheduler.
type Host interface {
	// RequestFrame schedules fn to run once, on the next animation frame.
	RequestFrame(fn func())

	// SetTimeout schedules fn to run once, after delay.
	SetTimeout(fn func(), delay time.Duration) TimerID

	// ClearTimeout cancels a pending timeout. Unknown or already fired IDs
	// are ignored.
	ClearTimeout(id TimerID)
}
