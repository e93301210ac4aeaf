package viewport

import (
	"time"
)

const (
	// DefaultTimeBudget is the wall-clock work permitted per drain episode by
	// [TimeBudget].
	DefaultTimeBudget = 12 * time.Millisecond

	// DefaultTickBudget is the number of tasks permitted per drain episode by
	// [TickBudget].
	DefaultTickBudget = 24
)

// Budget decides, per drain episode, whether more queued work may run.
// Reset is called once at the start of each episode, and Measure before each
// task. Implementations must permit at least one task per episode.
type Budget interface {
	Reset()
	Measure() bool
}

// TimeBudget permits work until a fixed duration has elapsed since Reset.
type TimeBudget struct {
	clock Clock
	limit time.Duration
	start time.Duration
}

// NewTimeBudget returns a TimeBudget measured against clock. A non-positive
// limit uses [DefaultTimeBudget].
func NewTimeBudget(clock Clock, limit time.Duration) *TimeBudget {
	if limit <= 0 {
		limit = DefaultTimeBudget
	}
	return &TimeBudget{clock: clock, limit: limit}
}

// Reset implements [Budget].
func (b *TimeBudget) Reset() {
	b.start = b.clock.Now()
}

// Measure implements [Budget].
func (b *TimeBudget) Measure() bool {
	return b.clock.Now()-b.start < b.limit
}

// Limit returns the configured duration.
func (b *TimeBudget) Limit() time.Duration { return b.limit }

// TickBudget permits a fixed number of tasks per episode. It is the fallback
// for environments where elapsed time cannot be measured.
type TickBudget struct {
	limit int
	ticks int
}

// NewTickBudget returns a TickBudget. A non-positive limit uses
// [DefaultTickBudget].
func NewTickBudget(limit int) *TickBudget {
	if limit <= 0 {
		limit = DefaultTickBudget
	}
	return &TickBudget{limit: limit}
}

// Reset implements [Budget].
func (b *TickBudget) Reset() {
	b.ticks = 0
}

// Measure implements [Budget], consuming one tick if any remain.
func (b *TickBudget) Measure() bool {
	if b.ticks >= b.limit {
		return false
	}
	b.ticks++
	return true
}

// Limit returns the configured number of ticks.
func (b *TickBudget) Limit() int { return b.limit }

// DetectBudget selects the budget strategy for clock: a [TimeBudget] of
// [DefaultTimeBudget], or a [TickBudget] of [DefaultTickBudget] if
// [IsCoarse] reports the clock cannot measure it.
func DetectBudget(clock Clock) Budget {
	if IsCoarse(clock) {
		return NewTickBudget(DefaultTickBudget)
	}
	return NewTimeBudget(clock, DefaultTimeBudget)
}
