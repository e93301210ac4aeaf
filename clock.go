// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package viewport

import (
	"time"
)

// Clock reports the elapsed time since an arbitrary, fixed origin. It is the
// analogue of performance.now(), and must be monotonic.
type Clock interface {
	Now() time.Duration
}

// ClockFunc adapts a function to the [Clock] interface.
type ClockFunc func() time.Duration

// Now implements [Clock].
func (f ClockFunc) Now() time.Duration { return f() }

// MonotonicClock is a [Clock] measured from the moment it was created, using
// the monotonic reading carried by [time.Time].
type MonotonicClock struct {
	origin time.Time
}

// NewMonotonicClock creates a new MonotonicClock with the current time as
// its origin.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{origin: time.Now()}
}

// Now returns the elapsed time since the clock was created.
// time.Since uses the monotonic clock, so this is unaffected by wall clock
// adjustments.
func (c *MonotonicClock) Now() time.Duration {
	return time.Since(c.origin)
}

// probeSpins bounds the busy-wait used to detect a coarse clock.
const probeSpins = 1 << 16

// IsCoarse reports whether the clock's resolution is too low to measure a
// frame budget, i.e. it never advanced across probeSpins reads, or its
// smallest observed step was a millisecond or more. Anti-fingerprinting
// clamps in browsers produce exactly this behavior.
func IsCoarse(clock Clock) bool {
	start := clock.Now()
	for i := 0; i < probeSpins; i++ {
		if now := clock.Now(); now != start {
			return now-start >= time.Millisecond
		}
	}
	return true
}
