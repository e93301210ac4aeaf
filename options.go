// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package viewport

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// DefaultResizeDebounce is the quiet period applied to resize and
// orientation events before the client is invalidated.
const DefaultResizeDebounce = 50 * time.Millisecond

// schedulerOptions holds configuration options for Scheduler creation.
type schedulerOptions struct {
	clock          Clock
	budget         func(clock Clock) Budget
	logger         *logiface.Logger[logiface.Event]
	logLimiter     *catrate.Limiter
	panicHandler   func(err error)
	resizeDebounce time.Duration
}

// Option configures a Scheduler instance.
type Option interface {
	apply(*schedulerOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*schedulerOptions) error
}

func (o *optionImpl) apply(opts *schedulerOptions) error {
	return o.applyFunc(opts)
}

// WithBudget sets the budget strategy, bypassing detection.
func WithBudget(budget Budget) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if budget == nil {
			return &OptionError{Option: "WithBudget", Message: "nil budget"}
		}
		opts.budget = func(Clock) Budget { return budget }
		return nil
	}}
}

// WithTimeBudget selects a [TimeBudget] of the given duration, bypassing
// detection.
func WithTimeBudget(limit time.Duration) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if limit <= 0 {
			return &OptionError{Option: "WithTimeBudget", Message: fmt.Sprintf("non-positive limit %s", limit)}
		}
		opts.budget = func(clock Clock) Budget { return NewTimeBudget(clock, limit) }
		return nil
	}}
}

// WithTickBudget selects a [TickBudget] of the given number of tasks per
// episode, bypassing detection.
func WithTickBudget(limit int) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if limit <= 0 {
			return &OptionError{Option: "WithTickBudget", Message: fmt.Sprintf("non-positive limit %d", limit)}
		}
		opts.budget = func(Clock) Budget { return NewTickBudget(limit) }
		return nil
	}}
}

// WithClock sets the clock used by time-based budgets, and by budget
// detection. Defaults to a [MonotonicClock].
func WithClock(clock Clock) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if clock == nil {
			return &OptionError{Option: "WithClock", Message: "nil clock"}
		}
		opts.clock = clock
		return nil
	}}
}

// WithLogger sets the structured logger. A nil logger disables logging,
// which is the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithLogRateLimits throttles high-frequency log messages (e.g. budget
// yields), per message category, using the given sliding windows. See
// [catrate.NewLimiter] for the constraints on rates.
func WithLogRateLimits(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *schedulerOptions) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &OptionError{Option: "WithLogRateLimits", Message: "invalid rates", Cause: fmt.Errorf("%v", r)}
			}
		}()
		opts.logLimiter = catrate.NewLimiter(rates)
		return nil
	}}
}

// WithResizeDebounce sets the quiet period applied to resize and
// orientation events. Zero invalidates on the next timer turn.
func WithResizeDebounce(delay time.Duration) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if delay < 0 {
			return &OptionError{Option: "WithResizeDebounce", Message: fmt.Sprintf("negative delay %s", delay)}
		}
		opts.resizeDebounce = delay
		return nil
	}}
}

// WithPanicHandler sets a callback, invoked with a *[PanicError] whenever a
// task panics. The panic is always recovered, and logged.
func WithPanicHandler(handler func(err error)) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.panicHandler = handler
		return nil
	}}
}

// resolveOptions applies Option instances to schedulerOptions.
func resolveOptions(opts []Option) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		resizeDebounce: DefaultResizeDebounce,
		logLimiter: catrate.NewLimiter(map[time.Duration]int{
			time.Second: 1,
			time.Minute: 10,
		}),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.clock == nil {
		cfg.clock = NewMonotonicClock()
	}
	if cfg.budget == nil {
		cfg.budget = DetectBudget
	}
	return cfg, nil
}
