package host

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-viewport"
	"github.com/joeycumines/logiface"
)

// ErrHostClosed is returned by Loop methods after Close.
var ErrHostClosed = errors.New("host: closed")

// Loop is a [viewport.Host] backed by a go-eventloop Loop. Frames and
// timeouts are JS timers on the loop, see [eventloop.JS], so every callback
// runs on the loop goroutine.
//
// RequestFrame, SetTimeout and ClearTimeout must be called on the loop
// goroutine, like every Scheduler method. Use [Loop.Do] from anywhere else.
type Loop struct {
	loop     *eventloop.Loop
	js       *eventloop.JS
	clock    *viewport.MonotonicClock
	logger   *logiface.Logger[logiface.Event]
	timers   map[viewport.TimerID]struct{}
	frames   []func()
	interval time.Duration
	frame    viewport.TimerID
	closed   atomic.Bool
}

// LoopConfig models optional configuration for NewLoop.
type LoopConfig struct {
	// Logger receives timer failures, e.g. after the loop terminates.
	Logger *logiface.Logger[logiface.Event]

	// FrameInterval is the time between animation frames.
	// Defaults to DefaultFrameInterval, if 0.
	FrameInterval time.Duration
}

// NewLoop returns a Loop host for loop. The cfg parameter may be nil.
// The event loop must be run separately, see [eventloop.Loop.Run].
func NewLoop(loop *eventloop.Loop, cfg *LoopConfig) (*Loop, error) {
	if loop == nil {
		panic(`host: nil loop`)
	}
	js, err := eventloop.NewJS(loop)
	if err != nil {
		return nil, fmt.Errorf("host: failed to create JS adapter: %w", err)
	}
	h := &Loop{
		loop:     loop,
		js:       js,
		clock:    viewport.NewMonotonicClock(),
		timers:   make(map[viewport.TimerID]struct{}),
		interval: DefaultFrameInterval,
	}
	if cfg != nil {
		h.logger = cfg.Logger
		if cfg.FrameInterval > 0 {
			h.interval = cfg.FrameInterval
		}
	}
	return h, nil
}

// Clock returns the monotonic clock used to align frames, suitable for
// [viewport.WithClock].
func (h *Loop) Clock() viewport.Clock {
	return h.clock
}

// Do runs fn on the loop goroutine. It is safe to call from any goroutine.
func (h *Loop) Do(fn func()) error {
	if h.closed.Load() {
		return ErrHostClosed
	}
	return h.loop.Submit(fn)
}

// Close cancels all pending timeouts and frames. It is safe to call from any
// goroutine, and more than once.
func (h *Loop) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.loop.Submit(func() {
		for id := range h.timers {
			_ = h.js.ClearTimeout(uint64(id))
			delete(h.timers, id)
		}
		if h.frame != 0 {
			_ = h.js.ClearTimeout(uint64(h.frame))
			h.frame = 0
		}
		h.frames = nil
	})
}

// RequestFrame implements [viewport.Host]. Frames are aligned to multiples
// of the frame interval, measured from the host's creation.
func (h *Loop) RequestFrame(fn func()) {
	if fn == nil || h.closed.Load() {
		return
	}
	h.frames = append(h.frames, fn)
	if h.frame != 0 {
		return
	}
	delay := h.interval - h.clock.Now()%h.interval
	id, err := h.js.SetTimeout(h.runFrame, delayMillis(delay))
	if err != nil {
		// the batch stays queued, and the next request retries
		h.logger.Warning().
			Err(err).
			Int(`frames`, len(h.frames)).
			Log(`host: failed to schedule frame`)
		return
	}
	h.frame = viewport.TimerID(id)
}

func (h *Loop) runFrame() {
	h.frame = 0
	if h.closed.Load() {
		return
	}
	frames := h.frames
	h.frames = nil
	for _, fn := range frames {
		fn()
	}
}

// SetTimeout implements [viewport.Host]. Delays are rounded up to whole
// milliseconds.
func (h *Loop) SetTimeout(fn func(), delay time.Duration) viewport.TimerID {
	if fn == nil || h.closed.Load() {
		return 0
	}
	var id viewport.TimerID
	v, err := h.js.SetTimeout(func() {
		delete(h.timers, id)
		if h.closed.Load() {
			return
		}
		fn()
	}, delayMillis(delay))
	if err != nil {
		h.logger.Warning().
			Err(err).
			Dur(`delay`, delay).
			Log(`host: failed to schedule timeout`)
		return 0
	}
	id = viewport.TimerID(v)
	h.timers[id] = struct{}{}
	return id
}

// ClearTimeout implements [viewport.Host].
func (h *Loop) ClearTimeout(id viewport.TimerID) {
	if _, ok := h.timers[id]; !ok {
		return
	}
	delete(h.timers, id)
	_ = h.js.ClearTimeout(uint64(id))
}

func delayMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}
