package host

import (
	"context"
	"time"

	"github.com/joeycumines/go-viewport"
)

// PumpConfig models optional configuration for Loop.Pump.
type PumpConfig struct {
	// OnDispatch is called on the loop goroutine after each batch is
	// dispatched, with the number of events received into it, including
	// those that were collapsed. Optional.
	OnDispatch func(received int)

	// MaxSize is the number of received events that forces a batch to be
	// dispatched immediately. Setting this to a value < 0 disables the
	// limit.
	//
	// Defaults to 64, if 0.
	MaxSize int

	// Linger is how long a batch stays open, after its first event, before
	// it is dispatched. If <= 0, the batch is dispatched by the next timer
	// turn of the loop, absorbing events that arrive before then.
	Linger time.Duration
}

// Pump receives events from ch, dispatching them on target, until ctx is
// canceled or ch is closed. It blocks, and should be called from its own
// goroutine, NOT the loop goroutine. The cfg parameter may be nil.
//
// Received events are added to a batch owned by the loop goroutine, which
// is dispatched by a loop timer, in order, except that consecutive events of
// the same type are collapsed to the last of them: the window is
// re-measured on invalidation, so only the latest matters. A batch still
// open when Pump returns is dispatched by its timer, as usual.
//
// A closed channel returns nil, otherwise the context or submit error is
// returned.
func (h *Loop) Pump(ctx context.Context, cfg *PumpConfig, ch <-chan viewport.Event, target *viewport.EventTarget) error {
	if ctx == nil || ch == nil || target == nil {
		panic(`host: pump: nil argument`)
	}
	b := newEventBatch(h, cfg, target)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if err := h.Do(func() { b.add(event) }); err != nil {
				return err
			}
		}
	}
}

// eventBatch accumulates events on the scheduler goroutine.
type eventBatch struct {
	host       viewport.Host
	target     *viewport.EventTarget
	onDispatch func(received int)
	events     []viewport.Event
	maxSize    int
	received   int
	linger     time.Duration
	timer      viewport.TimerID
}

func newEventBatch(host viewport.Host, cfg *PumpConfig, target *viewport.EventTarget) *eventBatch {
	b := &eventBatch{
		host:    host,
		target:  target,
		maxSize: 64,
	}
	if cfg != nil {
		b.onDispatch = cfg.OnDispatch
		if cfg.MaxSize != 0 {
			b.maxSize = cfg.MaxSize
		}
		if cfg.Linger > 0 {
			b.linger = cfg.Linger
		}
	}
	return b
}

func (x *eventBatch) add(event viewport.Event) {
	x.received++
	if n := len(x.events); n != 0 && x.events[n-1].Type == event.Type {
		x.events[n-1] = event
	} else {
		x.events = append(x.events, event)
	}
	if x.maxSize > 0 && x.received >= x.maxSize {
		x.dispatch()
		return
	}
	if x.timer == 0 {
		if x.timer = x.host.SetTimeout(x.dispatch, x.linger); x.timer == 0 {
			// no timer, e.g. the host is closing
			x.dispatch()
		}
	}
}

func (x *eventBatch) dispatch() {
	if x.timer != 0 {
		x.host.ClearTimeout(x.timer)
		x.timer = 0
	}
	events, received := x.events, x.received
	x.events, x.received = nil, 0
	for i := range events {
		x.target.DispatchEvent(&events[i])
	}
	if x.onDispatch != nil && received != 0 {
		x.onDispatch(received)
	}
}
