package lazy

import (
	"slices"

	"github.com/joeycumines/go-viewport"
	"github.com/joeycumines/logiface"
)

// Handle is a resource whose geometry decides whether it is active.
// Handles are compared by identity, e.g. pointers.
type Handle interface {
	comparable
	Rect() viewport.Rect
}

// ActivatorConfig models the configuration for NewActivator.
type ActivatorConfig[H Handle] struct {
	// Activate is enqueued when a handle enters range. Required.
	Activate func(h H)

	// Deactivate is enqueued when a handle leaves range. Required.
	Deactivate func(h H)

	// Skip excludes a handle from evaluation, while it returns true, e.g.
	// players under user control. Optional.
	Skip func(h H) bool

	// Logger is optional.
	Logger *logiface.Logger[logiface.Event]

	// Kind names the resource kind, in logs.
	Kind string

	// Range is passed to [viewport.InRange].
	Range float64
}

// Activator is a registry of handles of a single kind, driven by exactly one
// subscriber. On every notify it evaluates each handle, and enqueues a
// transition only when the in-range result differs from the one previously
// recorded for that handle.
//
// Like the Scheduler, an Activator is not safe for concurrent use.
type Activator[H Handle] struct {
	sched   *viewport.Scheduler
	cfg     ActivatorConfig[H]
	entries []*entry[H]
	index   map[H]*entry[H]
	sub     viewport.SubscriptionID
}

type entry[H Handle] struct {
	handle  H
	active  bool
	removed bool
}

// NewActivator registers a new Activator, subscribed to sched. It panics if
// sched, Activate or Deactivate is nil.
func NewActivator[H Handle](sched *viewport.Scheduler, cfg ActivatorConfig[H]) *Activator[H] {
	if sched == nil || cfg.Activate == nil || cfg.Deactivate == nil {
		panic(`lazy: activator: nil scheduler or transition`)
	}
	a := &Activator[H]{
		sched: sched,
		cfg:   cfg,
		index: make(map[H]*entry[H]),
	}
	a.sub = sched.Subscribe(a.update, false)
	return a
}

// Add registers h, as inactive, and invalidates the client so that it is
// evaluated. Adding a registered handle is a no-op.
func (a *Activator[H]) Add(h H) {
	if _, ok := a.index[h]; ok {
		return
	}
	e := &entry[H]{handle: h}
	a.entries = append(a.entries, e)
	a.index[h] = e
	a.sched.InvalidateClient()
}

// Remove forgets h, returning true if it was registered. Transitions
// already queued for h are discarded, and h is left in whatever state it
// was in.
func (a *Activator[H]) Remove(h H) bool {
	e, ok := a.index[h]
	if !ok {
		return false
	}
	e.removed = true
	delete(a.index, h)
	for i, v := range a.entries {
		if v == e {
			a.entries = slices.Delete(a.entries, i, i+1)
			break
		}
	}
	return true
}

// Active reports the in-range value last recorded for h.
func (a *Activator[H]) Active(h H) bool {
	if e, ok := a.index[h]; ok {
		return e.active
	}
	return false
}

// Len returns the number of registered handles.
func (a *Activator[H]) Len() int {
	return len(a.entries)
}

// Close unsubscribes the activator. Queued transitions still run.
func (a *Activator[H]) Close() {
	if a.sub != 0 {
		a.sched.Unsubscribe(a.sub)
		a.sub = 0
	}
}

// update is the subscriber: reads only, transitions are enqueued.
func (a *Activator[H]) update(client viewport.Client) {
	var changed int
	for _, e := range a.entries {
		if a.cfg.Skip != nil && a.cfg.Skip(e.handle) {
			continue
		}
		inRange := viewport.InRange(e.handle.Rect(), client, a.cfg.Range)
		if inRange == e.active {
			continue
		}
		e.active = inRange
		changed++
		if inRange {
			a.sched.Enqueue(a.transition(e, a.cfg.Activate))
		} else {
			a.sched.Enqueue(a.transition(e, a.cfg.Deactivate))
		}
	}
	if changed != 0 {
		if b := a.cfg.Logger.Trace(); b.Enabled() {
			b.Str(`kind`, a.cfg.Kind).
				Int(`changed`, changed).
				Int(`registered`, len(a.entries)).
				Log(`lazy: transitions enqueued`)
		}
	}
}

func (a *Activator[H]) transition(e *entry[H], fn func(h H)) viewport.Task {
	return func() {
		if !e.removed {
			fn(e.handle)
		}
	}
}
