// Package viewport implements a cooperative, frame-driven task scheduler for
// viewport-reactive work, along with the proximity rule used by lazy
// resources to decide whether they are near the visible viewport.
//
// # Architecture
//
// A [Scheduler] owns a FIFO task queue, a per-frame [Budget], a cached
// [Client] snapshot of the viewport geometry, and a registry of
// [Subscriber] callbacks. Work is queued with [Scheduler.Enqueue], and drained
// from animation-frame callbacks requested through the [Host]. Each drain
// episode runs tasks until the queue is empty or the budget is exhausted, in
// which case the remainder is deferred to the next frame.
//
// Window events are dispatched on [Scheduler.Window]. Scroll events invalidate
// the client snapshot only when the queue is empty; resize and orientation
// events are debounced. Invalidation is itself a queued task, and at most one
// is ever pending. When it runs, it re-measures the [Viewport] and enqueues one
// invocation per subscriber, so notification is subject to the same ordering
// and budget as any other work.
//
// # Reads and Writes
//
// Subscribers should only read geometry. Mutations must be deferred with
// [Scheduler.Enqueue], which places them after every read queued by the same
// notify pass. A subscriber that reads geometry already invalidated by an
// earlier subscriber's write sees the stale value until the next invalidation.
//
// # Proximity
//
// [InRange] decides whether a [Rect] lies within a margin of the viewport,
// expressed in viewport heights (or widths). Zero means "intersecting",
// positive values extend the range past the edges, and negative values
// require the element to be well inside. See the lazy package for the
// edge-triggered resource registries built on it.
//
// # Thread Safety
//
// None. A Scheduler must only be used from the goroutine that runs its
// [Host], e.g. the go-eventloop goroutine backing host.Loop.
//
// # Usage
//
//	sched, err := viewport.New(h, page, viewport.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	sched.Subscribe(func(c viewport.Client) {
//	    visible := viewport.InRange(el.Rect(), c, 0)
//	    sched.Enqueue(func() { el.SetVisible(visible) })
//	}, false)
//	sched.Start()
package viewport
