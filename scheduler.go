// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package viewport

import (
	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Scheduler batches viewport-reactive work into budgeted drain episodes,
// run from animation frames. See the package documentation for an overview.
//
// Instances must be created with [New], and are NOT safe for concurrent use.
type Scheduler struct {
	// Prevent copying
	_ [0]func()

	host         Host
	viewport     Viewport
	clock        Clock
	budget       Budget
	logger       *logiface.Logger[logiface.Event]
	logLimiter   *catrate.Limiter
	panicHandler func(err error)

	window    *EventTarget
	resize    *Debouncer
	listeners []boundListener

	queue       taskQueue
	subscribers subscriberRegistry
	cache       clientCache
	stats       Stats

	state   State
	started bool

	// at most one invalidation task may be queued, see invalidate
	invalidationPending bool
	forcePending        bool
}

type boundListener struct {
	eventType EventType
	id        ListenerID
}

// New creates a Scheduler, driven by host, measuring viewport. The budget
// strategy is selected once, here: see [DetectBudget].
//
// The returned Scheduler does nothing until [Scheduler.Start] is called,
// though tasks may be enqueued and subscribers registered beforehand.
func New(host Host, viewport Viewport, opts ...Option) (*Scheduler, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	if viewport == nil {
		return nil, ErrNilViewport
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		host:         host,
		viewport:     viewport,
		clock:        cfg.clock,
		budget:       cfg.budget(cfg.clock),
		logger:       cfg.logger,
		logLimiter:   cfg.logLimiter,
		panicHandler: cfg.panicHandler,
		window:       NewEventTarget(),
	}
	s.resize = NewDebouncer(host, cfg.resizeDebounce, s.InvalidateClient)

	if b := s.logger.Debug(); b.Enabled() {
		switch budget := s.budget.(type) {
		case *TimeBudget:
			b = b.Str(`budget`, `time`).Dur(`limit`, budget.Limit())
		case *TickBudget:
			b = b.Str(`budget`, `ticks`).Int(`limit`, budget.Limit())
		default:
			b = b.Str(`budget`, `custom`)
		}
		b.Log(`scheduler created`)
	}

	return s, nil
}

// Enqueue appends task to the tail of the queue. If the scheduler has been
// started, and no drain is pending, a frame is requested. A nil task is
// ignored.
func (s *Scheduler) Enqueue(task Task) {
	if task == nil {
		return
	}
	s.push(queuedTask{fn: task})
}

// EnqueueWith enqueues a call of fn with arg, see [Scheduler.Enqueue].
func EnqueueWith[A any](s *Scheduler, fn func(A), arg A) {
	if fn == nil {
		return
	}
	s.Enqueue(func() { fn(arg) })
}

// Subscribe registers fn to be invoked, as an ordinary task, on every notify
// pass. If ignoreUnchanged is true, it is only invoked when the client
// geometry has changed. A nil fn is ignored, and the zero ID returned.
func (s *Scheduler) Subscribe(fn Subscriber, ignoreUnchanged bool) SubscriptionID {
	return s.subscribers.add(fn, ignoreUnchanged)
}

// Unsubscribe removes a subscriber, returning true if it was registered.
// Invocations already queued by a previous notify pass will still run.
func (s *Scheduler) Unsubscribe(id SubscriptionID) bool {
	return s.subscribers.remove(id)
}

// InvalidateClient queues an invalidation task, which re-measures the
// viewport and notifies subscribers. It is a no-op if an invalidation task
// is already pending.
func (s *Scheduler) InvalidateClient() {
	s.invalidate(false)
}

// Start installs the window event listeners and queues an initial, forced
// invalidation. It is idempotent.
func (s *Scheduler) Start() {
	if s.started {
		return
	}
	s.started = true
	s.attach()
	s.invalidate(true)
	s.schedule()
	s.logger.Debug().Log(`scheduler started`)
}

// Stop removes the window event listeners and cancels any pending debounced
// invalidation. Draining halts: a task calling Stop is the last task of its
// episode, and a frame already requested runs nothing. Queued tasks are
// retained, and drained once Start is called again.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	s.started = false
	s.detach()
	s.resize.Cancel()
	s.logger.Debug().Int(`pending`, s.queue.Len()).Log(`scheduler stopped`)
}

// State returns the current state.
func (s *Scheduler) State() State {
	return s.state
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// Stats returns a copy of the scheduler's counters.
func (s *Scheduler) Stats() Stats {
	stats := s.stats
	stats.Pending = s.queue.Len()
	stats.ResizePending = s.resize.Pending()
	return stats
}

// Window returns the event target standing in for the browser window. The
// scheduler listens for [EventScroll], [EventResize] and
// [EventOrientationChange] while started.
func (s *Scheduler) Window() *EventTarget {
	return s.window
}

func (s *Scheduler) push(t queuedTask) {
	s.queue.Push(t)
	if n := s.queue.Len(); n > s.stats.MaxPending {
		s.stats.MaxPending = n
	}
	s.schedule()
}

// schedule requests a frame on the Idle → Draining transition.
func (s *Scheduler) schedule() {
	if s.started && s.state == StateIdle && s.queue.Len() != 0 {
		s.state = StateDraining
		s.host.RequestFrame(s.flush)
	}
}

// flush is a single drain episode.
func (s *Scheduler) flush() {
	if !s.started {
		// stopped with this frame pending, Start reschedules
		s.state = StateIdle
		return
	}

	s.stats.Episodes++
	s.budget.Reset()

	var ran int
	for s.started && s.queue.Len() != 0 && s.budget.Measure() {
		t := s.queue.Shift()
		if t.kind == kindInvalidate {
			s.invalidationPending = false
		}
		s.run(t.fn)
		ran++
	}
	s.stats.TasksRun += uint64(ran)

	if s.started && s.queue.Len() != 0 {
		s.stats.Yields++
		s.logYield(ran)
		s.host.RequestFrame(s.flush)
		return
	}

	s.state = StateIdle
}

func (s *Scheduler) run(fn Task) {
	defer func() {
		if r := recover(); r != nil {
			err := &PanicError{Value: r}
			s.stats.Panics++
			s.logPanic(err)
			if s.panicHandler != nil {
				s.panicHandler(err)
			}
		}
	}()
	fn()
}

func (s *Scheduler) invalidate(force bool) {
	if s.invalidationPending {
		s.forcePending = s.forcePending || force
		return
	}
	s.invalidationPending = true
	s.forcePending = force
	s.push(queuedTask{fn: s.refreshClient, kind: kindInvalidate})
}

// refreshClient is the body of every invalidation task.
func (s *Scheduler) refreshClient() {
	force := s.forcePending
	s.forcePending = false

	start := s.clock.Now()
	width, height := s.viewport.ContainingBlock()
	hasChanged := s.cache.update(width, height) || force
	s.stats.Invalidations++

	s.notifySubscribers(hasChanged)

	s.logInvalidate(hasChanged, width, height, s.clock.Now()-start)
}

// notifySubscribers builds the client snapshot, and enqueues an invocation
// per subscriber.
func (s *Scheduler) notifySubscribers(hasChanged bool) {
	client := s.cache.snapshot(s.viewport.FixedHeight(), hasChanged)
	for _, e := range s.subscribers.entries {
		if e.ignoreUnchanged && !hasChanged {
			continue
		}
		fn := e.fn
		s.stats.Notifications++
		s.push(queuedTask{fn: func() { fn(client) }})
	}
}
