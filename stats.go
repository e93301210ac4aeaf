package viewport

// Stats are counters describing a Scheduler's activity since creation.
type Stats struct {
	// Episodes is the number of drain episodes (frame callbacks) run.
	Episodes uint64

	// Yields is the number of episodes that exhausted the budget with work
	// remaining.
	Yields uint64

	// TasksRun is the number of tasks executed, including invalidation and
	// subscriber tasks.
	TasksRun uint64

	// Panics is the number of tasks that panicked.
	Panics uint64

	// Invalidations is the number of invalidation tasks executed.
	Invalidations uint64

	// Notifications is the number of subscriber invocations enqueued.
	Notifications uint64

	// MaxPending is the high-water mark of the task queue.
	MaxPending int

	// Pending is the number of tasks queued at the time of the call.
	Pending int

	// ResizePending is true if a debounced resize invalidation is waiting,
	// at the time of the call.
	ResizePending bool
}
