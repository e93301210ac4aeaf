package viewport

// State represents whether a [Scheduler] has a drain episode requested or in
// progress.
//
// State Machine:
//
//	StateIdle → StateDraining       [Enqueue() after Start(), Start() with queued work]
//	StateDraining → StateDraining   [flush() yields with work remaining]
//	StateDraining → StateIdle       [flush() empties the queue, or runs after Stop()]
//
// Enqueue only requests a frame on the Idle → Draining transition, which is
// what prevents duplicate frame callbacks when tasks enqueue further tasks.
type State uint8

const (
	// StateIdle indicates the queue is empty (or the scheduler is not
	// started) and no frame is requested.
	StateIdle State = iota
	// StateDraining indicates a frame has been requested, or a drain episode
	// is currently running.
	StateDraining
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDraining:
		return "Draining"
	default:
		return "Unknown"
	}
}
