package viewport

// Task is a unit of work executed by a [Scheduler]. Arguments are bound by
// closure, see also [EnqueueWith].
type Task func()

type taskKind uint8

const (
	kindTask taskKind = iota
	kindInvalidate
)

type queuedTask struct {
	fn   Task
	kind taskKind
}

// taskQueue is an unbounded FIFO, backed by a power of 2 ring that doubles
// when full.
type taskQueue struct {
	s    []queuedTask
	r, w uint
}

const minQueueSize = 16

func (x *taskQueue) mask(val uint) uint {
	return val & (uint(len(x.s)) - 1)
}

func (x *taskQueue) Len() int {
	return int(x.w - x.r)
}

func (x *taskQueue) Push(t queuedTask) {
	if x.Len() == len(x.s) {
		x.grow()
	}
	x.s[x.mask(x.w)] = t
	x.w++
}

// Shift removes and returns the head. It panics if the queue is empty.
func (x *taskQueue) Shift() queuedTask {
	if x.r == x.w {
		panic(`viewport: queue: shift: empty`)
	}
	i := x.mask(x.r)
	t := x.s[i]
	x.s[i] = queuedTask{} // release the closure
	x.r++
	return t
}

func (x *taskQueue) grow() {
	size := len(x.s) * 2
	if size < minQueueSize {
		size = minQueueSize
	}
	s := make([]queuedTask, size)
	l := x.Len()
	for i := 0; i < l; i++ {
		s[i] = x.s[x.mask(x.r+uint(i))]
	}
	x.s = s
	x.r = 0
	x.w = uint(l)
}
