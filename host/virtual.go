package host

import (
	"container/heap"
	"time"

	"github.com/joeycumines/go-viewport"
)

// DefaultFrameInterval is the time between frames, at 60Hz.
const DefaultFrameInterval = time.Second / 60

// Virtual is a deterministic [viewport.Host], with a manually advanced
// clock. It also implements [viewport.Clock], reporting virtual time, which
// never advances during a frame, so budget detection always selects the
// tick budget.
//
// Virtual is not safe for concurrent use.
type Virtual struct {
	frames   []func()
	timers   timerHeap
	live     map[viewport.TimerID]*timer
	now      time.Duration
	interval time.Duration
	nextID   viewport.TimerID
	seq      uint64
	frame    uint64
}

// timer represents a scheduled callback
type timer struct {
	fn    func()
	when  time.Duration
	seq   uint64
	id    viewport.TimerID
	index int
}

// timerHeap is a min-heap of timers, ordered by deadline then scheduling
// order
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	x.index = -1
	return x
}

// NewVirtual returns a Virtual host at time zero, with frames every
// [DefaultFrameInterval].
func NewVirtual() *Virtual {
	return &Virtual{
		live:     make(map[viewport.TimerID]*timer),
		interval: DefaultFrameInterval,
	}
}

// RequestFrame implements [viewport.Host].
func (v *Virtual) RequestFrame(fn func()) {
	if fn != nil {
		v.frames = append(v.frames, fn)
	}
}

// SetTimeout implements [viewport.Host].
func (v *Virtual) SetTimeout(fn func(), delay time.Duration) viewport.TimerID {
	if delay < 0 {
		delay = 0
	}
	v.nextID++
	v.seq++
	t := &timer{fn: fn, when: v.now + delay, seq: v.seq, id: v.nextID}
	heap.Push(&v.timers, t)
	v.live[t.id] = t
	return t.id
}

// ClearTimeout implements [viewport.Host].
func (v *Virtual) ClearTimeout(id viewport.TimerID) {
	if t, ok := v.live[id]; ok {
		delete(v.live, id)
		heap.Remove(&v.timers, t.index)
	}
}

// Now implements [viewport.Clock].
func (v *Virtual) Now() time.Duration {
	return v.now
}

// FrameCount returns the number of frames run so far.
func (v *Virtual) FrameCount() uint64 {
	return v.frame
}

// PendingFrames returns the number of frame callbacks waiting for the next
// frame.
func (v *Virtual) PendingFrames() int {
	return len(v.frames)
}

// PendingTimers returns the number of timeouts not yet fired or cleared.
func (v *Virtual) PendingTimers() int {
	return len(v.live)
}

// Frame runs the callbacks requested before this call. Callbacks requested
// by those callbacks wait for the next frame. It returns the number run.
func (v *Virtual) Frame() int {
	frames := v.frames
	v.frames = nil
	v.frame++
	for _, fn := range frames {
		fn()
	}
	return len(frames)
}

// Advance moves the clock forward by d, firing due timers in deadline
// order, each with the clock set to its deadline.
func (v *Virtual) Advance(d time.Duration) {
	target := v.now + d
	for len(v.timers) != 0 && v.timers[0].when <= target {
		t := heap.Pop(&v.timers).(*timer)
		delete(v.live, t.id)
		v.now = t.when
		t.fn()
	}
	v.now = target
}

// Tick advances the clock by one frame interval, then runs a frame.
func (v *Virtual) Tick() int {
	v.Advance(v.interval)
	return v.Frame()
}

// Settle ticks until no frame callbacks are pending, or max frames have
// run, returning the number of frames run. Timers are fired as the clock
// advances, but pending timers alone do not keep it ticking.
func (v *Virtual) Settle(max int) int {
	var n int
	for n < max && len(v.frames) != 0 {
		v.Tick()
		n++
	}
	return n
}

// RunUntilIdle ticks until neither frame callbacks nor timers are pending,
// or max frames have run, returning the number of frames run.
func (v *Virtual) RunUntilIdle(max int) int {
	var n int
	for n < max && (len(v.frames) != 0 || len(v.live) != 0) {
		v.Tick()
		n++
	}
	return n
}
