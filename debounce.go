package viewport

import (
	"time"
)

// Debouncer delays calls to a function until a quiet period has elapsed
// since the most recent [Debouncer.Call]. It is driven by [Host] timers, and
// is not safe for concurrent use.
type Debouncer struct {
	host  Host
	fn    func()
	delay time.Duration
	timer TimerID
}

// NewDebouncer returns a Debouncer that calls fn, delay after the last call.
func NewDebouncer(host Host, delay time.Duration, fn func()) *Debouncer {
	if host == nil || fn == nil {
		panic(`viewport: debounce: nil host or fn`)
	}
	return &Debouncer{host: host, fn: fn, delay: delay}
}

// Call (re)starts the quiet period.
func (d *Debouncer) Call() {
	if d.timer != 0 {
		d.host.ClearTimeout(d.timer)
	}
	d.timer = d.host.SetTimeout(d.fire, d.delay)
}

// Cancel discards any pending call.
func (d *Debouncer) Cancel() {
	if d.timer != 0 {
		d.host.ClearTimeout(d.timer)
		d.timer = 0
	}
}

// Pending reports whether a call is waiting for the quiet period to elapse.
func (d *Debouncer) Pending() bool {
	return d.timer != 0
}

func (d *Debouncer) fire() {
	d.timer = 0
	d.fn()
}
