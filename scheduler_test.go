package viewport_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/go-viewport"
	"github.com/joeycumines/go-viewport/host"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPage struct {
	width, height, fixed float64
	measured             int
}

func (x *testPage) ContainingBlock() (float64, float64) {
	x.measured++
	return x.width, x.height
}

func (x *testPage) FixedHeight() float64 { return x.fixed }

func newTestScheduler(t *testing.T, opts ...viewport.Option) (*viewport.Scheduler, *host.Virtual, *testPage) {
	t.Helper()
	v := host.NewVirtual()
	page := &testPage{width: 800, height: 600, fixed: 560}
	s, err := viewport.New(v, page, append([]viewport.Option{viewport.WithClock(v)}, opts...)...)
	require.NoError(t, err)
	return s, v, page
}

// startIdle starts s, and runs it until idle
func startIdle(t *testing.T, s *viewport.Scheduler, v *host.Virtual) {
	t.Helper()
	s.Start()
	v.Settle(100)
	require.Equal(t, viewport.StateIdle, s.State())
	require.Zero(t, s.Pending())
}

func TestNew_errors(t *testing.T) {
	page := &testPage{}
	v := host.NewVirtual()

	_, err := viewport.New(nil, page)
	assert.ErrorIs(t, err, viewport.ErrNilHost)

	_, err = viewport.New(v, nil)
	assert.ErrorIs(t, err, viewport.ErrNilViewport)

	for _, tc := range [...]struct {
		option viewport.Option
		name   string
	}{
		{viewport.WithBudget(nil), `WithBudget`},
		{viewport.WithTimeBudget(0), `WithTimeBudget`},
		{viewport.WithTickBudget(-1), `WithTickBudget`},
		{viewport.WithClock(nil), `WithClock`},
		{viewport.WithLogRateLimits(nil), `WithLogRateLimits`},
		{viewport.WithResizeDebounce(-time.Second), `WithResizeDebounce`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := viewport.New(v, page, tc.option)
			assert.Nil(t, s)
			var optErr *viewport.OptionError
			require.ErrorAs(t, err, &optErr)
			assert.Equal(t, tc.name, optErr.Option)
			assert.Contains(t, err.Error(), tc.name)
		})
	}
}

func TestScheduler_stateTransitions(t *testing.T) {
	s, v, _ := newTestScheduler(t)

	var ran bool
	s.Enqueue(func() { ran = true })
	assert.Equal(t, viewport.StateIdle, s.State())
	assert.Zero(t, v.PendingFrames(), `no frame before Start`)
	assert.Equal(t, 1, s.Pending())

	s.Start()
	assert.Equal(t, viewport.StateDraining, s.State())
	assert.Equal(t, 1, v.PendingFrames())
	assert.Equal(t, 2, s.Pending())

	// idempotent
	s.Start()
	assert.Equal(t, 1, v.PendingFrames())
	assert.Equal(t, 2, s.Pending())

	// a second enqueue while draining does not request another frame
	s.Enqueue(func() {})
	assert.Equal(t, 1, v.PendingFrames())

	v.Frame()
	assert.True(t, ran)
	assert.Equal(t, viewport.StateIdle, s.State())
	assert.Zero(t, v.PendingFrames())
	assert.Equal(t, `Idle`, s.State().String())
	assert.Equal(t, `Draining`, viewport.StateDraining.String())
}

func TestScheduler_fifo(t *testing.T) {
	s, v, _ := newTestScheduler(t)
	startIdle(t, s, v)

	const n = 200
	var out []int
	for i := 0; i < n; i++ {
		viewport.EnqueueWith(s, func(i int) { out = append(out, i) }, i)
	}
	s.Enqueue(nil)
	assert.Equal(t, n, s.Pending())

	v.Settle(100)
	require.Len(t, out, n)
	for i, got := range out {
		require.Equal(t, i, got)
	}
}

func TestScheduler_tickBudget(t *testing.T) {
	const k, n = 3, 8
	s, v, _ := newTestScheduler(t, viewport.WithTickBudget(k))
	startIdle(t, s, v)
	base := s.Stats()

	var out []int
	for i := 0; i < n; i++ {
		viewport.EnqueueWith(s, func(i int) { out = append(out, i) }, i)
	}

	v.Frame()
	assert.Equal(t, []int{0, 1, 2}, out)
	assert.Equal(t, viewport.StateDraining, s.State())
	assert.Equal(t, 1, v.PendingFrames())

	v.Frame()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, out)

	v.Frame()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, out)
	assert.Equal(t, viewport.StateIdle, s.State())
	assert.Zero(t, v.PendingFrames())

	stats := s.Stats()
	assert.Equal(t, base.Episodes+3, stats.Episodes)
	assert.Equal(t, base.Yields+2, stats.Yields)
	assert.Equal(t, base.TasksRun+n, stats.TasksRun)
	assert.Equal(t, n, stats.MaxPending)
}

type fakeClock struct{ now time.Duration }

func (x *fakeClock) Now() time.Duration { return x.now }

func TestScheduler_timeBudget(t *testing.T) {
	v := host.NewVirtual()
	clock := new(fakeClock)
	s, err := viewport.New(v, &testPage{width: 1, height: 1}, viewport.WithClock(clock), viewport.WithTimeBudget(10*time.Millisecond))
	require.NoError(t, err)
	startIdle(t, s, v)

	var ran int
	for i := 0; i < 5; i++ {
		s.Enqueue(func() {
			ran++
			clock.now += 4 * time.Millisecond
		})
	}

	// 0, 4, 8 are under budget, 12 is not
	v.Frame()
	assert.Equal(t, 3, ran)
	v.Frame()
	assert.Equal(t, 5, ran)
	assert.Equal(t, viewport.StateIdle, s.State())
}

func TestScheduler_subscribe(t *testing.T) {
	s, v, page := newTestScheduler(t)

	var always, changed []viewport.Client
	s.Subscribe(func(c viewport.Client) { changed = append(changed, c) }, true)
	s.Subscribe(func(c viewport.Client) { always = append(always, c) }, false)
	assert.Zero(t, s.Subscribe(nil, false))

	// forced on start
	startIdle(t, s, v)
	want := viewport.Client{Width: 800, Height: 600, FixedHeight: 560, HasChanged: true}
	assert.Equal(t, []viewport.Client{want}, changed)
	assert.Equal(t, []viewport.Client{want}, always)

	// unchanged, but the fixed height is read live
	page.fixed = 500
	s.InvalidateClient()
	v.Settle(100)
	assert.Len(t, changed, 1)
	require.Len(t, always, 2)
	assert.Equal(t, viewport.Client{Width: 800, Height: 600, FixedHeight: 500}, always[1])

	page.width = 400
	s.InvalidateClient()
	v.Settle(100)
	want = viewport.Client{Width: 400, Height: 600, FixedHeight: 500, HasChanged: true}
	require.Len(t, changed, 2)
	assert.Equal(t, want, changed[1])
	require.Len(t, always, 3)
	assert.Equal(t, want, always[2])

	stats := s.Stats()
	assert.Equal(t, uint64(3), stats.Invalidations)
	assert.Equal(t, uint64(5), stats.Notifications)
}

func TestScheduler_readsBeforeWrites(t *testing.T) {
	s, v, _ := newTestScheduler(t)

	var log []string
	s.Subscribe(func(viewport.Client) {
		log = append(log, `read a`)
		s.Enqueue(func() { log = append(log, `write a`) })
	}, false)
	s.Subscribe(func(viewport.Client) {
		log = append(log, `read b`)
		s.Enqueue(func() { log = append(log, `write b`) })
	}, false)

	startIdle(t, s, v)
	assert.Equal(t, []string{`read a`, `read b`, `write a`, `write b`}, log)
}

func TestScheduler_invalidateDedupe(t *testing.T) {
	s, v, page := newTestScheduler(t)
	startIdle(t, s, v)
	measured := page.measured

	s.InvalidateClient()
	s.InvalidateClient()
	assert.Equal(t, 1, s.Pending())

	// still pending, even behind other work
	s.Enqueue(func() {})
	s.InvalidateClient()
	assert.Equal(t, 2, s.Pending())

	v.Settle(100)
	assert.Equal(t, measured+1, page.measured)

	// once run, a new invalidation may be queued
	s.InvalidateClient()
	assert.Equal(t, 1, s.Pending())
	v.Settle(100)
	assert.Equal(t, measured+2, page.measured)
}

func TestScheduler_invalidateDuringNotify(t *testing.T) {
	s, v, page := newTestScheduler(t)

	var calls int
	s.Subscribe(func(viewport.Client) {
		calls++
		if calls == 1 {
			s.InvalidateClient()
		}
	}, false)

	startIdle(t, s, v)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, page.measured)
}

func TestScheduler_unsubscribe(t *testing.T) {
	s, v, _ := newTestScheduler(t, viewport.WithTickBudget(1))

	var calls int
	id := s.Subscribe(func(viewport.Client) { calls++ }, false)
	startIdle(t, s, v)
	require.Equal(t, 1, calls)

	// run only the invalidation, leaving the invocation queued
	s.InvalidateClient()
	v.Frame()
	require.Equal(t, 1, s.Pending())

	assert.True(t, s.Unsubscribe(id))
	assert.False(t, s.Unsubscribe(id))
	assert.False(t, s.Unsubscribe(0))

	v.Settle(100)
	assert.Equal(t, 2, calls, `already queued invocation still runs`)

	s.InvalidateClient()
	v.Settle(100)
	assert.Equal(t, 2, calls)
}

func TestScheduler_scroll(t *testing.T) {
	s, v, page := newTestScheduler(t)
	startIdle(t, s, v)
	measured := page.measured

	s.Window().DispatchEvent(&viewport.Event{Type: viewport.EventScroll})
	assert.Equal(t, 1, s.Pending())
	v.Settle(100)
	assert.Equal(t, measured+1, page.measured)

	// rides along with pending work
	s.Enqueue(func() {})
	s.Window().DispatchEvent(&viewport.Event{Type: viewport.EventScroll})
	assert.Equal(t, 1, s.Pending())
	v.Settle(100)
	assert.Equal(t, measured+1, page.measured)
}

func TestScheduler_resizeDebounce(t *testing.T) {
	for _, eventType := range []viewport.EventType{viewport.EventResize, viewport.EventOrientationChange} {
		t.Run(string(eventType), func(t *testing.T) {
			s, v, page := newTestScheduler(t)
			startIdle(t, s, v)
			measured := page.measured

			for i := 0; i < 5; i++ {
				s.Window().DispatchEvent(&viewport.Event{Type: eventType})
				v.Advance(30 * time.Millisecond)
			}
			assert.Zero(t, s.Pending())
			assert.True(t, s.Stats().ResizePending)
			assert.Equal(t, 1, v.PendingTimers())

			v.Advance(20 * time.Millisecond)
			assert.Equal(t, 1, s.Pending())
			assert.False(t, s.Stats().ResizePending)

			v.Settle(100)
			assert.Equal(t, measured+1, page.measured)
		})
	}
}

func TestScheduler_resizeDebounceOption(t *testing.T) {
	s, v, _ := newTestScheduler(t, viewport.WithResizeDebounce(time.Second))
	startIdle(t, s, v)

	s.Window().DispatchEvent(&viewport.Event{Type: viewport.EventResize})
	v.Advance(999 * time.Millisecond)
	assert.Zero(t, s.Pending())
	v.Advance(time.Millisecond)
	assert.Equal(t, 1, s.Pending())
}

func TestScheduler_Stop(t *testing.T) {
	s, v, _ := newTestScheduler(t)
	startIdle(t, s, v)
	require.True(t, s.Window().HasEventListeners(viewport.EventScroll))

	s.Window().DispatchEvent(&viewport.Event{Type: viewport.EventResize})
	require.Equal(t, 1, v.PendingTimers())

	s.Stop()
	s.Stop()
	assert.Zero(t, v.PendingTimers())
	for _, eventType := range []viewport.EventType{viewport.EventScroll, viewport.EventResize, viewport.EventOrientationChange} {
		assert.False(t, s.Window().HasEventListeners(eventType), eventType)
	}

	s.Window().DispatchEvent(&viewport.Event{Type: viewport.EventScroll})
	assert.Zero(t, s.Pending())

	s.Enqueue(func() {})
	assert.Equal(t, 1, s.Pending())
	assert.Zero(t, v.PendingFrames())

	// restart drains, with a forced invalidation
	s.Start()
	assert.Equal(t, 2, s.Pending())
	v.Settle(100)
	assert.Zero(t, s.Pending())
}

func TestScheduler_Stop_midDrain(t *testing.T) {
	s, v, _ := newTestScheduler(t, viewport.WithTickBudget(2))
	startIdle(t, s, v)
	base := s.Stats()

	var out []int
	for i := 0; i < 6; i++ {
		viewport.EnqueueWith(s, func(i int) { out = append(out, i) }, i)
	}
	v.Frame()
	require.Equal(t, []int{0, 1}, out)
	require.Equal(t, 1, v.PendingFrames())

	// the requested frame runs nothing, and requests no more
	s.Stop()
	v.Settle(100)
	assert.Equal(t, []int{0, 1}, out)
	assert.Equal(t, viewport.StateIdle, s.State())
	assert.Equal(t, 4, s.Pending())
	assert.Zero(t, v.PendingFrames())
	assert.Equal(t, base.Episodes+1, s.Stats().Episodes)

	s.Start()
	v.Settle(100)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, out)
	assert.Zero(t, s.Pending())
	assert.Equal(t, viewport.StateIdle, s.State())
}

func TestScheduler_Stop_fromTask(t *testing.T) {
	s, v, _ := newTestScheduler(t)
	startIdle(t, s, v)

	var out []string
	s.Enqueue(func() { out = append(out, `a`) })
	s.Enqueue(func() {
		out = append(out, `stop`)
		s.Stop()
	})
	s.Enqueue(func() { out = append(out, `b`) })
	v.Settle(100)
	assert.Equal(t, []string{`a`, `stop`}, out)
	assert.Equal(t, viewport.StateIdle, s.State())
	assert.Equal(t, 1, s.Pending())

	s.Start()
	v.Settle(100)
	assert.Equal(t, []string{`a`, `stop`, `b`}, out)
}

func TestScheduler_panic(t *testing.T) {
	var handled []error
	s, v, _ := newTestScheduler(t, viewport.WithPanicHandler(func(err error) { handled = append(handled, err) }))
	startIdle(t, s, v)

	errBoom := errors.New(`boom`)
	var ran bool
	s.Enqueue(func() { panic(errBoom) })
	s.Enqueue(func() { panic(`not an error`) })
	s.Enqueue(func() { ran = true })
	v.Settle(100)

	assert.True(t, ran)
	require.Len(t, handled, 2)
	var panicErr *viewport.PanicError
	require.ErrorAs(t, handled[0], &panicErr)
	assert.Equal(t, errBoom, panicErr.Value)
	assert.ErrorIs(t, handled[0], errBoom)
	require.ErrorAs(t, handled[1], &panicErr)
	assert.Nil(t, panicErr.Unwrap())
	assert.Equal(t, `viewport: task panicked: not an error`, panicErr.Error())
	assert.Equal(t, uint64(2), s.Stats().Panics)
}

func newTestLogger(buf *bytes.Buffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelTrace),
	).Logger()
}

func TestScheduler_logging(t *testing.T) {
	var buf bytes.Buffer
	s, v, _ := newTestScheduler(t,
		viewport.WithLogger(newTestLogger(&buf)),
		viewport.WithTickBudget(1),
		viewport.WithLogRateLimits(map[time.Duration]int{time.Hour: 1}),
	)
	s.Start()
	for i := 0; i < 4; i++ {
		s.Enqueue(func() {})
	}
	s.Enqueue(func() { panic(`first`) })
	s.Enqueue(func() { panic(`second`) })
	v.Settle(100)

	out := buf.String()
	assert.Contains(t, out, `"msg":"scheduler created"`)
	assert.Contains(t, out, `"budget":"ticks"`)
	assert.Contains(t, out, `"msg":"scheduler started"`)
	assert.Contains(t, out, `"msg":"client invalidated"`)
	assert.Equal(t, 1, strings.Count(out, `budget exhausted`), out)
	assert.Equal(t, 1, strings.Count(out, `recovered panic in task`), out)
	assert.Contains(t, out, `first`)
	assert.NotContains(t, out, `second`)
	assert.GreaterOrEqual(t, s.Stats().Yields, uint64(5))
}
