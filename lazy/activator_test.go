package lazy

import (
	"testing"

	"github.com/joeycumines/go-viewport"
	"github.com/joeycumines/go-viewport/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPage is a 100x100 viewport, scrolled vertically
type testPage struct {
	scroll float64
}

func (x *testPage) ContainingBlock() (float64, float64) { return 100, 100 }
func (x *testPage) FixedHeight() float64               { return 100 }

// element returns an element of the given document position and size
func (x *testPage) element(top, height float64) Element {
	return ElementFunc(func() viewport.Rect {
		return viewport.NewRect(0, top-x.scroll, 100, height)
	})
}

// scrollTo must be followed by a settle
func (x *testPage) scrollTo(s *viewport.Scheduler, y float64) {
	x.scroll = y
	s.Window().DispatchEvent(&viewport.Event{Type: viewport.EventScroll})
}

func newTestScheduler(t *testing.T, opts ...viewport.Option) (*viewport.Scheduler, *host.Virtual, *testPage) {
	t.Helper()
	v := host.NewVirtual()
	page := new(testPage)
	s, err := viewport.New(v, page, append([]viewport.Option{viewport.WithClock(v)}, opts...)...)
	require.NoError(t, err)
	return s, v, page
}

type testHandle struct {
	rect        viewport.Rect
	activated   int
	deactivated int
	skip        bool
}

func (x *testHandle) Rect() viewport.Rect { return x.rect }

func newTestActivator(s *viewport.Scheduler) *Activator[*testHandle] {
	return NewActivator(s, ActivatorConfig[*testHandle]{
		Activate:   func(h *testHandle) { h.activated++ },
		Deactivate: func(h *testHandle) { h.deactivated++ },
		Skip:       func(h *testHandle) bool { return h.skip },
		Kind:       `test`,
	})
}

func TestNewActivator_panics(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	fn := func(*testHandle) {}
	assert.Panics(t, func() { NewActivator(nil, ActivatorConfig[*testHandle]{Activate: fn, Deactivate: fn}) })
	assert.Panics(t, func() { NewActivator(s, ActivatorConfig[*testHandle]{Deactivate: fn}) })
	assert.Panics(t, func() { NewActivator(s, ActivatorConfig[*testHandle]{Activate: fn}) })
}

func TestActivator_edgeTriggered(t *testing.T) {
	s, v, _ := newTestScheduler(t)
	a := newTestActivator(s)
	s.Start()

	h := &testHandle{rect: viewport.NewRect(0, 10, 10, 10)}
	a.Add(h)
	a.Add(h)
	assert.Equal(t, 1, a.Len())
	v.Settle(100)
	assert.Equal(t, 1, h.activated)
	assert.True(t, a.Active(h))

	// repeated notifies with the same result do nothing
	for i := 0; i < 3; i++ {
		s.InvalidateClient()
		v.Settle(100)
	}
	assert.Equal(t, 1, h.activated)
	assert.Zero(t, h.deactivated)

	h.rect = viewport.NewRect(0, 500, 10, 10)
	s.InvalidateClient()
	v.Settle(100)
	s.InvalidateClient()
	v.Settle(100)
	assert.Equal(t, 1, h.deactivated)
	assert.False(t, a.Active(h))

	h.rect = viewport.NewRect(0, 50, 10, 10)
	s.InvalidateClient()
	v.Settle(100)
	assert.Equal(t, 2, h.activated)
}

func TestActivator_Remove(t *testing.T) {
	s, v, _ := newTestScheduler(t, viewport.WithTickBudget(1))
	a := newTestActivator(s)
	h := &testHandle{rect: viewport.NewRect(0, 10, 10, 10)}
	a.Add(h)
	s.Start()

	// invalidation, then the subscriber, which enqueues the transition
	v.Frame()
	v.Frame()
	require.Equal(t, 1, s.Pending())

	assert.True(t, a.Remove(h))
	assert.False(t, a.Remove(h))
	assert.Zero(t, a.Len())
	assert.False(t, a.Active(h))

	v.Settle(100)
	assert.Zero(t, h.activated)
}

func TestActivator_Skip(t *testing.T) {
	s, v, _ := newTestScheduler(t)
	a := newTestActivator(s)
	s.Start()

	h := &testHandle{rect: viewport.NewRect(0, 10, 10, 10), skip: true}
	a.Add(h)
	v.Settle(100)
	assert.Zero(t, h.activated)
	assert.False(t, a.Active(h))

	h.skip = false
	s.InvalidateClient()
	v.Settle(100)
	assert.Equal(t, 1, h.activated)

	// the recorded value is frozen while skipped
	h.skip = true
	h.rect = viewport.NewRect(0, 500, 10, 10)
	s.InvalidateClient()
	v.Settle(100)
	assert.Zero(t, h.deactivated)
	assert.True(t, a.Active(h))
}

func TestActivator_Close(t *testing.T) {
	s, v, _ := newTestScheduler(t)
	a := newTestActivator(s)
	s.Start()
	v.Settle(100)

	a.Close()
	a.Close()
	h := &testHandle{rect: viewport.NewRect(0, 10, 10, 10)}
	a.Add(h)
	v.Settle(100)
	assert.Zero(t, h.activated)
}

func TestActivator_order(t *testing.T) {
	s, v, _ := newTestScheduler(t)
	var order []int
	type indexed struct {
		testHandle
		i int
	}
	a := NewActivator(s, ActivatorConfig[*indexed]{
		Activate:   func(h *indexed) { order = append(order, h.i) },
		Deactivate: func(*indexed) {},
	})
	for i := 0; i < 5; i++ {
		a.Add(&indexed{testHandle: testHandle{rect: viewport.NewRect(0, float64(i), 10, 10)}, i: i})
	}
	s.Start()
	v.Settle(100)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
