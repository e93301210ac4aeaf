package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-viewport"
	"github.com/joeycumines/go-viewport/host"
	"github.com/joeycumines/go-viewport/internal/fetchbatch"
	"github.com/joeycumines/go-viewport/lazy"
	"github.com/joeycumines/logiface"
)

// ErrNotSettled is returned if a step leaves work pending after the maximum
// number of virtual frames.
var ErrNotSettled = errors.New(`sim: scenario did not settle`)

// driver runs the scheduler on a particular host.
type driver interface {
	host() viewport.Host
	clock() viewport.Clock
	// do runs fn on the scheduler goroutine, and waits for it
	do(ctx context.Context, fn func()) error
	// wait lets d of host time pass
	wait(ctx context.Context, d time.Duration) error
	// settle runs the host until quiet reports true
	settle(ctx context.Context, quiet func() bool) error
	// fetcher returns the image fetcher, and the dispatch func for its
	// completions, if they arrive off the scheduler goroutine
	fetcher(latency time.Duration, fails func(src string) bool) (lazy.Fetcher, func(fn func()) error)
	// events returns the func used to deliver window events to target,
	// which must be called on the scheduler goroutine
	events(target *viewport.EventTarget) func(event viewport.Event)
	close() error
}

func newDriver(name string, logger *logiface.Logger[logiface.Event], maxFrames int) (driver, error) {
	switch name {
	case ``, HostVirtual:
		return &virtualDriver{v: host.NewVirtual(), maxFrames: maxFrames}, nil
	case HostLoop:
		return newLoopDriver(logger)
	default:
		return nil, fmt.Errorf("sim: unknown host %q", name)
	}
}

type virtualDriver struct {
	v         *host.Virtual
	maxFrames int
}

func (x *virtualDriver) host() viewport.Host   { return x.v }
func (x *virtualDriver) clock() viewport.Clock { return x.v }

func (x *virtualDriver) do(_ context.Context, fn func()) error {
	fn()
	return nil
}

func (x *virtualDriver) wait(_ context.Context, d time.Duration) error {
	x.v.Advance(d)
	return nil
}

func (x *virtualDriver) settle(_ context.Context, quiet func() bool) error {
	x.v.RunUntilIdle(x.maxFrames)
	if x.v.PendingFrames() != 0 || x.v.PendingTimers() != 0 || !quiet() {
		return ErrNotSettled
	}
	return nil
}

func (x *virtualDriver) fetcher(latency time.Duration, fails func(src string) bool) (lazy.Fetcher, func(fn func()) error) {
	return lazy.FetcherFunc(func(src string, done func(err error)) {
		x.v.SetTimeout(func() {
			if fails(src) {
				done(fmt.Errorf("fetch %s: %w", src, errFetchFailed))
				return
			}
			done(nil)
		}, latency)
	}), nil
}

func (x *virtualDriver) events(target *viewport.EventTarget) func(event viewport.Event) {
	return func(event viewport.Event) { target.DispatchEvent(&event) }
}

func (x *virtualDriver) close() error { return nil }

var errFetchFailed = errors.New(`simulated failure`)

// loopDriver runs the scheduler on a real event loop. Window events are
// sent to a [host.Loop.Pump] goroutine, like events from a UI thread.
type loopDriver struct {
	loop    *eventloop.Loop
	h       *host.Loop
	logger  *logiface.Logger[logiface.Event]
	batcher *fetchbatch.Fetcher
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	pumpCh  chan viewport.Event
	pumped  chan struct{}
	// sent and delivered count window events, on the loop goroutine
	sent      int
	delivered int
}

func newLoopDriver(logger *logiface.Logger[logiface.Event]) (*loopDriver, error) {
	loop, err := eventloop.New()
	if err != nil {
		return nil, fmt.Errorf("sim: failed to create event loop: %w", err)
	}
	h, err := host.NewLoop(loop, &host.LoopConfig{Logger: logger})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	x := &loopDriver{
		loop:   loop,
		h:      h,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(x.done)
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Err().Err(err).Log(`sim: event loop failed`)
		}
	}()
	return x, nil
}

func (x *loopDriver) host() viewport.Host   { return x.h }
func (x *loopDriver) clock() viewport.Clock { return x.h.Clock() }

func (x *loopDriver) do(ctx context.Context, fn func()) error {
	ch := make(chan struct{})
	if err := x.h.Do(func() {
		defer close(ch)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

func (x *loopDriver) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// settle polls, once per frame, until quiet holds for a few consecutive
// frames.
func (x *loopDriver) settle(ctx context.Context, quiet func() bool) error {
	const want = 3
	ticker := time.NewTicker(host.DefaultFrameInterval)
	defer ticker.Stop()
	for n := 0; n < want; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		var ok bool
		if err := x.do(ctx, func() { ok = x.sent == x.delivered && quiet() }); err != nil {
			return err
		}
		if ok {
			n++
		} else {
			n = 0
		}
	}
	return nil
}

func (x *loopDriver) fetcher(latency time.Duration, fails func(src string) bool) (lazy.Fetcher, func(fn func()) error) {
	x.batcher = fetchbatch.New(x.h, &fetchbatch.Config{Logger: x.logger}, func(ctx context.Context, requests []*fetchbatch.Request) error {
		if latency > 0 {
			timer := time.NewTimer(latency)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
		for _, req := range requests {
			if fails(req.Src) {
				req.Err = fmt.Errorf("fetch %s: %w", req.Src, errFetchFailed)
				continue
			}
			req.Data = []byte(req.Src)
		}
		return nil
	})
	return x.batcher, x.h.Do
}

func (x *loopDriver) events(target *viewport.EventTarget) func(event viewport.Event) {
	if x.pumpCh != nil {
		panic(`sim: events already started`)
	}
	x.pumpCh = make(chan viewport.Event, 16)
	x.pumped = make(chan struct{})
	go func() {
		defer close(x.pumped)
		err := x.h.Pump(x.ctx, &host.PumpConfig{
			OnDispatch: func(received int) { x.delivered += received },
		}, x.pumpCh, target)
		if err != nil && !errors.Is(err, context.Canceled) {
			x.logger.Err().Err(err).Log(`sim: event pump failed`)
		}
	}()
	return func(event viewport.Event) {
		x.sent++
		x.pumpCh <- event
	}
}

func (x *loopDriver) close() error {
	if x.batcher != nil {
		_ = x.do(context.Background(), x.batcher.Stop)
		_ = x.batcher.Close()
	}
	if x.pumpCh != nil {
		close(x.pumpCh)
		<-x.pumped
	}
	err := x.h.Close()
	if errors.Is(err, host.ErrHostClosed) {
		err = nil
	}
	x.cancel()
	<-x.done
	return err
}
