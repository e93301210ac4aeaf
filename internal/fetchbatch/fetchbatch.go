// Package fetchbatch groups image fetches into small batches, reducing the
// number of round trips when many images scroll into range at once.
//
// Batches are collected on the scheduler goroutine, and flushed by a host
// timer, so a Fetcher shares its timing with the frames that trigger it.
// Each batch is then processed on its own goroutine.
package fetchbatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joeycumines/go-viewport"
	"github.com/joeycumines/logiface"
	"golang.org/x/sync/semaphore"
)

// ErrClosed is passed to the completion of fetches submitted after Stop or
// Close, and of batches that had not started processing before Close.
var ErrClosed = errors.New(`fetchbatch: closed`)

type (
	// Config models optional configuration, for New.
	Config struct {
		// Logger receives batch failures. Optional.
		Logger *logiface.Logger[logiface.Event]

		// MaxSize restricts the maximum number of requests per batch, if
		// positive.
		// **Defaults to 16, if 0, or Config is nil.**
		//
		// WARNING: New will panic if both MaxSize and FlushInterval are
		// disabled.
		MaxSize int

		// FlushInterval specifies the maximum duration before an incomplete
		// batch is passed to the Processor, if positive.
		// **Defaults to 20ms, if 0, or Config is nil.**
		FlushInterval time.Duration

		// MaxConcurrency specifies the maximum number of concurrent
		// Processor calls, if positive.
		// **Defaults to 2, if 0, or Config is nil.**
		MaxConcurrency int
	}

	// Processor fetches a batch of requests. Per-request failures should be
	// set on Request.Err. A returned error fails every request in the batch
	// that has no error of its own.
	Processor func(ctx context.Context, requests []*Request) error

	// Request is a single fetch.
	Request struct {
		// Err is the outcome, set by the Processor.
		Err error

		done func(err error)

		// Src is the source to fetch.
		Src string

		// Data is set by the Processor, and is informational only.
		Data []byte
	}

	// Fetcher batches fetches, passing them to a Processor. It implements
	// the lazy.Fetcher interface. Instances must be initialized using New.
	//
	// Fetch, Flush and Stop must be called on the goroutine that owns the
	// host, like the scheduler. Shutdown and Close may be called from any
	// goroutine.
	Fetcher struct {
		host          viewport.Host
		processor     Processor
		logger        *logiface.Logger[logiface.Event]
		sem           *semaphore.Weighted
		ctx           context.Context
		cancel        context.CancelFunc
		pending       []*Request
		mu            sync.Mutex
		wg            sync.WaitGroup
		maxSize       int
		flushInterval time.Duration
		timer         viewport.TimerID
		stopped       bool
		closing       bool
	}
)

// New initializes a new Fetcher, which flushes batches using the timers of
// host. The config may be nil. A panic will occur if host or processor is
// nil, or invalid config is provided.
//
// Stop then Shutdown or Close should be called when the Fetcher is no
// longer needed.
func New(host viewport.Host, config *Config, processor Processor) *Fetcher {
	if host == nil {
		panic(`fetchbatch: nil host`)
	}
	if processor == nil {
		panic(`fetchbatch: nil processor`)
	}

	x := Fetcher{
		host:          host,
		processor:     processor,
		maxSize:       16,
		flushInterval: time.Millisecond * 20,
	}
	maxConcurrency := 2

	if config != nil {
		x.logger = config.Logger
		if config.MaxSize != 0 {
			x.maxSize = config.MaxSize
		}
		if config.FlushInterval != 0 {
			x.flushInterval = config.FlushInterval
		}
		if config.MaxConcurrency != 0 {
			maxConcurrency = config.MaxConcurrency
		}
	}

	if x.flushInterval <= 0 && x.maxSize <= 0 {
		panic(`fetchbatch: one of MaxSize or FlushInterval must be specified`)
	}

	if maxConcurrency > 0 {
		x.sem = semaphore.NewWeighted(int64(maxConcurrency))
	}

	x.ctx, x.cancel = context.WithCancel(context.Background())

	return &x
}

// Fetch schedules a fetch of src. It never blocks: done is called exactly
// once, from a processing goroutine, after the batch containing the request
// has been processed. Fetches after Stop or Close are completed immediately,
// with ErrClosed.
func (x *Fetcher) Fetch(src string, done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	if x.stopped || x.ctx.Err() != nil {
		done(ErrClosed)
		return
	}
	x.pending = append(x.pending, &Request{Src: src, done: done})
	switch {
	case x.maxSize > 0 && len(x.pending) >= x.maxSize:
		x.Flush()
	case x.flushInterval > 0 && x.timer == 0:
		x.timer = x.host.SetTimeout(x.Flush, x.flushInterval)
	}
}

// Pending returns the number of requests waiting for their batch to be
// flushed.
func (x *Fetcher) Pending() int {
	return len(x.pending)
}

// Flush passes any pending requests to the Processor, as a batch, without
// waiting for the batch to fill.
func (x *Fetcher) Flush() {
	if x.timer != 0 {
		x.host.ClearTimeout(x.timer)
		x.timer = 0
	}
	if len(x.pending) == 0 {
		return
	}
	requests := x.pending
	x.pending = nil

	x.mu.Lock()
	if x.closing {
		x.mu.Unlock()
		complete(requests, ErrClosed)
		return
	}
	x.wg.Add(1)
	x.mu.Unlock()

	go x.process(requests)
}

// Stop flushes any pending requests, and prevents further fetches.
func (x *Fetcher) Stop() {
	if x.stopped {
		return
	}
	x.stopped = true
	x.Flush()
}

// Shutdown waits for all flushed batches to complete. If ctx is canceled
// first, the Fetcher is forcibly closed, and the context error returned.
// Requests still pending, i.e. not flushed by Stop, are failed with
// ErrClosed when their timer fires.
func (x *Fetcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		x.wg.Wait()
	}()
	select {
	case <-done:
		x.close()
		return nil
	case <-ctx.Done():
		_ = x.Close()
		return ctx.Err()
	}
}

// Close cancels all running batches, blocking until their completions have
// been called. Batches waiting for a concurrency slot are completed with
// ErrClosed.
func (x *Fetcher) Close() error {
	x.close()
	x.wg.Wait()
	return nil
}

func (x *Fetcher) close() {
	x.mu.Lock()
	x.closing = true
	x.mu.Unlock()
	x.cancel()
}

func (x *Fetcher) process(requests []*Request) {
	defer x.wg.Done()

	if x.sem != nil {
		if err := x.sem.Acquire(x.ctx, 1); err != nil {
			complete(requests, ErrClosed)
			return
		}
		defer x.sem.Release(1)
	}

	ctx, cancel := context.WithCancel(x.ctx)
	defer cancel()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf(`fetchbatch: panic in Processor: %v`, r)
		}
		if err != nil {
			x.logger.Warning().
				Err(err).
				Int(`size`, len(requests)).
				Log(`fetchbatch: batch failed`)
		}
		complete(requests, err)
	}()

	err = x.processor(ctx, requests)
}

// complete calls done for every request, using err for those without an
// error of their own. A nil err completes them with their own outcome.
func complete(requests []*Request, err error) {
	for _, req := range requests {
		if req.Err == nil {
			req.Err = err
		}
		req.done(req.Err)
	}
}
