// Package host provides implementations of [viewport.Host].
//
// [Virtual] is deterministic: frames and timers only run when the caller
// steps it, and its clock only moves when advanced. It backs tests and the
// simulator.
//
// [Loop] runs on a [github.com/joeycumines/go-eventloop] Loop. Frames and
// timeouts are the loop's JS timers, so their callbacks run on the loop
// goroutine, which is the only goroutine that may touch the scheduler.
// [Loop.Pump] feeds window events received from other goroutines onto the
// loop, in batches.
package host
