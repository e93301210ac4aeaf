package viewport

import (
	"time"
)

// log categories, for rate limiting
const (
	logCategoryYield = `yield`
	logCategoryPanic = `panic`
)

// logYield reports a drain episode that ran out of budget. These occur up to
// once per frame under load, hence the rate limit.
func (s *Scheduler) logYield(ran int) {
	if b := s.logger.Debug(); b.Enabled() {
		if _, ok := s.logLimiter.Allow(logCategoryYield); !ok {
			b.Release()
			return
		}
		b.Int(`ran`, ran).
			Int(`pending`, s.queue.Len()).
			Uint64(`episode`, s.stats.Episodes).
			Log(`budget exhausted, yielding to next frame`)
	}
}

func (s *Scheduler) logPanic(err *PanicError) {
	if b := s.logger.Err(); b.Enabled() {
		if _, ok := s.logLimiter.Allow(logCategoryPanic); !ok {
			b.Release()
			return
		}
		b.Err(err).
			Uint64(`episode`, s.stats.Episodes).
			Log(`recovered panic in task`)
	}
}

func (s *Scheduler) logInvalidate(hasChanged bool, width, height float64, elapsed time.Duration) {
	if b := s.logger.Trace(); b.Enabled() {
		b.Bool(`changed`, hasChanged).
			Float64(`width`, width).
			Float64(`height`, height).
			Int(`subscribers`, s.subscribers.len()).
			Dur(`elapsed`, elapsed).
			Log(`client invalidated`)
	}
}
