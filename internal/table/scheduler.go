package table

import "time"

// Scheduler abstracts the deferred-work primitive Table session uses for
// the bot-tick and round-transition timers, so tests can substitute a
// synchronous or manually-driven implementation instead of waiting on a
// real clock.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// realScheduler is the production Scheduler: a thin wrapper over
// time.AfterFunc. Every fired callback re-validates state itself (see
// Table.tickBot and Table.performRoundTransition), so a stray fire against
// stale state is always a safe no-op rather than a correctness hazard.
type realScheduler struct{}

// NewRealScheduler returns the time.AfterFunc-backed Scheduler.
func NewRealScheduler() Scheduler { return realScheduler{} }

func (realScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
