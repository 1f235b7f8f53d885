package rpl

import (
	"math/rand/v2"
	"time"
)

// Timer abstracts scheduled callbacks so the engine stays single-threaded
// and testable (spec.md section 5, "Concurrency & Resource Model": "the
// core assumes a single-threaded, cooperative execution model"). Real
// deployments back it with a runtime scheduler; tests back it with a
// fake that fires on demand.
type Timer interface {
	// After schedules fn to run once after d elapses and returns a
	// handle that cancels it.
	After(d time.Duration, fn func()) (cancel func())
}

// RuntimeTimer is the production [Timer], backed directly by
// [time.AfterFunc]. It schedules fn to run on its own goroutine exactly
// as time.AfterFunc does; callers relying on the single-threaded model
// (spec.md section 5) must re-enter the Engine's goroutine themselves,
// e.g. by handing the firing off to a channel the main loop selects on.
type RuntimeTimer struct{}

// After implements the [Timer] interface for RuntimeTimer.
func (RuntimeTimer) After(d time.Duration, fn func()) (cancel func()) {
	t := time.AfterFunc(d, fn)

	return func() { t.Stop() }
}

// Jitter returns a duration drawn uniformly from [lo, hi), matching the
// DIO trickle-timer and DAO-retransmission randomization called for in
// spec.md sections 4.4 and 4.7. It returns lo unchanged when hi <= lo.
func Jitter(lo, hi time.Duration) (d time.Duration) {
	if hi <= lo {
		return lo
	}

	return lo + time.Duration(rand.Int64N(int64(hi-lo)))
}
