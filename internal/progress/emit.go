// Package progress throttles progress delivery to a caller's sink so
// million-item loops cannot flood it.
package progress

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/foldermatch/foldermatch/internal/types"
)

// Emitter pushes reports to a sink from worker goroutines. Routine reports
// are rate-limited; phase transitions and terminal reports bypass the
// limiter so they are never dropped.
type Emitter struct {
	sink    types.ProgressSink
	limiter *rate.Limiter
}

// NewEmitter wraps a sink. A nil sink yields an emitter whose methods are
// no-ops, so callers never branch.
func NewEmitter(sink types.ProgressSink) *Emitter {
	return &Emitter{
		sink:    sink,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
}

// Emit delivers a routine report, subject to rate limiting.
func (e *Emitter) Emit(p types.Progress) {
	if e.sink == nil {
		return
	}
	if !e.limiter.Allow() {
		return
	}
	e.sink(p)
}

// Force delivers unconditionally; used for phase changes, completion,
// cancellation, and errors.
func (e *Emitter) Force(p types.Progress) {
	if e.sink == nil {
		return
	}
	e.sink(p)
}
