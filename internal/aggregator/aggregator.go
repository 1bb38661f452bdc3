// Package aggregator implements the Frame Aggregator of spec.md §4.3: a
// per-frame collector for N model results that emits the assembled
// FrameResult exactly once, to exactly the caller whose Add brought the
// completion counter to N.
//
// Grounded on modules/framebus/internal/bus/bus.go's combination of an
// atomic counter with a short-held lock guarding shared state; spec.md
// §9 calls this out explicitly ("shared mutable per-frame state across
// workers ... implement with an atomic counter plus a short-held lock").
package aggregator

import (
	"sync"
	"sync/atomic"

	"github.com/care/orion/internal/types"
)

// Aggregator collects N ModelResults belonging to the same frame.
type Aggregator struct {
	n         int
	completed int64 // atomic
	mu        sync.Mutex
	base      types.FrameResult // pre-filled non-result fields
	results   []types.ModelResult
}

// New creates an Aggregator expecting n model results, using base as the
// template for the frame-identifying fields of the eventual FrameResult.
func New(n int, base types.FrameResult) *Aggregator {
	return &Aggregator{n: n, base: base, results: make([]types.ModelResult, 0, n)}
}

// Add appends result under the lock and atomically increments the
// completion counter. When the counter reaches N, the caller that
// observed the transition receives the fully assembled FrameResult;
// every other caller receives ok=false. Implements types.Aggregator.
func (a *Aggregator) Add(result types.ModelResult) (types.FrameResult, bool) {
	a.mu.Lock()
	a.results = append(a.results, result)
	a.mu.Unlock()

	if atomic.AddInt64(&a.completed, 1) != int64(a.n) {
		return types.FrameResult{}, false
	}

	// The atomic add above synchronizes-before this read relative to
	// every other Add call that incremented the counter before us, so
	// every sibling's append is visible here even though it happened
	// under a different critical section.
	a.mu.Lock()
	snapshot := append([]types.ModelResult(nil), a.results...)
	a.mu.Unlock()

	fr := a.base
	fr.Models = snapshot
	return fr, true
}

// Total returns the expected model count N.
func (a *Aggregator) Total() int { return a.n }

// Completed returns the current completion count.
func (a *Aggregator) Completed() int64 { return atomic.LoadInt64(&a.completed) }

// IsComplete reports whether the aggregator has reached N completions.
func (a *Aggregator) IsComplete() bool { return a.Completed() >= int64(a.n) }
