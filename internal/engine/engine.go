// Package engine implements the Inference Engine of spec.md §4.6: owns
// the Model Registry, the Bounded Queue, the worker pool, and the
// result sink.
//
// Grounded on orion-prototipe/internal/core/orion.go's Run/Shutdown
// ordering: workers are created and started in init(), load_models
// pre-creates worker contexts eagerly (mirroring Run()'s "warm-up"
// phase), and shutdown follows the same fixed stop-then-teardown order
// Orion.Shutdown uses (stop intake first, then workers, then sinks).
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/care/orion/internal/queue"
	"github.com/care/orion/internal/registry"
	"github.com/care/orion/internal/types"
	"github.com/care/orion/internal/worker"
)

// Publisher is the result-publishing collaborator (spec.md §6 "Result
// publisher").
type Publisher interface {
	Publish(types.FrameResult) error
}

// OnComplete is the optional user callback the Stream Manager installs
// to update per-stream counters (spec.md §4.6 on_result_complete).
type OnComplete func(types.FrameResult)

// Engine owns the queue, registry, worker pool, and result routing.
type Engine struct {
	reg   *registry.Registry
	q     *queue.BoundedQueue
	pub   Publisher
	accel worker.Accelerator

	mu          sync.Mutex
	workers     []*worker.Worker
	initialized bool
	onComplete  OnComplete

	processed atomic.Uint64
	published atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// Config bundles the Engine's construction parameters.
type Config struct {
	QueueCapacity  int
	WorkerCount    int
	PhysicalCores  int
	Registry       *registry.Registry
	Accelerator    worker.Accelerator
	Publisher      Publisher
}

// New builds an Engine without starting it. Call Init to spawn workers.
func New(cfg Config) *Engine {
	return &Engine{
		reg:   cfg.Registry,
		q:     queue.New(cfg.QueueCapacity),
		pub:   cfg.Publisher,
		accel: cfg.Accelerator,
	}
}

// SetOnComplete installs the user callback invoked after publication.
func (e *Engine) SetOnComplete(fn OnComplete) {
	e.mu.Lock()
	e.onComplete = fn
	e.mu.Unlock()
}

// Init creates W workers with core masks per spec.md §4.2's assignment
// rule and starts them. Idempotent.
func (e *Engine) Init(parent context.Context, workerCount, physicalCores int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return
	}
	e.ctx, e.cancel = context.WithCancel(parent)
	e.workers = make([]*worker.Worker, 0, workerCount)
	for i := 0; i < workerCount; i++ {
		mask := registry.CoreMaskForWorker(i, physicalCores)
		w := worker.New(i, mask, e.reg, e.accel, e.q, e)
		w.Start(e.ctx)
		e.workers = append(e.workers, w)
	}
	e.initialized = true
}

// LoadModels ensures each artifact is loaded, then eagerly pre-creates
// every worker's context for each model (spec.md §4.6 load_models:
// "serializes context creation away from the steady-state
// resize/inference path").
func (e *Engine) LoadModels(paths []string) error {
	for _, p := range paths {
		if err := e.reg.Load(p); err != nil {
			return fmt.Errorf("engine: load_models: %w", err)
		}
	}
	e.mu.Lock()
	workers := append([]*worker.Worker(nil), e.workers...)
	e.mu.Unlock()

	for _, w := range workers {
		for _, p := range paths {
			if err := w.PreCreateContext(p); err != nil {
				return fmt.Errorf("engine: load_models: pre-create on worker %d: %w", w.ID(), err)
			}
		}
	}
	return nil
}

// Submit forwards a task to the queue. Returns false iff the engine is
// not initialized.
func (e *Engine) Submit(task types.InferTask) bool {
	e.mu.Lock()
	init := e.initialized
	e.mu.Unlock()
	if !init {
		return false
	}
	return e.q.Push(task)
}

// OnResultComplete implements worker.ResultSink: hands the record to the
// publisher, then invokes the optional user callback (spec.md §4.6).
func (e *Engine) OnResultComplete(fr types.FrameResult) {
	e.processed.Add(1)
	if e.pub != nil {
		if err := e.pub.Publish(fr); err != nil {
			slog.Error("engine: publish failed", "stream_id", fr.StreamID, "frame_id", fr.FrameID, "error", err)
		} else {
			e.published.Add(1)
		}
	}
	e.mu.Lock()
	cb := e.onComplete
	e.mu.Unlock()
	if cb != nil {
		cb(fr)
	}
}

// Shutdown stops the queue, stops each worker, and unloads models, in
// that fixed order (spec.md §4.6). It does not tear down the publisher;
// cmd/infersrv disconnects it after Shutdown returns.
func (e *Engine) Shutdown(timeout time.Duration) error {
	e.q.Stop()

	e.mu.Lock()
	workers := append([]*worker.Worker(nil), e.workers...)
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, w := range workers {
		w.Stop()
	}

	return e.reg.UnloadAll()
}

// Stats are the Engine's observables (spec.md §4.6).
type Stats struct {
	QueueSize      int
	QueueCapacity  int
	QueueDropped   uint64
	TotalProcessed uint64
	Published      uint64
}

// Stats returns a snapshot of the Engine's observables.
func (e *Engine) Stats() Stats {
	return Stats{
		QueueSize:      e.q.Size(),
		QueueCapacity:  e.q.Capacity(),
		QueueDropped:   e.q.Dropped(),
		TotalProcessed: e.processed.Load(),
		Published:      e.published.Load(),
	}
}
