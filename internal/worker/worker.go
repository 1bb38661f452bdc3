// Package worker implements the Inference Worker of spec.md §4.5: a
// long-lived task consumer bound to one accelerator core mask, owning
// per-model contexts and driving inference + post-processing + result
// routing.
//
// Grounded on orion-prototipe/internal/worker/person_detector_python.go
// for the Start/Stop lifecycle and WorkerMetrics shape (types/worker.go),
// adapted from that file's per-worker mailbox consumption to pulling
// from the shared queue.BoundedQueue the Inference Engine owns.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/care/orion/internal/postprocess"
	"github.com/care/orion/internal/queue"
	"github.com/care/orion/internal/registry"
	"github.com/care/orion/internal/types"
)

// Accelerator is the collaborator that sets inputs, runs inference, and
// retrieves dequantized float tensors (spec.md §6 "Inference runtime").
type Accelerator interface {
	// Infer populates inputs from data, runs the model bound to ctx, and
	// returns the family-appropriate decoded heads/fused-output plus the
	// class label count, ready for postprocess.Process.
	Infer(ctx *registry.Context, task types.InferTask) (postprocess.Input, error)
}

// ResultSink receives completed FrameResults (spec.md §4.5 step 5:
// "invoke the result sink").
type ResultSink interface {
	OnResultComplete(types.FrameResult)
}

// Metrics mirrors orion-prototipe's WorkerMetrics shape.
type Metrics struct {
	Processed uint64
	Dropped   uint64
	LastSeen  time.Time
}

// Worker is one accelerator-bound task consumer.
type Worker struct {
	id          int
	mask        registry.CoreMask
	reg         *registry.Registry
	accel       Accelerator
	q           *queue.BoundedQueue
	sink        ResultSink
	popTimeout  time.Duration

	mu       sync.Mutex
	contexts map[string]*registry.Context

	processed atomic.Uint64
	dropped   atomic.Uint64
	lastSeen  atomic.Int64 // unix nanos

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Worker bound to mask, pulling from q and delegating
// actual inference to accel.
func New(id int, mask registry.CoreMask, reg *registry.Registry, accel Accelerator, q *queue.BoundedQueue, sink ResultSink) *Worker {
	return &Worker{
		id:         id,
		mask:       mask,
		reg:        reg,
		accel:      accel,
		q:          q,
		sink:       sink,
		popTimeout: 500 * time.Millisecond,
		contexts:   make(map[string]*registry.Context),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// ID returns the worker's index.
func (w *Worker) ID() int { return w.id }

// CoreMask returns the accelerator core mask this worker is bound to.
func (w *Worker) CoreMask() registry.CoreMask { return w.mask }

// PreCreateContext eagerly obtains the worker-owned context for path to
// avoid racing lazy creation against concurrent resize-on-accelerator
// operations (spec.md §4.5, §9 "per-worker context binding").
func (w *Worker) PreCreateContext(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.contexts[path]; ok {
		return nil
	}
	ctx, err := w.reg.CreateWorkerContext(path, w.id, w.mask)
	if err != nil {
		return fmt.Errorf("worker[%d]: pre-create context for %s: %w", w.id, path, err)
	}
	w.contexts[path] = ctx
	return nil
}

func (w *Worker) contextFor(path string) (*registry.Context, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ctx, ok := w.contexts[path]; ok {
		return ctx, nil
	}
	ctx, err := w.reg.CreateWorkerContext(path, w.id, w.mask)
	if err != nil {
		return nil, err
	}
	w.contexts[path] = ctx
	return ctx, nil
}

// Start spawns the consume loop. Idempotent is not enforced here (the
// Engine never calls Start twice on the same worker, same as
// orion-prototipe's Run()).
func (w *Worker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		task, ok := w.q.Pop(w.popTimeout)
		if !ok {
			continue // timeout or stop; re-check shutdown flags above
		}
		w.handle(task)
	}
}

// handle implements spec.md §4.5's loop body steps 2-5. Any failure
// (missing context, driver error, malformed outputs) logs, drops the
// task, and continues — no retries (§4.5 "Failure policy").
func (w *Worker) handle(task types.InferTask) {
	start := time.Now()

	accelCtx, err := w.contextFor(task.ArtifactPath)
	if err != nil {
		w.drop(task, "context", err)
		return
	}

	ppInput, err := w.accel.Infer(accelCtx, task)
	if err != nil {
		w.drop(task, "inference", err)
		return
	}
	ppInput.Letterbox = postprocess.Letterbox{
		ModelW: task.InputWidth, ModelH: task.InputHeight,
		OrigW: task.OrigWidth, OrigH: task.OrigHeight,
	}

	dets, err := postprocess.Process(ppInput)
	if err != nil {
		w.drop(task, "postprocess", err)
		return
	}

	result := types.ModelResult{
		TaskLabel:    task.TaskLabel,
		ArtifactPath: task.ArtifactPath,
		DurationMS:   float64(time.Since(start).Microseconds()) / 1000.0,
		Detections:   toTypesDetections(dets, task.ClassLabels),
	}

	w.processed.Add(1)
	w.lastSeen.Store(time.Now().UnixNano())

	if task.Aggregator != nil {
		if fr, complete := task.Aggregator.Add(result); complete {
			w.sink.OnResultComplete(fr)
		}
		return
	}

	w.sink.OnResultComplete(types.FrameResult{
		StreamID: task.StreamID, SourceURL: task.SourceURL, FrameID: task.FrameID,
		SourceTSMS: task.SourceTSMS, PresentTSMS: task.PresentTSMS,
		OrigWidth: task.OrigWidth, OrigHeight: task.OrigHeight,
		Models: []types.ModelResult{result},
	})
}

func toTypesDetections(dets []postprocess.Detection, labels []string) []types.Detection {
	out := make([]types.Detection, len(dets))
	for i, d := range dets {
		name := ""
		if d.ClassID >= 0 && d.ClassID < len(labels) {
			name = labels[d.ClassID]
		}
		out[i] = types.Detection{
			ClassID: d.ClassID, ClassName: name, Confidence: d.Confidence,
			X1: d.X1, Y1: d.Y1, X2: d.X2, Y2: d.Y2,
		}
	}
	return out
}

func (w *Worker) drop(task types.InferTask, stage string, err error) {
	w.dropped.Add(1)
	slog.Error("worker: task dropped", "worker_id", w.id, "stream_id", task.StreamID,
		"frame_id", task.FrameID, "artifact", task.ArtifactPath, "stage", stage, "error", err)
}

// Stop signals cooperative shutdown, awaits completion, then releases
// all per-model contexts this worker created.
func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	contexts := w.contexts
	w.contexts = make(map[string]*registry.Context)
	w.mu.Unlock()

	for path, ctx := range contexts {
		if err := w.reg.ReleaseWorkerContext(ctx); err != nil {
			slog.Error("worker: release context failed", "worker_id", w.id, "artifact", path, "error", err)
		}
	}
}

// MetricsSnapshot returns the current processed/dropped counts.
func (w *Worker) MetricsSnapshot() Metrics {
	var lastSeen time.Time
	if ns := w.lastSeen.Load(); ns != 0 {
		lastSeen = time.Unix(0, ns)
	}
	return Metrics{
		Processed: w.processed.Load(),
		Dropped:   w.dropped.Load(),
		LastSeen:  lastSeen,
	}
}
