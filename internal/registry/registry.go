// Package registry implements the Model Registry of spec.md §4.2:
// loads model artifacts once, hands out per-worker contexts bound to
// specific accelerator cores, and counts live worker contexts per
// artifact. Unload and UnloadAll do not consult that count.
//
// Grounded directly on the C++ original's
// infer_server/inference/model_manager.h: NpuCoreMask's bitmask
// constants and from_worker_id mapping are carried over verbatim as the
// core-assignment rule; ModelManager's master-context-plus-borrowed-
// descriptor shape becomes Registry/Descriptor below.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/care/orion/internal/apperr"
)

// CoreMask selects which accelerator cores a worker context may run on.
// Values mirror NpuCoreMask from the original model_manager.h.
type CoreMask int

const (
	CoreAuto CoreMask = 0
	Core0    CoreMask = 1
	Core1    CoreMask = 2
	Core2    CoreMask = 4
)

// CoreMaskForWorker implements spec.md §4.2's core-assignment rule:
// worker i binds to core i mod C if i < C; remaining workers auto-schedule.
// C=0..3 map to the same bitmasks the accelerator driver's
// NpuCoreMask::from_worker_id used (Core0=1, Core1=2, Core2=4).
func CoreMaskForWorker(workerID, physicalCores int) CoreMask {
	if physicalCores <= 0 || workerID >= physicalCores {
		return CoreAuto
	}
	switch workerID % 3 {
	case 0:
		return Core0
	case 1:
		return Core1
	case 2:
		return Core2
	default:
		return CoreAuto
	}
}

// TensorDescriptor carries dimensions and quantization parameters for
// one input or output tensor.
type TensorDescriptor struct {
	Name       string
	Dims       []int
	ZeroPoint  int
	Scale      float64
	ElemCount  int
	Quantized  bool
}

// Descriptor is the cached input/output tensor metadata for one loaded
// artifact, returned by GetDescriptor as a borrowed, read-only snapshot.
type Descriptor struct {
	ArtifactPath string
	Inputs       []TensorDescriptor
	Outputs      []TensorDescriptor
}

// Context is a worker-owned handle bound to a specific accelerator core.
// In this Go port the underlying accelerator runtime is an external
// collaborator (spec.md §6 "Inference runtime"); Context wraps whatever
// that collaborator returns, so this package stays driver-agnostic.
type Context struct {
	ArtifactPath string
	WorkerID     int
	Mask         CoreMask
	handle       any // opaque runtime handle, driver-specific
}

// Handle returns the opaque driver handle stored at context creation.
func (c *Context) Handle() any { return c.handle }

// Runtime is the accelerator collaborator the Registry delegates to for
// loading artifacts and creating/destroying contexts (spec.md §6
// "Inference runtime"). Implementations MAY derive worker contexts from
// the master context or create fully independent ones; the latter is
// recommended for long-running services (spec.md §4.2).
type Runtime interface {
	LoadArtifact(path string) (Descriptor, any, error)
	NewContext(masterHandle any, mask CoreMask) (any, error)
	ReleaseContext(handle any) error
	UnloadArtifact(masterHandle any) error
}

type loadedModel struct {
	descriptor Descriptor
	master     any
	refCount   int
}

// Registry loads and owns deserialized model artifacts keyed by
// artifact path.
type Registry struct {
	mu      sync.Mutex
	runtime Runtime
	models  map[string]*loadedModel
}

// New creates a Registry backed by the given accelerator runtime.
func New(runtime Runtime) *Registry {
	return &Registry{runtime: runtime, models: make(map[string]*loadedModel)}
}

// Load is idempotent: the first call reads the artifact and queries
// tensor descriptors; subsequent calls for the same path are no-ops.
func (r *Registry) Load(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[path]; ok {
		return nil
	}
	desc, master, err := r.runtime.LoadArtifact(path)
	if err != nil {
		return fmt.Errorf("registry: load %s: %w", path, err)
	}
	r.models[path] = &loadedModel{descriptor: desc, master: master}
	return nil
}

// CreateWorkerContext produces a context bound to the given core mask.
// Failure to bind the requested core logs a warning and falls back to
// CoreAuto; an error is returned only when the CoreAuto attempt fails
// too (spec.md §4.2: "falls back to unspecified/auto scheduling with a
// warning, not an error").
func (r *Registry) CreateWorkerContext(path string, workerID int, mask CoreMask) (*Context, error) {
	r.mu.Lock()
	lm, ok := r.models[path]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("registry: create context for %s: %w", path, apperr.ErrNotFound)
	}

	handle, err := r.runtime.NewContext(lm.master, mask)
	if err != nil {
		slog.Warn("registry: core bind failed, falling back to auto scheduling",
			"artifact", path, "worker_id", workerID, "mask", mask, "error", err)
		handle, err = r.runtime.NewContext(lm.master, CoreAuto)
		if err != nil {
			return nil, fmt.Errorf("registry: create context for %s: %w", path, err)
		}
		mask = CoreAuto
	}

	r.mu.Lock()
	lm.refCount++
	r.mu.Unlock()

	return &Context{ArtifactPath: path, WorkerID: workerID, Mask: mask, handle: handle}, nil
}

// ReleaseWorkerContext destroys one worker-owned context and decrements
// the artifact's reference count.
func (r *Registry) ReleaseWorkerContext(ctx *Context) error {
	if ctx == nil {
		return nil
	}
	if err := r.runtime.ReleaseContext(ctx.handle); err != nil {
		return fmt.Errorf("registry: release context: %w", err)
	}
	r.mu.Lock()
	if lm, ok := r.models[ctx.ArtifactPath]; ok && lm.refCount > 0 {
		lm.refCount--
	}
	r.mu.Unlock()
	return nil
}

// GetDescriptor returns the cached tensor metadata for path, or false if
// not loaded.
func (r *Registry) GetDescriptor(path string) (Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lm, ok := r.models[path]
	if !ok {
		return Descriptor{}, false
	}
	return lm.descriptor, true
}

// Unload destroys the master context and drops the cached payload for
// one artifact.
func (r *Registry) Unload(path string) error {
	r.mu.Lock()
	lm, ok := r.models[path]
	if ok {
		delete(r.models, path)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := r.runtime.UnloadArtifact(lm.master); err != nil {
		return fmt.Errorf("registry: unload %s: %w", path, err)
	}
	return nil
}

// UnloadAll tears down every loaded artifact.
func (r *Registry) UnloadAll() error {
	r.mu.Lock()
	paths := make([]string, 0, len(r.models))
	for p := range r.models {
		paths = append(paths, p)
	}
	r.mu.Unlock()
	var firstErr error
	for _, p := range paths {
		if err := r.Unload(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LoadedCount reports how many artifacts are currently loaded.
func (r *Registry) LoadedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.models)
}
