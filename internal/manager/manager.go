// Package manager implements the Stream Manager of spec.md §4.9: owns
// the id -> StreamSupervisor map, lifecycle operations, and forwards a
// config snapshot to persistence on every mutation.
//
// Grounded on orion-prototipe/internal/core/orion.go's single-mutex map
// pattern and internal/config/validator.go's field-level validation
// (folded into Add's rejection checks below).
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/care/orion/internal/apperr"
	"github.com/care/orion/internal/cache"
	"github.com/care/orion/internal/engine"
	"github.com/care/orion/internal/stream"
	"github.com/care/orion/internal/types"
)

// DecoderFactory builds a Decoder for a given stream config; production
// wires this to stream.NewGstDecoder, tests to stream.NewMockDecoder.
type DecoderFactory func(cfg types.StreamConfig) stream.Decoder

// Persister is the persistence collaborator (spec.md §6): save/load a
// StreamConfig snapshot.
type Persister interface {
	SaveStreams(configs []types.StreamConfig) error
	LoadStreams() ([]types.StreamConfig, error)
}

// LabelLoader reads a class-labels file, one label per line, trimmed.
type LabelLoader func(path string) ([]string, error)

// Manager owns the set of Stream Supervisors.
type Manager struct {
	ctx         context.Context
	eng         *engine.Engine
	imgCache    *cache.Cache
	persister   Persister
	decoderFor  DecoderFactory
	resizer     stream.Resizer
	loadLabels  LabelLoader
	cacheWidth  int
	cacheQual   int

	mu        sync.Mutex
	streams   map[string]*stream.Supervisor
	configs   map[string]types.StreamConfig
}

// Config bundles Manager construction parameters.
type Config struct {
	Ctx            context.Context
	Engine         *engine.Engine
	ImageCache     *cache.Cache
	Persister      Persister
	DecoderFactory DecoderFactory
	Resizer        stream.Resizer
	LabelLoader    LabelLoader
	CacheWidth     int
	CacheQuality   int
}

// New builds a Manager.
func New(cfg Config) *Manager {
	return &Manager{
		ctx: cfg.Ctx, eng: cfg.Engine, imgCache: cfg.ImageCache, persister: cfg.Persister,
		decoderFor: cfg.DecoderFactory, resizer: cfg.Resizer, loadLabels: cfg.LabelLoader,
		cacheWidth: cfg.CacheWidth, cacheQual: cfg.CacheQuality,
		streams: make(map[string]*stream.Supervisor), configs: make(map[string]types.StreamConfig),
	}
}

// Add rejects duplicates and empty ids, preloads label files, asks the
// Engine to load models, asks the Image Cache to add the stream,
// launches the supervisor, and on success persists (spec.md §4.9). A
// label or model-load failure returns before the stream is registered,
// cached or started; models the Engine already loaded for this call stay
// loaded.
func (m *Manager) Add(cfg types.StreamConfig) error {
	if cfg.StreamID == "" {
		return fmt.Errorf("manager: empty stream id: %w", apperr.ErrConfiguration)
	}

	m.mu.Lock()
	if _, exists := m.streams[cfg.StreamID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("manager: stream %q already exists: %w", cfg.StreamID, apperr.ErrConflict)
	}
	m.mu.Unlock()

	labels := make(map[string][]string)
	for _, mc := range cfg.Models {
		if mc.ClassLabelsCSV == "" {
			continue
		}
		lbls, err := m.loadLabels(mc.ClassLabelsCSV)
		if err != nil {
			return fmt.Errorf("manager: load labels %s: %w", mc.ClassLabelsCSV, err)
		}
		labels[mc.ArtifactPath] = lbls
	}

	paths := make([]string, 0, len(cfg.Models))
	for _, mc := range cfg.Models {
		paths = append(paths, mc.ArtifactPath)
	}
	if err := m.eng.LoadModels(paths); err != nil {
		return fmt.Errorf("manager: add %s: %w", cfg.StreamID, err)
	}

	m.imgCache.AddStream(cfg.StreamID)

	decoder := m.decoderFor(cfg)
	sup := stream.NewSupervisor(cfg, decoder, m.resizer, m.eng, m.imgCache, labels, m.cacheWidth, m.cacheQual)

	m.mu.Lock()
	m.streams[cfg.StreamID] = sup
	m.configs[cfg.StreamID] = cfg
	m.mu.Unlock()

	sup.Start(m.ctx)

	if err := m.persist(); err != nil {
		slog.Error("manager: persist after add failed", "stream_id", cfg.StreamID, "error", err)
	}
	return nil
}

// Remove signals supervisor stop, joins it outside the map lock, removes
// the map entry, drops the image-cache stream, and persists.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	sup, ok := m.streams[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("manager: stream %q: %w", id, apperr.ErrNotFound)
	}

	sup.Stop() // outside the map lock

	m.mu.Lock()
	delete(m.streams, id)
	delete(m.configs, id)
	m.mu.Unlock()

	m.imgCache.RemoveStream(id)

	if err := m.persist(); err != nil {
		slog.Error("manager: persist after remove failed", "stream_id", id, "error", err)
	}
	return nil
}

// Start brings an existing, stopped supervisor into Starting.
func (m *Manager) Start(id string) error {
	sup, err := m.lookup(id)
	if err != nil {
		return err
	}
	sup.Start(m.ctx)
	return nil
}

// Stop brings a running supervisor to Stopped, outside the map lock.
func (m *Manager) Stop(id string) error {
	sup, err := m.lookup(id)
	if err != nil {
		return err
	}
	sup.Stop()
	return nil
}

// StartAll starts every known supervisor.
func (m *Manager) StartAll() {
	for _, sup := range m.snapshot() {
		sup.Start(m.ctx)
	}
}

// StopAll signals all supervisors to stop, then joins them outside the
// map lock (spec.md §4.9: "signals all first, then joins outside the map lock").
func (m *Manager) StopAll() {
	sups := m.snapshot()
	var wg sync.WaitGroup
	for _, sup := range sups {
		wg.Add(1)
		go func(sup *stream.Supervisor) {
			defer wg.Done()
			sup.Stop()
		}(sup)
	}
	// sup.Stop() blocks until the run loop exits; launching each in its
	// own goroutine lets all signal concurrently instead of serially,
	// then this call waits until every Stop() has returned.
	wg.Wait()
}

// GetStatus builds one StreamStatus snapshot.
func (m *Manager) GetStatus(id string) (types.StreamStatus, error) {
	sup, err := m.lookup(id)
	if err != nil {
		return types.StreamStatus{}, err
	}
	return sup.Status(), nil
}

// GetAllStatus builds StreamStatus snapshots for every known stream.
func (m *Manager) GetAllStatus() []types.StreamStatus {
	sups := m.snapshot()
	out := make([]types.StreamStatus, 0, len(sups))
	for _, sup := range sups {
		out = append(out, sup.Status())
	}
	return out
}

// LoadAndStart recreates streams from persisted configuration at boot.
func (m *Manager) LoadAndStart() error {
	configs, err := m.persister.LoadStreams()
	if err != nil {
		return fmt.Errorf("manager: load_and_start: %w", err)
	}
	for _, cfg := range configs {
		if err := m.Add(cfg); err != nil {
			slog.Error("manager: load_and_start: add failed", "stream_id", cfg.StreamID, "error", err)
		}
	}
	return nil
}

// OnInferResult increments the named stream's inferred_frames counter
// (spec.md §4.9).
func (m *Manager) OnInferResult(fr types.FrameResult) {
	m.mu.Lock()
	sup, ok := m.streams[fr.StreamID]
	m.mu.Unlock()
	if !ok {
		return
	}
	sup.OnInferResult()
}

func (m *Manager) lookup(id string) (*stream.Supervisor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sup, ok := m.streams[id]
	if !ok {
		return nil, fmt.Errorf("manager: stream %q: %w", id, apperr.ErrNotFound)
	}
	return sup, nil
}

func (m *Manager) snapshot() []*stream.Supervisor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*stream.Supervisor, 0, len(m.streams))
	for _, sup := range m.streams {
		out = append(out, sup)
	}
	return out
}

func (m *Manager) persist() error {
	m.mu.Lock()
	configs := make([]types.StreamConfig, 0, len(m.configs))
	for _, c := range m.configs {
		configs = append(configs, c)
	}
	m.mu.Unlock()
	return m.persister.SaveStreams(configs)
}
