package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/care/orion/internal/accelmock"
	"github.com/care/orion/internal/apperr"
	"github.com/care/orion/internal/cache"
	"github.com/care/orion/internal/engine"
	"github.com/care/orion/internal/registry"
	"github.com/care/orion/internal/stream"
	"github.com/care/orion/internal/types"
)

type fakePersister struct {
	saved []types.StreamConfig
}

func (p *fakePersister) SaveStreams(configs []types.StreamConfig) error {
	p.saved = configs
	return nil
}
func (p *fakePersister) LoadStreams() ([]types.StreamConfig, error) { return nil, nil }

type noopPublisher struct{}

func (noopPublisher) Publish(types.FrameResult) error { return nil }

func newTestManager(t *testing.T) (*Manager, *fakePersister) {
	t.Helper()
	reg := registry.New(accelmock.Runtime{})
	eng := engine.New(engine.Config{
		QueueCapacity: 8, Registry: reg, Accelerator: accelmock.Accelerator{}, Publisher: noopPublisher{},
	})
	eng.Init(context.Background(), 2, 2)

	persister := &fakePersister{}
	mgr := New(Config{
		Ctx: context.Background(), Engine: eng, ImageCache: cache.New(5, 0), Persister: persister,
		DecoderFactory: func(cfg types.StreamConfig) stream.Decoder {
			return stream.NewMockDecoder(cfg.StreamID, 64, 64, 0)
		},
		Resizer:      stream.SoftwareResizer{},
		LabelLoader:  func(string) ([]string, error) { return nil, nil },
		CacheWidth:   32, CacheQuality: 80,
	})
	return mgr, persister
}

func streamCfg(id string) types.StreamConfig {
	return types.StreamConfig{
		StreamID: id, SourceURL: "mock://" + id, FrameSkip: 1,
		Models: []types.ModelConfig{{ArtifactPath: "m.bin", TaskLabel: "t", Family: "yolov11", InputWidth: 64, InputHeight: 64}},
	}
}

func TestAddRejectsDuplicateAndEmptyID(t *testing.T) {
	mgr, _ := newTestManager(t)
	if err := mgr.Add(streamCfg("")); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if err := mgr.Add(streamCfg("cam1")); err != nil {
		t.Fatal(err)
	}
	defer mgr.Stop("cam1")

	if err := mgr.Add(streamCfg("cam1")); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestAddPersistsAndStatusReflectsStream(t *testing.T) {
	mgr, persister := newTestManager(t)
	if err := mgr.Add(streamCfg("cam1")); err != nil {
		t.Fatal(err)
	}
	defer mgr.Stop("cam1")

	if len(persister.saved) != 1 || persister.saved[0].StreamID != "cam1" {
		t.Fatalf("persister.saved = %+v, want one entry for cam1", persister.saved)
	}

	status, err := mgr.GetStatus("cam1")
	if err != nil {
		t.Fatal(err)
	}
	if status.Config.StreamID != "cam1" {
		t.Fatalf("status.Config.StreamID = %q, want cam1", status.Config.StreamID)
	}
}

func TestRemoveUnknownStream(t *testing.T) {
	mgr, _ := newTestManager(t)
	if err := mgr.Remove("ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRemoveStopsAndClearsState(t *testing.T) {
	mgr, persister := newTestManager(t)
	if err := mgr.Add(streamCfg("cam1")); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Remove("cam1"); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.GetStatus("cam1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("GetStatus after remove: err = %v, want ErrNotFound", err)
	}
	if len(persister.saved) != 0 {
		t.Fatalf("persister.saved = %+v, want empty after remove", persister.saved)
	}
}

func TestOnInferResultIncrementsNamedStreamOnly(t *testing.T) {
	mgr, _ := newTestManager(t)
	if err := mgr.Add(streamCfg("cam1")); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Add(streamCfg("cam2")); err != nil {
		t.Fatal(err)
	}
	defer mgr.Stop("cam1")
	defer mgr.Stop("cam2")

	mgr.OnInferResult(types.FrameResult{StreamID: "cam1"})
	mgr.OnInferResult(types.FrameResult{StreamID: "ghost"}) // unknown stream id: no-op

	s1, _ := mgr.GetStatus("cam1")
	s2, _ := mgr.GetStatus("cam2")
	if s1.InferredFrames != 1 {
		t.Fatalf("cam1.InferredFrames = %d, want 1", s1.InferredFrames)
	}
	if s2.InferredFrames != 0 {
		t.Fatalf("cam2.InferredFrames = %d, want 0", s2.InferredFrames)
	}
}

func TestStopAllTransitionsEveryStreamToStopped(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.Add(streamCfg("cam1"))
	mgr.Add(streamCfg("cam2"))

	mgr.StopAll()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		all := mgr.GetAllStatus()
		allStopped := true
		for _, s := range all {
			if s.State != types.StateStopped {
				allStopped = false
			}
		}
		if allStopped {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("not all streams reached Stopped after StopAll")
}
