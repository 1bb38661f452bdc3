package stream

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/care/orion/internal/cache"
	"github.com/care/orion/internal/types"
)

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	cases := []struct {
		cur, want time.Duration
	}{
		{time.Second, 2 * time.Second},
		{2 * time.Second, 4 * time.Second},
		{4 * time.Second, 8 * time.Second},
		{8 * time.Second, 8 * time.Second},  // capped
		{20 * time.Second, 8 * time.Second}, // already above cap
	}
	for _, c := range cases {
		if got := nextBackoff(c.cur); got != c.want {
			t.Errorf("nextBackoff(%v) = %v, want %v", c.cur, got, c.want)
		}
	}
}

type countingSubmitter struct {
	count atomic.Int64
}

func (s *countingSubmitter) Submit(types.InferTask) bool {
	s.count.Add(1)
	return true
}

func TestSupervisorRunsAndReachesRunningState(t *testing.T) {
	cfg := types.StreamConfig{
		StreamID:  "cam1",
		SourceURL: "mock://cam1",
		FrameSkip: 1,
		Models: []types.ModelConfig{
			{ArtifactPath: "m.bin", TaskLabel: "person", Family: "yolov11", InputWidth: 64, InputHeight: 64},
		},
	}
	dec := NewMockDecoder("cam1", 64, 64, 200) // fast synthetic fps for a quick test
	sub := &countingSubmitter{}
	imgCache := cache.New(5, 0)
	imgCache.AddStream("cam1")

	sv := NewSupervisor(cfg, dec, SoftwareResizer{}, sub, imgCache, nil, 32, 80)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sv.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sv.Status().State == types.StateRunning {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	status := sv.Status()
	if status.State != types.StateRunning {
		t.Fatalf("supervisor state = %v, want running", status.State)
	}

	time.Sleep(50 * time.Millisecond)
	sv.Stop()

	if sub.count.Load() == 0 {
		t.Fatal("no infer tasks were submitted while running")
	}
	if imgCache.StreamFrameCount("cam1") == 0 {
		t.Fatal("no frames were inserted into the image cache while running")
	}
	if sv.Status().State != types.StateStopped {
		t.Fatalf("supervisor state after Stop = %v, want stopped", sv.Status().State)
	}
}

func TestSupervisorSingleModelHasNoAggregator(t *testing.T) {
	// submitInferTasks with exactly one model must not build an
	// aggregator (spec.md §4.9 "nil for single-model streams").
	cfg := types.StreamConfig{
		StreamID: "cam1", SourceURL: "mock://cam1", FrameSkip: 1,
		Models: []types.ModelConfig{{ArtifactPath: "m.bin", TaskLabel: "t", Family: "yolov11", InputWidth: 32, InputHeight: 32}},
	}
	sub := &captureSubmitter{}
	sv := NewSupervisor(cfg, NewMockDecoder("cam1", 32, 32, 0), SoftwareResizer{}, sub, nil, nil, 0, 0)

	sv.submitInferTasks(types.DecodedFrame{StreamID: "cam1", FrameID: 1, Width: 32, Height: 32, NV12: make([]byte, 32*32*3/2)})

	if len(sub.tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(sub.tasks))
	}
	if sub.tasks[0].Aggregator != nil {
		t.Fatal("single-model stream produced a non-nil aggregator")
	}
}

type captureSubmitter struct {
	tasks []types.InferTask
}

func (s *captureSubmitter) Submit(task types.InferTask) bool {
	s.tasks = append(s.tasks, task)
	return true
}
