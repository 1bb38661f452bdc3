package cache

import (
	"testing"

	"github.com/care/orion/internal/types"
)

func frame(stream string, ts int64, size int) types.CachedFrame {
	return types.CachedFrame{StreamID: stream, FrameID: uint64(ts), TSMS: ts, JPEG: make([]byte, size)}
}

func TestAddFrameEvictsExpiredByTimeWindow(t *testing.T) {
	c := New(5, 0) // 5s window, no memory budget
	c.AddFrame(frame("cam1", 0, 10))
	c.AddFrame(frame("cam1", 3000, 10))
	c.AddFrame(frame("cam1", 7000, 10)) // cutoff = 7000-5000 = 2000: only frame@0 expires

	if n := c.StreamFrameCount("cam1"); n != 2 {
		t.Fatalf("StreamFrameCount = %d, want 2 (oldest expired)", n)
	}
	if _, ok := c.GetExact("cam1", 0); ok {
		t.Fatal("expired frame still retrievable by exact timestamp")
	}
}

func TestGlobalMemoryEvictionPicksGloballyOldest(t *testing.T) {
	c := New(3600, 25) // large time window, tiny memory budget
	c.AddFrame(frame("cam1", 100, 10))
	c.AddFrame(frame("cam2", 200, 10))
	c.AddFrame(frame("cam1", 300, 10)) // now 30 bytes total > budget 25, evicts globally-oldest front (cam1@100)

	if c.TotalMemoryBytes() > 25 {
		t.Fatalf("TotalMemoryBytes() = %d, want <= 25", c.TotalMemoryBytes())
	}
	if _, ok := c.GetExact("cam1", 100); ok {
		t.Fatal("globally-oldest frame was not evicted")
	}
	if _, ok := c.GetExact("cam2", 200); !ok {
		t.Fatal("cam2's frame was evicted instead of the globally-oldest one")
	}
}

func TestSumInvariant(t *testing.T) {
	c := New(3600, 0)
	sizes := []int{10, 20, 30, 40}
	var want int64
	for i, sz := range sizes {
		c.AddFrame(frame("cam1", int64(i*1000), sz))
		want += int64(sz)
	}
	if c.TotalMemoryBytes() != want {
		t.Fatalf("TotalMemoryBytes() = %d, want %d", c.TotalMemoryBytes(), want)
	}
	if c.TotalFrames() != len(sizes) {
		t.Fatalf("TotalFrames() = %d, want %d", c.TotalFrames(), len(sizes))
	}

	c.RemoveStream("cam1")
	if c.TotalMemoryBytes() != 0 {
		t.Fatalf("TotalMemoryBytes() after RemoveStream = %d, want 0", c.TotalMemoryBytes())
	}
}

func TestGetLatestAndNearest(t *testing.T) {
	c := New(3600, 0)
	c.AddFrame(frame("cam1", 100, 5))
	c.AddFrame(frame("cam1", 200, 5))
	c.AddFrame(frame("cam1", 400, 5))

	latest, ok := c.GetLatest("cam1")
	if !ok || latest.TSMS != 400 {
		t.Fatalf("GetLatest = %+v, want ts=400", latest)
	}

	nearest, ok := c.GetNearest("cam1", 250)
	if !ok || nearest.TSMS != 200 {
		t.Fatalf("GetNearest(250) = %+v, want ts=200 (closer than 400)", nearest)
	}
}

func TestGetOnUnknownStream(t *testing.T) {
	c := New(3600, 0)
	if _, ok := c.GetLatest("ghost"); ok {
		t.Fatal("GetLatest on unknown stream returned ok=true")
	}
	if _, ok := c.GetExact("ghost", 1); ok {
		t.Fatal("GetExact on unknown stream returned ok=true")
	}
}
