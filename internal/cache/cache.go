// Package cache implements the Rolling Image Cache of spec.md §4.7:
// per-stream ordered deques of compressed preview frames with a
// time-window eviction and an optional global-memory eviction.
//
// Grounded directly on the C++ original's
// infer_server/cache/image_cache.h: two-level locking (map mutex + one
// mutex per per-stream deque), a global atomic memory accumulator, and
// evict_expired/evict_global_memory as the two eviction paths.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/care/orion/internal/types"
)

type streamCache struct {
	mu           sync.Mutex
	frames       *list.List // front = oldest
	memoryBytes  int64
}

// Cache is the top-level per-instance rolling image cache.
type Cache struct {
	windowMS     int64
	memoryBudget int64 // 0 = unlimited

	mapMu   sync.Mutex
	streams map[string]*streamCache

	totalMemory atomic.Int64
}

// New creates a Cache with the given time window (seconds) and optional
// memory budget in bytes (0 disables memory eviction).
func New(windowSeconds int, memoryBudgetBytes int64) *Cache {
	return &Cache{
		windowMS:     int64(windowSeconds) * 1000,
		memoryBudget: memoryBudgetBytes,
		streams:      make(map[string]*streamCache),
	}
}

// AddStream idempotently creates the per-stream deque.
func (c *Cache) AddStream(id string) {
	c.mapMu.Lock()
	defer c.mapMu.Unlock()
	if _, ok := c.streams[id]; ok {
		return
	}
	c.streams[id] = &streamCache{frames: list.New()}
}

// RemoveStream idempotently drops a stream's deque and its memory.
func (c *Cache) RemoveStream(id string) {
	c.mapMu.Lock()
	sc, ok := c.streams[id]
	if ok {
		delete(c.streams, id)
	}
	c.mapMu.Unlock()
	if !ok {
		return
	}
	sc.mu.Lock()
	c.totalMemory.Add(-sc.memoryBytes)
	sc.mu.Unlock()
}

func (c *Cache) getOrCreate(id string) *streamCache {
	c.mapMu.Lock()
	defer c.mapMu.Unlock()
	sc, ok := c.streams[id]
	if !ok {
		sc = &streamCache{frames: list.New()}
		c.streams[id] = sc
	}
	return sc
}

// AddFrame first evicts expired entries from the front of the stream's
// deque, appends the new frame, updates counters, then runs
// global-memory eviction if the budget is exceeded (spec.md §4.7).
func (c *Cache) AddFrame(frame types.CachedFrame) {
	sc := c.getOrCreate(frame.StreamID)

	sc.mu.Lock()
	cutoff := frame.TSMS - c.windowMS
	for sc.frames.Len() > 0 {
		front := sc.frames.Front().Value.(types.CachedFrame)
		if front.TSMS >= cutoff {
			break
		}
		sc.frames.Remove(sc.frames.Front())
		sc.memoryBytes -= int64(len(front.JPEG))
		c.totalMemory.Add(-int64(len(front.JPEG)))
	}
	sc.frames.PushBack(frame)
	sc.memoryBytes += int64(len(frame.JPEG))
	sc.mu.Unlock()

	c.totalMemory.Add(int64(len(frame.JPEG)))

	if c.memoryBudget > 0 && c.totalMemory.Load() > c.memoryBudget {
		c.evictGlobalMemory()
	}
}

// evictGlobalMemory repeatedly picks the stream whose front frame has
// the smallest timestamp across all streams and drops one entry, until
// the global counter fits the budget. Briefly holds the map lock while
// walking per-stream front pointers, matching the original's
// evict_global_memory.
func (c *Cache) evictGlobalMemory() {
	for {
		if c.memoryBudget <= 0 || c.totalMemory.Load() <= c.memoryBudget {
			return
		}

		c.mapMu.Lock()
		var oldestSC *streamCache
		var oldestTS int64
		first := true
		for _, sc := range c.streams {
			sc.mu.Lock()
			if sc.frames.Len() == 0 {
				sc.mu.Unlock()
				continue
			}
			ts := sc.frames.Front().Value.(types.CachedFrame).TSMS
			sc.mu.Unlock()
			if first || ts < oldestTS {
				oldestTS = ts
				oldestSC = sc
				first = false
			}
		}
		c.mapMu.Unlock()

		if oldestSC == nil {
			return // nothing left to evict; budget cannot be met
		}

		oldestSC.mu.Lock()
		if oldestSC.frames.Len() == 0 {
			oldestSC.mu.Unlock()
			continue
		}
		front := oldestSC.frames.Remove(oldestSC.frames.Front()).(types.CachedFrame)
		oldestSC.memoryBytes -= int64(len(front.JPEG))
		oldestSC.mu.Unlock()

		c.totalMemory.Add(-int64(len(front.JPEG)))
	}
}

// GetExact returns the entry with an exactly equal timestamp.
func (c *Cache) GetExact(id string, tsMS int64) (types.CachedFrame, bool) {
	sc := c.lookup(id)
	if sc == nil {
		return types.CachedFrame{}, false
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for e := sc.frames.Front(); e != nil; e = e.Next() {
		f := e.Value.(types.CachedFrame)
		if f.TSMS == tsMS {
			return f, true
		}
	}
	return types.CachedFrame{}, false
}

// GetNearest scans for the entry minimizing |entry.ts - ts|; ties broken
// arbitrarily (first encountered).
func (c *Cache) GetNearest(id string, tsMS int64) (types.CachedFrame, bool) {
	sc := c.lookup(id)
	if sc == nil {
		return types.CachedFrame{}, false
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.frames.Len() == 0 {
		return types.CachedFrame{}, false
	}
	var best types.CachedFrame
	bestDiff := int64(-1)
	for e := sc.frames.Front(); e != nil; e = e.Next() {
		f := e.Value.(types.CachedFrame)
		diff := f.TSMS - tsMS
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			bestDiff = diff
			best = f
		}
	}
	return best, true
}

// GetLatest returns the last entry, if any.
func (c *Cache) GetLatest(id string) (types.CachedFrame, bool) {
	sc := c.lookup(id)
	if sc == nil {
		return types.CachedFrame{}, false
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.frames.Len() == 0 {
		return types.CachedFrame{}, false
	}
	return sc.frames.Back().Value.(types.CachedFrame), true
}

func (c *Cache) lookup(id string) *streamCache {
	c.mapMu.Lock()
	defer c.mapMu.Unlock()
	return c.streams[id]
}

// TotalMemoryBytes returns the global memory accumulator.
func (c *Cache) TotalMemoryBytes() int64 { return c.totalMemory.Load() }

// TotalFrames sums frame counts across all streams.
func (c *Cache) TotalFrames() int {
	c.mapMu.Lock()
	streams := make([]*streamCache, 0, len(c.streams))
	for _, sc := range c.streams {
		streams = append(streams, sc)
	}
	c.mapMu.Unlock()

	total := 0
	for _, sc := range streams {
		sc.mu.Lock()
		total += sc.frames.Len()
		sc.mu.Unlock()
	}
	return total
}

// StreamFrameCount returns the frame count for one stream.
func (c *Cache) StreamFrameCount(id string) int {
	sc := c.lookup(id)
	if sc == nil {
		return 0
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.frames.Len()
}

// StreamCount returns the number of tracked streams.
func (c *Cache) StreamCount() int {
	c.mapMu.Lock()
	defer c.mapMu.Unlock()
	return len(c.streams)
}

// nowMS returns the wall clock in Unix milliseconds. Nothing in this
// package calls it: AddFrame takes each frame's timestamp from the frame
// itself, which is what lets the tests use fixed timestamps.
func nowMS() int64 { return time.Now().UnixMilli() }
