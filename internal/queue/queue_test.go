package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/care/orion/internal/types"
)

func task(id uint64) types.InferTask {
	return types.InferTask{FrameID: id}
}

func TestCapacityInvariant(t *testing.T) {
	q := New(4)
	for i := uint64(0); i < 10; i++ {
		q.Push(task(i))
		if q.Size() > q.Capacity() {
			t.Fatalf("size %d exceeded capacity %d", q.Size(), q.Capacity())
		}
	}
}

func TestDropOldestOnFull(t *testing.T) {
	q := New(2)
	q.Push(task(1))
	q.Push(task(2))
	q.Push(task(3)) // drops frame 1

	if got := q.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}

	first, ok := q.TryPop()
	if !ok || first.FrameID != 2 {
		t.Fatalf("first pop = %+v, want frame 2", first)
	}
}

func TestStopWakesWaiters(t *testing.T) {
	q := New(4)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop(2 * time.Second)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Stop()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("pop returned ok=true after stop with no items")
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not return promptly after stop")
	}

	if q.Push(task(1)) {
		t.Fatal("push succeeded after stop")
	}
}

func TestPopTimeout(t *testing.T) {
	q := New(4)
	start := time.Now()
	_, ok := q.Pop(50 * time.Millisecond)
	if ok {
		t.Fatal("pop returned ok=true on empty queue")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("pop returned too early: %v", elapsed)
	}
}

func TestThroughputProperty(t *testing.T) {
	q := New(8)
	const producers = 4
	const perProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(task(uint64(i)))
			}
		}()
	}
	wg.Wait()

	var consumed uint64
	for {
		_, ok := q.TryPop()
		if !ok {
			break
		}
		consumed++
	}

	produced := uint64(producers * perProducer)
	if consumed+q.Dropped() != produced {
		t.Fatalf("produced=%d consumed=%d dropped=%d", produced, consumed, q.Dropped())
	}
}

func TestResetClearsState(t *testing.T) {
	q := New(2)
	q.Push(task(1))
	q.Push(task(2))
	q.Push(task(3))
	q.Stop()

	q.Reset()
	if q.Stopped() {
		t.Fatal("queue still stopped after reset")
	}
	if q.Dropped() != 0 {
		t.Fatal("dropped counter not reset")
	}
	if q.Size() != 0 {
		t.Fatal("queue not emptied by reset")
	}
	if !q.Push(task(4)) {
		t.Fatal("push failed after reset")
	}
}
