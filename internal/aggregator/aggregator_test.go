package aggregator

import (
	"sync"
	"testing"

	"github.com/care/orion/internal/types"
)

func TestCompletesExactlyOnce(t *testing.T) {
	a := New(3, types.FrameResult{StreamID: "cam1", FrameID: 7})

	var winners int
	var mu sync.Mutex
	var results []types.FrameResult

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fr, ok := a.Add(types.ModelResult{TaskLabel: string(rune('a' + i))})
			if ok {
				mu.Lock()
				winners++
				results = append(results, fr)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
	if len(results[0].Models) != 3 {
		t.Fatalf("winning FrameResult has %d models, want 3", len(results[0].Models))
	}
	if results[0].StreamID != "cam1" || results[0].FrameID != 7 {
		t.Fatalf("winning FrameResult lost base fields: %+v", results[0])
	}
}

func TestConcurrentAddObservesAllSiblings(t *testing.T) {
	const n = 50
	for trial := 0; trial < 20; trial++ {
		a := New(n, types.FrameResult{})
		var wg sync.WaitGroup
		var fr types.FrameResult
		var ok bool
		var mu sync.Mutex

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r, winner := a.Add(types.ModelResult{TaskLabel: "m"})
				if winner {
					mu.Lock()
					fr, ok = r, winner
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		if !ok {
			t.Fatalf("trial %d: no winner emerged", trial)
		}
		if len(fr.Models) != n {
			t.Fatalf("trial %d: winner saw %d of %d sibling results", trial, len(fr.Models), n)
		}
	}
}

func TestIsCompleteAndCounters(t *testing.T) {
	a := New(2, types.FrameResult{})
	if a.IsComplete() {
		t.Fatal("fresh aggregator reports complete")
	}
	a.Add(types.ModelResult{})
	if a.IsComplete() {
		t.Fatal("aggregator reports complete after 1 of 2")
	}
	if a.Total() != 2 {
		t.Fatalf("Total() = %d, want 2", a.Total())
	}
	a.Add(types.ModelResult{})
	if !a.IsComplete() {
		t.Fatal("aggregator does not report complete after 2 of 2")
	}
	if a.Completed() != 2 {
		t.Fatalf("Completed() = %d, want 2", a.Completed())
	}
}
