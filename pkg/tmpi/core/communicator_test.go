package core

import (
	"sync"
	"testing"
	"time"
)

func TestBarrier_NoCallerReturnsEarly(t *testing.T) {
	const n = 6
	comm := testComm(n)

	var arrived int32Counter
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		delay := time.Duration(i) * time.Millisecond
		go func() {
			defer wg.Done()
			time.Sleep(delay)
			arrived.add(1)
			Barrier(comm)
			if arrived.load() != n {
				t.Errorf("Barrier returned before all %d callers had arrived (saw %d)", n, arrived.load())
			}
		}()
	}
	wg.Wait()
}

// int32Counter is a tiny test-only atomic counter; it exists because the
// production code has no need for a plain arrival counter outside of
// Scratch's own internal bookkeeping.
type int32Counter struct {
	mu sync.Mutex
	n  int
}

func (c *int32Counter) add(d int) {
	c.mu.Lock()
	c.n += d
	c.mu.Unlock()
}

func (c *int32Counter) load() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestBarrier_AdvancesGenerationOnce(t *testing.T) {
	const n = 4
	comm := testComm(n)
	before := comm.scratch.Generation()

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			Barrier(comm)
		}()
	}
	wg.Wait()

	after := comm.scratch.Generation()
	if after != before+1 {
		t.Errorf("generation after one barrier = %d, want %d", after, before+1)
	}
}

func TestSplit_OrdersByKeyThenOriginalRank(t *testing.T) {
	// Mirrors spec scenario 4: 3 workers, colors [1, 2, 1], keys [5, 0, 3].
	const n = 3
	ids := []int{100, 200, 300} // original ranks 0, 1, 2
	comm := NewCommunicator(NewGroup(ids))
	workers := make([]*Worker, n)
	for i, id := range ids {
		workers[i] = newWorker(id, nil, nil)
	}

	colors := []int{1, 2, 1}
	keys := []int{5, 0, 3}

	results := make([]*Communicator, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = Split(comm, workers[i], colors[i], keys[i])
		}()
	}
	wg.Wait()

	color1 := results[0] // rank 0's resulting communicator
	color2 := results[1]

	if color1.Size() != 2 {
		t.Fatalf("color-1 communicator size = %d, want 2", color1.Size())
	}
	// original rank 2 (key 3) sorts before original rank 0 (key 5).
	if w, _ := color1.Group().WorkerAt(0); w != 300 {
		t.Errorf("color-1 rank 0 = worker %d, want 300 (original rank 2)", w)
	}
	if w, _ := color1.Group().WorkerAt(1); w != 100 {
		t.Errorf("color-1 rank 1 = worker %d, want 100 (original rank 0)", w)
	}
	if results[2] != results[0] {
		t.Errorf("original rank 2 did not land in the same communicator as original rank 0")
	}

	if color2.Size() != 1 {
		t.Fatalf("color-2 communicator size = %d, want 1", color2.Size())
	}
	if w, _ := color2.Group().WorkerAt(0); w != 200 {
		t.Errorf("color-2 rank 0 = worker %d, want 200", w)
	}
}

func TestSplit_NegativeColorExcludesCaller(t *testing.T) {
	const n = 2
	comm := testComm(n)
	workers := []*Worker{newWorker(0, nil, nil), newWorker(1, nil, nil)}

	results := make([]*Communicator, n)
	var wg sync.WaitGroup
	wg.Add(n)
	go func() {
		defer wg.Done()
		results[0] = Split(comm, workers[0], -1, 0)
	}()
	go func() {
		defer wg.Done()
		results[1] = Split(comm, workers[1], 0, 0)
	}()
	wg.Wait()

	if results[0] != nil {
		t.Errorf("negative color should yield a nil communicator, got %v", results[0])
	}
	if results[1] == nil || results[1].Size() != 1 {
		t.Errorf("color 0 caller should get a size-1 communicator")
	}
}

func TestDup_FreshIsolationSameGroup(t *testing.T) {
	const n = 3
	comm := testComm(n)
	results := make([]*Communicator, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = Dup(comm)
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("Dup returned a different communicator pointer per caller")
		}
	}
	if results[0].isolation == comm.isolation {
		t.Errorf("Dup did not assign a fresh isolation context")
	}
	if results[0].Size() != comm.Size() {
		t.Errorf("Dup changed the group size: %d vs %d", results[0].Size(), comm.Size())
	}
}
