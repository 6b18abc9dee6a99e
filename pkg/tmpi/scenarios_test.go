package tmpi_test

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/molnplus/tmpi/pkg/tmpi"
)

// Scenario 1: 4 workers, ring send-recv.
func TestScenario_RingSendRecv(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 4
	sources := make([]int, n)
	values := make([]int, n)
	tags := make([]int, n)

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		rank := self.Rank()
		world := self.World()
		dest := (rank + 1) % n
		source := (rank - 1 + n) % n

		send := []int{rank}
		recv := make([]int, 1)
		status := tmpi.Sendrecv(self, send, dest, 0, recv, source, 0, world)

		sources[rank] = status.Source
		tags[rank] = status.Tag
		values[rank] = recv[0]

		if err := self.Finalize(); err != nil {
			t.Errorf("rank %d: Finalize failed: %v", rank, err)
		}
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}

	for i := 0; i < n; i++ {
		want := (i - 1 + n) % n
		if sources[i] != want {
			t.Errorf("rank %d: status.Source = %d, want %d", i, sources[i], want)
		}
		if tags[i] != 0 {
			t.Errorf("rank %d: status.Tag = %d, want 0", i, tags[i])
		}
		if values[i] != want {
			t.Errorf("rank %d: received value = %d, want %d", i, values[i], want)
		}
	}
}

// Scenario 2: 8 workers, bcast of an 8-element array from root 3.
func TestScenario_Bcast(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 8
	const root = 3
	data := []int{10, 20, 30, 40, 50, 60, 70, 80}
	results := make([][]int, n)

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		rank := self.Rank()
		world := self.World()

		buf := make([]int, len(data))
		if rank == root {
			copy(buf, data)
		}
		if err := tmpi.Bcast(self, buf, root, world); err != nil {
			t.Errorf("rank %d: Bcast failed: %v", rank, err)
		}
		results[rank] = buf

		self.Finalize()
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}

	for rank, buf := range results {
		for i, v := range buf {
			if v != data[i] {
				t.Errorf("rank %d: buf[%d] = %d, want %d", rank, i, v, data[i])
			}
		}
	}
}

// Scenario 3: 4 workers, reduce(SUM, root=0) on 3-element arrays.
func TestScenario_Reduce(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 4
	const sentinel = -1
	results := make([][]int, n)

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		rank := self.Rank()
		world := self.World()

		send := []int{rank, rank * 2, rank * 3}
		recv := []int{sentinel, sentinel, sentinel}
		if err := tmpi.Reduce(self, send, recv, tmpi.Sum, 0, world); err != nil {
			t.Errorf("rank %d: Reduce failed: %v", rank, err)
		}
		results[rank] = recv

		self.Finalize()
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}

	want := []int{6, 12, 18}
	for i, v := range results[0] {
		if v != want[i] {
			t.Errorf("root result[%d] = %d, want %d", i, v, want[i])
		}
	}
	for rank := 1; rank < n; rank++ {
		for i, v := range results[rank] {
			if v != sentinel {
				t.Errorf("rank %d: recv buffer was modified at [%d]: %d", rank, i, v)
			}
		}
	}
}

// Scenario 4: 3 workers, split with colors [1, 2, 1], keys [5, 0, 3].
func TestScenario_Split(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 3
	colors := []int{1, 2, 1}
	keys := []int{5, 0, 3}

	sizes := make([]int, n)
	newRanks := make([]int, n)

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		rank := self.Rank()
		world := self.World()

		nc := tmpi.Split(world, self, colors[rank], keys[rank])
		if nc != nil {
			sizes[rank] = nc.Size()
			newRanks[rank] = nc.Rank(self)
		} else {
			sizes[rank] = -1
		}

		self.Finalize()
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}

	// color 1 holds original ranks 2 and 0, ordered by key ascending:
	// rank 2 (key 3) then rank 0 (key 5).
	if sizes[0] != 2 {
		t.Errorf("rank 0: new communicator size = %d, want 2", sizes[0])
	}
	if sizes[2] != 2 {
		t.Errorf("rank 2: new communicator size = %d, want 2", sizes[2])
	}
	if newRanks[2] != 0 {
		t.Errorf("rank 2 (key 3) should be new rank 0, got %d", newRanks[2])
	}
	if newRanks[0] != 1 {
		t.Errorf("rank 0 (key 5) should be new rank 1, got %d", newRanks[0])
	}

	// color 2 holds original rank 1 alone.
	if sizes[1] != 1 {
		t.Errorf("rank 1: new communicator size = %d, want 1", sizes[1])
	}
	if newRanks[1] != 0 {
		t.Errorf("rank 1: new rank = %d, want 0", newRanks[1])
	}
}

// Scenario 5: 2 workers, isend+irecv+waitall with a buffer size mismatch.
func TestScenario_IsendIrecvBufferSizeMismatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 2
	statuses := make([]tmpi.Status, n)

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		rank := self.Rank()
		world := self.World()

		switch rank {
		case 0:
			sendBuf := make([]int64, 2) // 16 bytes
			req := tmpi.Isend(self, sendBuf, 1, 0, world)
			statuses[0] = tmpi.Waitall([]*tmpi.Request{req})[0]
		case 1:
			recvBuf := make([]int64, 1) // 8 bytes
			req := tmpi.Irecv(self, recvBuf, 0, 0, world)
			statuses[1] = tmpi.Waitall([]*tmpi.Request{req})[0]
		}

		self.Finalize()
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}

	recvStatus := statuses[1]
	if recvStatus.Error.String() != "XFER_BUFSIZE" {
		t.Errorf("receiver status.Error = %v, want XFER_BUFSIZE", recvStatus.Error)
	}
	if recvStatus.Transferred != 8 {
		t.Errorf("receiver status.Transferred = %d, want 8", recvStatus.Transferred)
	}
}

// Scenario 6: 4 workers, concurrent barrier followed by allreduce(MAX).
func TestScenario_BarrierThenAllreduce(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 4
	results := make([][]int, n)

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		rank := self.Rank()
		world := self.World()

		if err := self.Barrier(world); err != nil {
			t.Errorf("rank %d: Barrier failed: %v", rank, err)
		}

		send := []int{rank, -rank}
		recv := make([]int, 2)
		if err := tmpi.Allreduce(self, send, recv, tmpi.Max, world); err != nil {
			t.Errorf("rank %d: Allreduce failed: %v", rank, err)
		}
		results[rank] = recv

		self.Finalize()
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}

	want := []int{n - 1, 0}
	for rank, recv := range results {
		for i, v := range recv {
			if v != want[i] {
				t.Errorf("rank %d: recv[%d] = %d, want %d", rank, i, v, want[i])
			}
		}
	}
}
