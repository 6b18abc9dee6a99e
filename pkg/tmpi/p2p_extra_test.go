package tmpi_test

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/molnplus/tmpi/pkg/tmpi"
)

// Point-to-point over a split communicator whose new-rank order differs
// from global worker id order — the case Send's dest->id translation
// already handled but Recv's source->id translation previously did not.
func TestSplit_SendRecvUsesGlobalWorkerID(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 4
	colors := []int{0, 1, 0, 1}
	keys := []int{0, 0, -2, -2} // lower original rank in each color sorts last

	statuses := make([]tmpi.Status, n)
	values := make([]int, n)

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		rank := self.Rank()
		world := self.World()
		nc := tmpi.Split(world, self, colors[rank], keys[rank])
		newRank := nc.Rank(self)

		switch newRank {
		case 0:
			send := []int{100 + rank}
			if err := tmpi.Send(self, send, 1, 7, nc); err != nil {
				t.Errorf("rank %d: Send failed: %v", rank, err)
			}
		case 1:
			recv := make([]int, 1)
			statuses[rank] = tmpi.Recv(self, recv, 0, 7, nc)
			values[rank] = recv[0]
		}

		self.Finalize()
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}

	// color 0 = original ranks {0, 2}; key -2 (rank 2) sorts before key 0
	// (rank 0), so new rank 0 is global worker 2 and new rank 1 is global
	// worker 0.
	if statuses[0].Source != 0 {
		t.Errorf("global worker 0: status.Source = %d, want 0 (the sender's new rank)", statuses[0].Source)
	}
	if values[0] != 102 {
		t.Errorf("global worker 0: received value = %d, want 102 (from global worker 2)", values[0])
	}

	// color 1 = original ranks {1, 3}; key -2 (rank 3) sorts before key 0
	// (rank 1), so new rank 0 is global worker 3 and new rank 1 is global
	// worker 1.
	if statuses[1].Source != 0 {
		t.Errorf("global worker 1: status.Source = %d, want 0 (the sender's new rank)", statuses[1].Source)
	}
	if values[1] != 103 {
		t.Errorf("global worker 1: received value = %d, want 103 (from global worker 3)", values[1])
	}
}

// An out-of-range Send destination returns ErrSendDest instead of
// silently resolving to worker 0, and does so as a plain error rather
// than aborting the process, since the communicator is explicitly set to
// the RETURN error-handler policy.
func TestSend_OutOfRangeDestReturnsSendDest(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 2
	var sendErr error

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		world := self.World()
		if self.Rank() == 0 {
			world.SetErrHandler(tmpi.ErrHandlerReturn)
			sendErr = tmpi.Send(self, []int{1}, n, 0, world)
		}
		self.Finalize()
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}

	if sendErr == nil {
		t.Fatal("Send with out-of-range dest should return an error")
	}
	if sendErr.Error() != "tmpi: SEND_DEST" {
		t.Errorf("sendErr = %v, want tmpi: SEND_DEST", sendErr)
	}
}

// An out-of-range Recv/Irecv source yields a status carrying ErrRecvSrc
// instead of panicking or silently matching the wrong worker.
func TestRecv_OutOfRangeSourceReturnsRecvSrc(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 2
	var recvStatus tmpi.Status

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		world := self.World()
		if self.Rank() == 0 {
			buf := make([]int, 1)
			recvStatus = tmpi.Recv(self, buf, n, 0, world)
		}
		self.Finalize()
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}

	if recvStatus.Error.String() != "RECV_SRC" {
		t.Errorf("status.Error = %v, want RECV_SRC", recvStatus.Error)
	}
}

// Request.Test reports not-done without side effects while a request is
// outstanding (polled before the peer has posted its side), then
// behaves like Wait once it completes: it releases the envelope and
// hands back the same status Wait would.
func TestRequest_Test(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 2
	var gotStatus tmpi.Status
	var sawPendingFirst bool

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		world := self.World()
		switch self.Rank() {
		case 0:
			if err := self.Barrier(world); err != nil {
				t.Errorf("rank 0: Barrier failed: %v", err)
			}
			req := tmpi.Isend(self, []int{42}, 1, 9, world)
			req.Wait()
		case 1:
			buf := make([]int, 1)
			req := tmpi.Irecv(self, buf, 0, 9, world)
			if _, done := req.Test(); done {
				t.Error("Test() reported done before the sender even posted")
			} else {
				sawPendingFirst = true
			}
			if err := self.Barrier(world); err != nil {
				t.Errorf("rank 1: Barrier failed: %v", err)
			}
			for {
				if st, done := req.Test(); done {
					gotStatus = st
					break
				}
			}
		}
		self.Finalize()
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}
	if !sawPendingFirst {
		t.Error("Test() never observed a not-done request")
	}
	if gotStatus.Error.String() != "SUCCESS" {
		t.Errorf("status.Error = %v, want SUCCESS", gotStatus.Error)
	}
}

// Test on a nil Request, and a second Test/Wait on an already-consumed
// one, report ErrRequests instead of panicking or double-releasing.
func TestRequest_TestNilAndDoubleConsume(t *testing.T) {
	defer goleak.VerifyNone(t)

	var r *tmpi.Request
	if st, done := r.Test(); !done || st.Error.String() != "REQUESTS" {
		t.Errorf("nil Request.Test() = (%v, %v), want (REQUESTS, true)", st, done)
	}
	if st := r.Wait(); st.Error.String() != "REQUESTS" {
		t.Errorf("nil Request.Wait() = %v, want REQUESTS", st)
	}

	const n = 2
	var secondWait tmpi.Status

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		world := self.World()
		switch self.Rank() {
		case 0:
			req := tmpi.Isend(self, []int{7}, 1, 0, world)
			req.Wait()
			secondWait = req.Wait()
		case 1:
			tmpi.Irecv(self, make([]int, 1), 0, 0, world).Wait()
		}
		self.Finalize()
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}
	if secondWait.Error.String() != "REQUESTS" {
		t.Errorf("second Wait on a consumed Request = %v, want REQUESTS", secondWait)
	}
}

// Create builds a communicator over a subset of world's members; those
// outside the group get nil back. Free is then exercised on both the
// created communicator and the group that built it.
func TestCreate_BuildsCommunicatorOverSubsetAndFree(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 4
	sizes := make([]int, n)
	gotNil := make([]bool, n)

	err := tmpi.InitN(n, tmpi.Options{}, func(self *tmpi.Self) {
		rank := self.Rank()
		world := self.World()

		evenGroup, err := world.Group().Incl([]int{0, 2})
		if err != nil {
			t.Fatalf("rank %d: Incl failed: %v", rank, err)
		}

		nc := tmpi.Create(world, self, evenGroup)
		if nc != nil {
			sizes[rank] = nc.Size()
			if err := self.Barrier(nc); err != nil {
				t.Errorf("rank %d: Barrier over created comm failed: %v", rank, err)
			}
			nc.Free()
		} else {
			gotNil[rank] = true
		}

		evenGroup.Free()
		self.Finalize()
	})
	if err != nil {
		t.Fatalf("InitN failed: %v", err)
	}

	if sizes[0] != 2 || sizes[2] != 2 {
		t.Errorf("created communicator sizes = %d, %d, want 2, 2", sizes[0], sizes[2])
	}
	if !gotNil[1] || !gotNil[3] {
		t.Error("ranks not in group should receive a nil communicator from Create")
	}
}
