package core

import (
	"fmt"
	"os"
	"sync"

	"github.com/molnplus/tmpi/pkg/tmpi/metrics"
	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// World is the process-wide singleton created by Init/InitN: the fixed
// table of worker threads and the world communicator, per spec §5. There
// is exactly one per process; Init/Finalize guard it with a mutex so
// concurrent callers never race on construction or teardown.
type World struct {
	mu         sync.Mutex
	workers    []*Worker
	comm       *Communicator
	logger     types.Logger
	metrics    *metrics.Registry
	started    bool
	finalized  bool
	invoker    Invoker
	runErr     error
}

var (
	globalMu    sync.Mutex
	globalWorld *World
)

// Initialized reports whether Init/InitN has been called and Finalize has
// not yet completed.
func Initialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalWorld != nil && globalWorld.started && !globalWorld.finalized
}

// Finalized reports whether Finalize has completed.
func Finalized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalWorld != nil && globalWorld.finalized
}

// InitN creates n worker threads, the world communicator, and runs fn on
// each worker concurrently, blocking until every worker's fn returns (or
// one calls Abort). It mirrors tMPI_Init_fn: the calling goroutine is not
// itself a worker — Init hands out *Self handles explicitly since Go has
// no pthread-style thread-local storage to stash a hidden "current
// worker" in, per spec §1.
func InitN(n int, log types.Logger, reg *metrics.Registry, fn func(self *Self)) error {
	if n <= 0 {
		return fmt.Errorf("tmpi: InitN requires n > 0, got %d", n)
	}

	globalMu.Lock()
	if globalWorld != nil && globalWorld.started && !globalWorld.finalized {
		globalMu.Unlock()
		return types.ErrInit
	}
	w := &World{logger: log, metrics: reg}
	w.invoker = NewInvoker()
	globalWorld = w
	globalMu.Unlock()

	ids := make([]int, n)
	w.workers = make([]*Worker, n)
	for i := 0; i < n; i++ {
		ids[i] = i
		w.workers[i] = newWorker(i, reg, log)
	}
	w.comm = NewCommunicator(NewGroup(ids))
	w.comm.world = w
	for _, wk := range w.workers {
		wk.Self = NewCommunicator(NewGroup([]int{wk.ID}))
		wk.Self.world = w
	}
	w.metrics.SetWorkersActive(n)

	w.mu.Lock()
	w.started = true
	w.mu.Unlock()

	var runErr error
	var runErrMu sync.Mutex

	for _, wk := range w.workers {
		worker := wk
		w.invoker.Spawn(func() {
			self := &Self{world: w, worker: worker}
			defer func() {
				if p := recover(); p != nil {
					runErrMu.Lock()
					if runErr == nil {
						runErr = fmt.Errorf("tmpi: worker %d panicked: %v", worker.ID, p)
					}
					runErrMu.Unlock()
				}
			}()
			fn(self)
		})
	}
	w.invoker.Stop()

	w.mu.Lock()
	w.runErr = runErr
	w.mu.Unlock()

	return runErr
}

// Init is InitN with a worker count derived from os.Args (a -np N flag)
// or a default of 4 workers, mirroring tMPI_Get_n_thread_from_args
// chained into tMPI_Init_fn.
func Init(log types.Logger, reg *metrics.Registry, fn func(self *Self)) error {
	return InitN(GetNFromArgs(os.Args, 4), log, reg, fn)
}

// GetNFromArgs scans args for "-np N" (or "-np=N"), returning def if
// absent or malformed, mirroring tMPI_Get_N.
func GetNFromArgs(args []string, def int) int {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "-np" && i+1 < len(args) {
			if v, ok := parseInt(args[i+1]); ok && v > 0 {
				return v
			}
		}
		if len(a) > 4 && a[:4] == "-np=" {
			if v, ok := parseInt(a[4:]); ok && v > 0 {
				return v
			}
		}
	}
	return def
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// Finalize tears down the world: it is itself a barrier over WorldComm so
// every worker observes the same shutdown point, per spec §5's "Finalize
// is collective over the world communicator."
func Finalize(self *Self) types.ErrorCode {
	w := self.world
	Barrier(w.comm)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return types.Success
	}
	w.finalized = true
	w.metrics.SetWorkersActive(0)
	return types.Success
}

// Abort logs a fatal message (via the world's logger, if any) and exits
// the process immediately — no further worker runs after Abort, per spec
// §5. Unlike Finalize it is not collective: any single worker may call
// it unilaterally to terminate the whole run.
func Abort(self *Self, code int, reason string) {
	if self != nil && self.world != nil && self.world.logger != nil {
		self.world.logger.Errorf("tmpi: abort (code=%d): %s", code, reason)
	}
	os.Exit(code)
}

// Self is the per-thread handle passed into a worker's run function. It
// stands in for the ambient "current thread" context a pthread-based
// implementation would look up from thread-local storage, per spec §1.
type Self struct {
	world  *World
	worker *Worker
}

func (s *Self) Worker() *Worker         { return s.worker }
func (s *Self) World() *World           { return s.world }
func (s *Self) WorldComm() *Communicator { return s.world.comm }
func (s *Self) Rank() int {
	r, _ := s.world.comm.Rank(s.worker.ID)
	return r
}
func (s *Self) Size() int { return s.world.comm.Size() }

// WorldMailbox resolves the mailbox belonging to the worker with the
// given global id, via the world that owns comm. Communicators carry
// only a Group of ids, not a worker table, so cross-communicator sends
// reach back through the shared world for the lookup.
func WorldMailbox(comm *Communicator, workerID int) *Mailbox {
	if comm.world == nil || workerID < 0 || workerID >= len(comm.world.workers) {
		return nil
	}
	return comm.world.workers[workerID].Mailbox
}
