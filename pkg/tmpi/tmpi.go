// Package tmpi is a thread-based, in-process message-passing library: a
// fixed set of goroutines ("workers"), addressed by rank within
// communicators, exchange messages by rendezvous matching instead of
// through an OS socket or pipe. It is modeled on thread_mpi, the
// intra-process MPI subset GROMACS embeds for single-node parallelism,
// adapted to Go's concurrency primitives (goroutines, channels-free
// condition variables, generics, atomics) in place of pthreads and
// manual memory management.
package tmpi

import (
	"github.com/molnplus/tmpi/pkg/tmpi/core"
	"github.com/molnplus/tmpi/pkg/tmpi/definition"
	"github.com/molnplus/tmpi/pkg/tmpi/metrics"
	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// Self is the per-thread handle passed to the function given to Init or
// InitN. Every point-to-point and collective operation in this package
// takes one explicitly, standing in for the "current thread" a
// pthread-based implementation would recover from thread-local storage.
type Self struct {
	inner *core.Self
}

// Rank returns this worker's rank within the world communicator.
func (s *Self) Rank() int { return s.inner.Rank() }

// Size returns the world communicator's size.
func (s *Self) Size() int { return s.inner.Size() }

// World returns the world communicator.
func (s *Self) World() *Communicator {
	return &Communicator{c: s.inner.WorldComm()}
}

// Barrier blocks until every member of comm has called Barrier.
func (s *Self) Barrier(comm *Communicator) error {
	code := core.Barrier(comm.c)
	return resolveErr(s, comm, code)
}

// Options configures Init/InitN: a logger and metrics registry, mirroring
// the ambient stack the rest of the repository's commands use.
type Options struct {
	Logger  types.Logger
	Metrics *metrics.Registry
}

func (o Options) logger() types.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return definition.NewDefaultLogger()
}

// Init launches GetNFromArgs(os.Args, 4) workers and runs fn on each,
// blocking until all return, mirroring tMPI_Init_fn with the worker count
// taken from a "-np N" command-line flag.
func Init(opts Options, fn func(self *Self)) error {
	return core.Init(opts.logger(), opts.Metrics, func(cs *core.Self) {
		fn(&Self{inner: cs})
	})
}

// InitN launches exactly n workers and runs fn on each, blocking until
// all return, mirroring tMPI_Init_fn.
func InitN(n int, opts Options, fn func(self *Self)) error {
	return core.InitN(n, opts.logger(), opts.Metrics, func(cs *core.Self) {
		fn(&Self{inner: cs})
	})
}

// GetNFromArgs scans args for "-np N" (or "-np=N"), returning def if
// absent or malformed.
func GetNFromArgs(args []string, def int) int {
	return core.GetNFromArgs(args, def)
}

// Initialized reports whether Init/InitN has been called and Finalize has
// not yet completed.
func Initialized() bool { return core.Initialized() }

// Finalized reports whether Finalize has completed.
func Finalized() bool { return core.Finalized() }

// Finalize is collective over the world communicator: every worker must
// call it exactly once, after which no further tmpi operation on self is
// valid.
func (s *Self) Finalize() error {
	return types.AsError(core.Finalize(s.inner))
}

// Abort terminates the process immediately with code, logging reason.
// Unlike Finalize it is not collective.
func (s *Self) Abort(code int, reason string) {
	core.Abort(s.inner, code, reason)
}
