package core

import (
	"unsafe"

	"github.com/molnplus/tmpi/pkg/tmpi/metrics"
	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// Worker is one of the fixed threads created at init, addressable by a
// dense global id. It owns a mailbox, a private envelope freelist and a
// self communicator (TMPI_COMM_SELF's per-worker backing), per spec §3.
type Worker struct {
	ID int

	Mailbox *Mailbox
	Pool    *EnvelopePool
	Self    *Communicator

	Metrics *metrics.Registry
	Logger  types.Logger
}

func newWorker(id int, m *metrics.Registry, log types.Logger) *Worker {
	w := &Worker{ID: id, Metrics: m, Logger: log}
	w.Mailbox = NewMailbox(w, m)
	w.Pool = NewEnvelopePool(w)
	return w
}

// AllocSend prepares a send envelope from this worker's pool.
func (w *Worker) AllocSend(dest, tag int, dt types.Datatype, ptr unsafe.Pointer, length int) *Envelope {
	e := w.Pool.Get()
	e.Role = RoleSend
	e.Peer = dest
	e.Tag = tag
	e.Type = dt
	e.BufPtr = ptr
	e.BufLen = length
	e.ResolvedSource = w.ID
	e.ResolvedTag = tag
	return e
}

// AllocRecv prepares a receive envelope from this worker's pool.
func (w *Worker) AllocRecv(source, tag int, dt types.Datatype, ptr unsafe.Pointer, capacity int) *Envelope {
	e := w.Pool.Get()
	e.Role = RoleRecv
	e.Peer = source
	e.Tag = tag
	e.Type = dt
	e.BufPtr = ptr
	e.BufLen = capacity
	return e
}

// Release returns an envelope to its issuing worker's pool.
func (w *Worker) Release(e *Envelope) {
	owner := e.owner
	if owner == nil {
		owner = w
	}
	owner.Pool.Put(e)
}
