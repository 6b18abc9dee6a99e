package tmpi

import (
	"unsafe"

	"github.com/molnplus/tmpi/pkg/tmpi/core"
	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// sliceBytes derives a byte view of a generic slice without copying,
// the zero-copy path generics make possible over the raw-byte envelope
// machinery underneath.
func sliceBytes[T any](buf []T) (unsafe.Pointer, int) {
	if len(buf) == 0 {
		return nil, 0
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	return unsafe.Pointer(&buf[0]), len(buf) * elemSize
}

// Send performs a blocking send of buf to dest with tag, over comm. dest
// is a rank within comm, translated to the addressee's global worker id
// before routing; an out-of-range dest returns ErrSendDest without
// posting anything. It returns once a matching receive has copied buf's
// contents: if no receive has been posted yet, the envelope waits in the
// destination's unexpected-sends queue and Send stays blocked until a
// receive matches it, so buf is safe to reuse on return.
func Send[T any](self *Self, buf []T, dest, tag int, comm *Communicator) error {
	w := self.inner.Worker()
	destID, ok := comm.c.Group().WorkerAt(dest)
	if !ok {
		return resolveErr(self, comm, types.ErrSendDest)
	}
	ptr, n := sliceBytes(buf)
	env := w.AllocSend(destID, tag, types.Byte, ptr, n)
	env.Comm = comm.c
	destMailbox := destMailboxFor(comm.c, destID)
	core.PostSend(destMailbox, env)
	env.WaitDone()
	code := env.Err
	env.Release()
	return resolveErr(self, comm, code)
}

// Recv performs a blocking receive into buf, accepting a message from
// source (or AnySource) with tag (or AnyTag) over comm, and returns the
// completed status. source, like dest in Send, is a rank within comm;
// it is translated to a global worker id before matching, and an
// out-of-range source (other than AnySource) yields a status carrying
// ErrRecvSrc without posting anything.
func Recv[T any](self *Self, buf []T, source, tag int, comm *Communicator) Status {
	peer, ok := resolveSource(comm, source)
	if !ok {
		return Status{Error: types.ErrRecvSrc}
	}
	ptr, n := sliceBytes(buf)
	w := self.inner.Worker()
	env := w.AllocRecv(peer, tag, types.Byte, ptr, n)
	env.Comm = comm.c
	core.PostRecv(w.Mailbox, env)
	env.WaitDone()
	st := env.Status()
	env.Release()
	return st
}

// Isend posts a non-blocking send and returns immediately with a Request
// to wait on. An out-of-range dest yields a Request that carries
// ErrSendDest and completes immediately without posting anything.
func Isend[T any](self *Self, buf []T, dest, tag int, comm *Communicator) *Request {
	w := self.inner.Worker()
	destID, ok := comm.c.Group().WorkerAt(dest)
	if !ok {
		return &Request{err: types.ErrSendDest}
	}
	ptr, n := sliceBytes(buf)
	env := w.AllocSend(destID, tag, types.Byte, ptr, n)
	env.Comm = comm.c
	destMailbox := destMailboxFor(comm.c, destID)
	core.PostSend(destMailbox, env)
	return &Request{env: env}
}

// Irecv posts a non-blocking receive and returns immediately with a
// Request to wait on. An out-of-range source (other than AnySource)
// yields a Request that carries ErrRecvSrc and completes immediately
// without posting anything.
func Irecv[T any](self *Self, buf []T, source, tag int, comm *Communicator) *Request {
	peer, ok := resolveSource(comm, source)
	if !ok {
		return &Request{err: types.ErrRecvSrc}
	}
	ptr, n := sliceBytes(buf)
	w := self.inner.Worker()
	env := w.AllocRecv(peer, tag, types.Byte, ptr, n)
	env.Comm = comm.c
	core.PostRecv(w.Mailbox, env)
	return &Request{env: env}
}

// resolveSource translates a Recv/Irecv source rank into the global
// worker id matches() compares Envelope.Peer against, passing the
// AnySource wildcard through unconverted since it is never a valid rank
// to look up.
func resolveSource(comm *Communicator, source int) (int, bool) {
	if source == types.AnySource {
		return types.AnySource, true
	}
	return comm.c.Group().WorkerAt(source)
}

// Sendrecv posts a send and a receive together and waits for both, the
// usual way to avoid deadlock in a ring or other cyclic communication
// pattern without manually ordering Isend/Irecv/Waitall.
func Sendrecv[TS, TR any](self *Self, sendBuf []TS, dest, sendTag int, recvBuf []TR, source, recvTag int, comm *Communicator) Status {
	sreq := Isend(self, sendBuf, dest, sendTag, comm)
	rreq := Irecv(self, recvBuf, source, recvTag, comm)
	sreq.Wait()
	return rreq.Wait()
}

// destMailboxFor resolves the mailbox belonging to the communicator
// member with the given global worker id. Communicators don't carry a
// worker table of their own (only a group of ids), so this reaches back
// through the world that owns comm for the worker lookup — self
// communicators and split/dup'd ones share the same world by
// construction.
func destMailboxFor(comm *core.Communicator, workerID int) *core.Mailbox {
	return core.WorldMailbox(comm, workerID)
}
