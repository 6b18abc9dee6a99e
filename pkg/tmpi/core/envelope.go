package core

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// Role distinguishes a posted send from a posted receive.
type Role int

const (
	RoleSend Role = iota
	RoleRecv
)

type envelopeState int32

const (
	stateInit envelopeState = iota
	statePosted
	stateMatched
	stateCopying
	stateDone
)

// Envelope represents one in-flight send-or-receive, per spec §3. Once
// matched, Role/peer/byte-count are frozen; the completion flag
// transitions 0->1 exactly once.
type Envelope struct {
	Role Role

	// Peer is the destination worker id for a send, or the requested
	// source worker id for a receive (types.AnySource for wildcard).
	Peer int
	// Tag is the message tag, or types.AnyTag for a wildcard receive.
	Tag int

	Comm *Communicator
	Type types.Datatype

	// BufPtr/BufLen describe the caller's buffer: payload length for a
	// send, capacity for a receive. Both are derived via unsafe from a
	// generic []T slice at the public API boundary, giving zero-copy
	// transfer underneath the typed wrappers.
	BufPtr unsafe.Pointer
	BufLen int

	Matched        *Envelope
	Transferred    int
	Err            types.ErrorCode
	ResolvedSource int
	ResolvedTag    int

	owner *Worker
	next  *Envelope

	state int32 // envelopeState, accessed atomically
	done  atomic.Bool

	mu   sync.Mutex
	cond *sync.Cond
}

func newEnvelope() *Envelope {
	e := &Envelope{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// reset clears all per-transfer fields so the envelope can be reused from
// the pool; the cond/mutex survive across reuse.
func (e *Envelope) reset() {
	e.Role = RoleSend
	e.Peer = 0
	e.Tag = 0
	e.Comm = nil
	e.Type = types.Datatype{}
	e.BufPtr = nil
	e.BufLen = 0
	e.Matched = nil
	e.Transferred = 0
	e.Err = types.Success
	e.ResolvedSource = 0
	e.ResolvedTag = 0
	e.next = nil
	atomic.StoreInt32(&e.state, int32(stateInit))
	e.done.Store(false)
}

func (e *Envelope) setState(s envelopeState) {
	atomic.StoreInt32(&e.state, int32(s))
}

func (e *Envelope) getState() envelopeState {
	return envelopeState(atomic.LoadInt32(&e.state))
}

// Done reports whether the envelope's completion flag has been set,
// without blocking.
func (e *Envelope) Done() bool {
	return e.done.Load()
}

// waitDone blocks until the completion flag is set.
func (e *Envelope) waitDone() {
	if e.done.Load() {
		return
	}
	e.mu.Lock()
	for !e.done.Load() {
		e.cond.Wait()
	}
	e.mu.Unlock()
}

// WaitDone blocks until the envelope's completion flag is set. Exported
// for the public Request.Wait wrapper outside this package.
func (e *Envelope) WaitDone() {
	e.waitDone()
}

// Release returns the envelope to its owning worker's pool. Exported for
// the public Request.Wait wrapper outside this package.
func (e *Envelope) Release() {
	e.owner.Pool.Put(e)
}

// signalDone marks the envelope complete and wakes any waiter.
func (e *Envelope) signalDone() {
	e.mu.Lock()
	e.setState(stateDone)
	e.done.Store(true)
	e.cond.Broadcast()
	e.mu.Unlock()
}

// Status renders the envelope's outcome as a user-visible Status record.
func (e *Envelope) Status() types.Status {
	return types.Status{
		Source:      e.ResolvedSource,
		Tag:         e.ResolvedTag,
		Error:       e.Err,
		Transferred: e.Transferred,
	}
}

func (e *Envelope) bytes() []byte {
	if e.BufPtr == nil || e.BufLen == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(e.BufPtr), e.BufLen)
}
