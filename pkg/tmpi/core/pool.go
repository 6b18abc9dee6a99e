package core

import (
	"sync/atomic"

	"github.com/molnplus/tmpi/pkg/tmpi/metrics"
)

// EnvelopePool is a per-worker freelist of Envelope records. It is a
// lock-free Treiber stack: Get/Put race-free via CAS, so returning an
// envelope from a different goroutine than the one that allocated it
// never contends a mutex with the issuing worker's own allocations.
type EnvelopePool struct {
	owner *Worker
	head  atomic.Pointer[Envelope]
}

// NewEnvelopePool creates an empty pool for owner; envelopes are lazily
// allocated on first Get.
func NewEnvelopePool(owner *Worker) *EnvelopePool {
	return &EnvelopePool{owner: owner}
}

// Get pops an envelope off the freelist, allocating a new one if empty.
func (p *EnvelopePool) Get() *Envelope {
	for {
		top := p.head.Load()
		if top == nil {
			e := newEnvelope()
			e.owner = p.owner
			p.metrics().EnvelopeAllocated()
			return e
		}
		next := top.next
		if p.head.CompareAndSwap(top, next) {
			top.reset()
			top.owner = p.owner
			p.metrics().EnvelopeAllocated()
			return top
		}
	}
}

// Put returns e to its issuing worker's freelist. Safe to call from any
// goroutine, per spec §4.1: "crossing ownership back via an atomic push
// when the completer is not the issuer."
func (p *EnvelopePool) Put(e *Envelope) {
	for {
		top := p.head.Load()
		e.next = top
		if p.head.CompareAndSwap(top, e) {
			p.metrics().EnvelopeReclaimed()
			return
		}
	}
}

func (p *EnvelopePool) metrics() *metrics.Registry {
	if p.owner == nil {
		return nil
	}
	return p.owner.Metrics
}
