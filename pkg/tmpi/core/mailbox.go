package core

import (
	"fmt"
	"sync"

	"github.com/molnplus/tmpi/pkg/tmpi/metrics"
)

// Mailbox is a worker's inbox: two ordered queues — posted receives this
// worker has entered but not yet satisfied, and unexpected sends that
// arrived before a matching receive — guarded by one mutex. Waiters for a
// not-yet-matched envelope block on the envelope's own condition
// variable, signaled once the matcher (running on whichever goroutine
// discovers the pairing) completes the transfer.
type Mailbox struct {
	owner   *Worker
	metrics *metrics.Registry

	mu              sync.Mutex
	postedReceives  []*Envelope
	unexpectedSends []*Envelope
}

// NewMailbox creates an empty mailbox for owner.
func NewMailbox(owner *Worker, m *metrics.Registry) *Mailbox {
	return &Mailbox{owner: owner, metrics: m}
}

func (mb *Mailbox) label() string {
	if mb.owner == nil {
		return "?"
	}
	return fmt.Sprintf("w%d", mb.owner.ID)
}

// reportDepth publishes queue lengths to metrics; caller must hold mu.
func (mb *Mailbox) reportDepth() {
	mb.metrics.SetMailboxDepth(mb.label(), "posted_receives", len(mb.postedReceives))
	mb.metrics.SetMailboxDepth(mb.label(), "unexpected_sends", len(mb.unexpectedSends))
}
