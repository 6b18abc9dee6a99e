package tmpi

import (
	"github.com/molnplus/tmpi/pkg/tmpi/core"
)

// ErrHandler selects what a communicator does with a non-success error.
type ErrHandler int

const (
	// ErrHandlerFatal aborts the process on the first error — the default.
	ErrHandlerFatal ErrHandler = ErrHandler(core.ErrHandlerFatal)
	// ErrHandlerReturn hands the error back to the caller instead.
	ErrHandlerReturn ErrHandler = ErrHandler(core.ErrHandlerReturn)
)

// Communicator is a Group plus an isolation context: point-to-point and
// collective operations on two communicators over the same workers never
// match each other, even mid-flight.
type Communicator struct {
	c *core.Communicator
}

// Group returns comm's member group.
func (comm *Communicator) Group() *Group {
	return &Group{g: comm.c.Group()}
}

// Size returns the number of members.
func (comm *Communicator) Size() int { return comm.c.Size() }

// Rank returns self's rank within comm.
func (comm *Communicator) Rank(self *Self) int {
	r, _ := comm.c.Rank(self.inner.Worker().ID)
	return r
}

// SetErrHandler selects comm's error-handling policy.
func (comm *Communicator) SetErrHandler(h ErrHandler) {
	comm.c.SetErrHandler(core.ErrHandlerPolicy(h))
}

// Free releases comm's reference to its member group, mirroring
// tMPI_Comm_free. comm itself must not be used for any further
// operation afterward.
func (comm *Communicator) Free() {
	comm.c.Free()
}

// Dup creates a new communicator over the same group with a fresh
// isolation context. Collective over comm.
func Dup(comm *Communicator) *Communicator {
	return &Communicator{c: core.Dup(comm.c)}
}

// Split partitions comm's members by color (workers sharing a
// non-negative color land in the same new communicator, ordered by key
// then original rank) and returns the new communicator for self's color,
// or nil if color is negative. Collective over comm: every member must
// call Split.
func Split(comm *Communicator, self *Self, color, key int) *Communicator {
	nc := core.Split(comm.c, self.inner.Worker(), color, key)
	if nc == nil {
		return nil
	}
	return &Communicator{c: nc}
}

// Create builds a new communicator over group, a subset of comm's own
// members, per spec §4.3's create(from, group) algorithm: every member
// of comm must call it, those in group get back a handle to the new
// communicator, everyone else gets nil.
func Create(comm *Communicator, self *Self, group *Group) *Communicator {
	nc := core.Create(comm.c, self.inner.Worker(), group.g)
	if nc == nil {
		return nil
	}
	return &Communicator{c: nc}
}
