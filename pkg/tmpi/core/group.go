package core

import (
	"sync/atomic"

	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// Group is an immutable, ordered set of global worker ids with no
// duplicates; rank in the group is the index. Reference-counted, per
// spec §3: freed (eligible for GC) when no communicator and no user
// handle retain it.
type Group struct {
	ids    []int
	rankOf map[int]int
	refs   atomic.Int32
}

// NewGroup builds a group from ids, in rank order. Callers must ensure
// ids has no duplicates; this mirrors the teacher's style of trusting
// its own internal constructors instead of re-validating everywhere.
func NewGroup(ids []int) *Group {
	cp := append([]int(nil), ids...)
	rankOf := make(map[int]int, len(cp))
	for i, id := range cp {
		rankOf[id] = i
	}
	g := &Group{ids: cp, rankOf: rankOf}
	g.refs.Store(1)
	return g
}

// Retain increments the reference count and returns g, for convenient
// chaining at the point a new owner is recorded.
func (g *Group) Retain() *Group {
	if g == nil {
		return nil
	}
	g.refs.Add(1)
	return g
}

// Release decrements the reference count. The group's backing storage is
// ordinary Go memory, so dropping to zero references has no effect
// beyond making the group eligible for garbage collection once no
// pointers remain — Release exists so Group_free has an observable,
// testable effect on the refcount rather than because Go needs it to
// reclaim memory.
func (g *Group) Release() {
	if g == nil {
		return
	}
	g.refs.Add(-1)
}

// RefCount reports the current reference count, for tests.
func (g *Group) RefCount() int32 {
	if g == nil {
		return 0
	}
	return g.refs.Load()
}

// Size returns the number of members.
func (g *Group) Size() int {
	if g == nil {
		return 0
	}
	return len(g.ids)
}

// Rank returns workerID's rank in the group, or (0, false) if absent.
func (g *Group) Rank(workerID int) (int, bool) {
	r, ok := g.rankOf[workerID]
	return r, ok
}

// WorkerAt returns the global worker id at the given rank.
func (g *Group) WorkerAt(rank int) (int, bool) {
	if rank < 0 || rank >= len(g.ids) {
		return 0, false
	}
	return g.ids[rank], true
}

// Ids returns the group's members in rank order. Callers must not mutate
// the returned slice.
func (g *Group) Ids() []int {
	return g.ids
}

// Incl creates a new group as the collection of members with the given
// ranks, mirroring tMPI_Group_incl.
func (g *Group) Incl(ranks []int) (*Group, types.ErrorCode) {
	ids := make([]int, 0, len(ranks))
	for _, r := range ranks {
		id, ok := g.WorkerAt(r)
		if !ok {
			return nil, types.ErrGroupRank
		}
		ids = append(ids, id)
	}
	return NewGroup(ids), types.Success
}
