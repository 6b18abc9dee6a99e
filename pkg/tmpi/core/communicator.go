package core

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// ErrHandlerPolicy selects what an operation does with a non-success
// ErrorCode, per spec §6.
type ErrHandlerPolicy int

const (
	// ErrHandlerFatal aborts the process on first error, the default for
	// every communicator except as overridden by Comm_set_errhandler.
	ErrHandlerFatal ErrHandlerPolicy = iota
	// ErrHandlerReturn hands the ErrorCode back to the caller instead.
	ErrHandlerReturn
)

// isolationCounter issues monotonically increasing isolation contexts,
// process-wide, so that no two communicators ever collide regardless of
// which one was constructed from which.
var isolationCounter atomic.Uint64

func nextIsolation() uint64 {
	return isolationCounter.Add(1)
}

// Communicator is a Group plus an isolation context, a collective scratch
// region, and an error-handler policy, per spec §3. Point-to-point and
// collective traffic on two communicators over the same worker pair never
// matches, because matches() compares isolation contexts.
type Communicator struct {
	group     *Group
	isolation uint64
	scratch   *Scratch
	errPolicy atomic.Int32 // ErrHandlerPolicy

	world *World
}

// NewCommunicator wraps group with a fresh isolation context and scratch
// region. The caller supplies the group; NewCommunicator does not retain
// an extra reference — callers that want to keep the group alive
// independently of the communicator should Retain() it themselves.
func NewCommunicator(group *Group) *Communicator {
	c := &Communicator{
		group:     group,
		isolation: nextIsolation(),
		scratch:   newScratch(),
	}
	c.errPolicy.Store(int32(ErrHandlerFatal))
	return c
}

func (c *Communicator) Group() *Group { return c.group }
func (c *Communicator) Size() int     { return c.group.Size() }

func (c *Communicator) Rank(workerID int) (int, bool) {
	return c.group.Rank(workerID)
}

func (c *Communicator) ErrHandler() ErrHandlerPolicy {
	return ErrHandlerPolicy(c.errPolicy.Load())
}

func (c *Communicator) SetErrHandler(p ErrHandlerPolicy) {
	c.errPolicy.Store(int32(p))
}

// Free releases c's reference to its group, mirroring tMPI_Comm_free.
// c's scratch region is plain Go memory, reclaimed by the garbage
// collector once unreferenced; Free's only observable effect is on the
// group's reference count.
func (c *Communicator) Free() {
	c.group.Release()
}

// Dup creates a new communicator over the same group with a fresh
// isolation context, per spec §4.3: one shared object, not one per
// caller — every member of c must observe the identical new
// communicator (same isolation context, same Scratch), so exactly one
// caller constructs it inside the round's critical section and every
// other caller reads that same pointer back.
func Dup(c *Communicator) *Communicator {
	n := c.group.Size()
	r := c.scratch.joinRound(n, "dup", func() interface{} { return &dupPayload{} })
	p := r.payload.(*dupPayload)

	c.scratch.mu.Lock()
	if p.comm == nil {
		nc := NewCommunicator(c.group.Retain())
		nc.SetErrHandler(c.ErrHandler())
		nc.world = c.world
		p.comm = nc
	}
	c.scratch.mu.Unlock()

	c.scratch.leaveRound(r, n)
	return p.comm
}

type dupPayload struct {
	comm *Communicator
}

// Split partitions c's members by color (workers sharing a non-negative
// color end up in the same new communicator, ordered by key then by
// original rank) and returns the communicator for the caller's own color,
// or nil if color is negative (the caller is excluded). Every member of c
// must call Split; the rendezvous exchanges every member's (color, key)
// through the parent's scratch under a single round, and the per-color
// communicators are built exactly once — by whichever caller's arrival
// completes the round — and shared by pointer with every other member of
// the same color, the same sharing discipline Dup uses.
func Split(c *Communicator, self *Worker, color, key int) *Communicator {
	n := c.group.Size()
	rank, _ := c.group.Rank(self.ID)

	r := c.scratch.joinRound(n, "split", func() interface{} {
		return &splitPayload{entries: make(map[int]splitEntry, n)}
	})
	p := r.payload.(*splitPayload)

	c.scratch.mu.Lock()
	p.entries[rank] = splitEntry{workerID: self.ID, color: color, key: key}
	p.count++
	if p.count == n {
		p.comms = buildSplitComms(c, p.entries)
		c.scratch.cond.Broadcast()
	}
	for p.count < n {
		c.scratch.cond.Wait()
	}
	nc := p.comms[color]
	c.scratch.mu.Unlock()

	c.scratch.leaveRound(r, n)
	return nc
}

// buildSplitComms groups entries by non-negative color, sorts each group
// by key then original rank, and constructs one new communicator per
// color. Negative colors are omitted, so a lookup by a negative color in
// the returned map correctly yields nil.
func buildSplitComms(c *Communicator, entries map[int]splitEntry) map[int]*Communicator {
	type keyed struct {
		rank  int
		entry splitEntry
	}
	byColor := make(map[int][]keyed)
	for rk, e := range entries {
		if e.color < 0 {
			continue
		}
		byColor[e.color] = append(byColor[e.color], keyed{rank: rk, entry: e})
	}

	comms := make(map[int]*Communicator, len(byColor))
	for color, members := range byColor {
		sort.Slice(members, func(i, j int) bool {
			if members[i].entry.key != members[j].entry.key {
				return members[i].entry.key < members[j].entry.key
			}
			return members[i].rank < members[j].rank
		})
		ids := make([]int, len(members))
		for i, m := range members {
			ids[i] = m.entry.workerID
		}
		nc := NewCommunicator(NewGroup(ids))
		nc.SetErrHandler(c.ErrHandler())
		nc.world = c.world
		comms[color] = nc
	}
	return comms
}

// Create builds a new communicator over group, a subset of c's own
// members, per spec §4.3's create(from, group): (1) an entry barrier on
// c; (2) the members of group rendezvous through c's scratch to agree
// on a single new communicator — any one of them may perform the actual
// allocation, since the result is the same shared object regardless of
// which member constructs it; (3) the other members of group read it
// back; (4) an exit barrier. Every member of c must call Create; callers
// not in group get nil back.
func Create(c *Communicator, self *Worker, group *Group) *Communicator {
	n := c.group.Size()
	_, inGroup := group.Rank(self.ID)

	r := c.scratch.joinRound(n, "create", func() interface{} { return &createPayload{} })
	p := r.payload.(*createPayload)

	if inGroup {
		c.scratch.mu.Lock()
		if p.comm == nil {
			nc := NewCommunicator(group.Retain())
			nc.SetErrHandler(c.ErrHandler())
			nc.world = c.world
			p.comm = nc
		}
		c.scratch.mu.Unlock()
	}

	c.scratch.leaveRound(r, n)

	if !inGroup {
		return nil
	}
	return p.comm
}

type createPayload struct {
	comm *Communicator
}

type splitEntry struct {
	workerID int
	color    int
	key      int
}

type splitPayload struct {
	entries map[int]splitEntry
	count   int
}

// Scratch is a communicator's collective working area: a generation
// stamp advanced on entry to every collective (readable lock-free for
// progress checks), plus a single active "round" record, with its own
// entry and exit counters, used by every collective algorithm to publish and
// consume per-rank payloads under one mutex, per spec §4.2's "mutated
// under the communicator's collective mutex" rule.
type Scratch struct {
	mu   sync.Mutex
	cond *sync.Cond

	generation atomic.Uint64

	arrived int
	phase   int32

	active *round
}

type round struct {
	kind    string
	n       int
	joined  int
	left    int
	payload interface{}
}

func newScratch() *Scratch {
	s := &Scratch{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Generation returns the scratch's current generation stamp.
func (s *Scratch) Generation() uint64 {
	return s.generation.Load()
}

// joinRound is the entry rendezvous shared by every collective: the first
// caller creates the round's payload, every caller increments joined, and
// the last arrival bumps the generation stamp and wakes everyone. Callers
// then read/write r.payload under s.mu before calling leaveRound.
func (s *Scratch) joinRound(n int, kind string, makePayload func() interface{}) *round {
	s.mu.Lock()
	if s.active == nil {
		s.active = &round{kind: kind, n: n, payload: makePayload()}
	}
	r := s.active
	r.joined++
	if r.joined == n {
		s.generation.Add(1)
		s.cond.Broadcast()
	} else {
		for r.joined < n {
			s.cond.Wait()
		}
	}
	s.mu.Unlock()
	return r
}

// leaveRound is the exit rendezvous: nobody returns from a collective
// until every member has finished consuming the round's payload, and the
// round is cleared so the next collective on this communicator can start
// cleanly.
func (s *Scratch) leaveRound(r *round, n int) {
	s.mu.Lock()
	r.left++
	if r.left == n {
		s.active = nil
		s.cond.Broadcast()
	} else {
		for s.active == r {
			s.cond.Wait()
		}
	}
	s.mu.Unlock()
}

// Barrier blocks until every member of comm's group has called Barrier,
// implemented as the bare entry/exit rendezvous with no payload: the
// round's entry counter holds every caller until all have arrived, and
// the exit counter keeps the next collective from starting until every
// caller has left. The Scratch arrived/phase fields are not used.
func Barrier(comm *Communicator) types.ErrorCode {
	n := comm.group.Size()
	r := comm.scratch.joinRound(n, "barrier", func() interface{} { return nil })
	comm.scratch.leaveRound(r, n)
	return types.Success
}
