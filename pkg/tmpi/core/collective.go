package core

import (
	"sync"
	"unsafe"

	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// Bcast sends the contents of buf (length bytes) from root to every other
// member of comm, in place: root's buf is the source, everyone else's buf
// is the destination, per spec §4.4 — there is no separate IN_PLACE
// sentinel because the single-buffer signature already is the in-place
// form.
func Bcast(comm *Communicator, self *Worker, buf unsafe.Pointer, length, root int) types.ErrorCode {
	n := comm.group.Size()
	rank, ok := comm.group.Rank(self.ID)
	if !ok {
		return types.ErrComm
	}

	type bcastPayload struct {
		ready bool
		ptr   unsafe.Pointer
		len   int
	}
	r := comm.scratch.joinRound(n, "bcast", func() interface{} { return &bcastPayload{} })
	p := r.payload.(*bcastPayload)

	if rank == root {
		comm.scratch.mu.Lock()
		p.ptr = buf
		p.len = length
		p.ready = true
		comm.scratch.cond.Broadcast()
		comm.scratch.mu.Unlock()
	}

	comm.scratch.mu.Lock()
	for !p.ready {
		comm.scratch.cond.Wait()
	}
	src, srcLen := p.ptr, p.len
	comm.scratch.mu.Unlock()

	if rank != root {
		m := length
		if srcLen < m {
			m = srcLen
		}
		if m > 0 {
			copy(unsafe.Slice((*byte)(buf), m), unsafe.Slice((*byte)(src), m))
		}
	}

	comm.scratch.leaveRound(r, n)
	return types.Success
}

// ScatterV splits sendBase (valid only at root) into per-rank chunks
// described by counts/displs (in elements of elemSize bytes) and copies
// rank r's chunk into recvBuf. At root, recvBuf may be nil to request the
// TMPI_IN_PLACE form (root's own chunk is assumed already positioned and
// is not touched).
func ScatterV(comm *Communicator, self *Worker, sendBase unsafe.Pointer, counts, displs []int, elemSize int, recvBuf unsafe.Pointer, recvLen int, root int) types.ErrorCode {
	n := comm.group.Size()
	rank, ok := comm.group.Rank(self.ID)
	if !ok {
		return types.ErrComm
	}

	type scatterPayload struct {
		ready bool
		err   types.ErrorCode
		srcs  map[int]unsafe.Pointer
		lens  map[int]int
	}
	r := comm.scratch.joinRound(n, "scatter", func() interface{} {
		return &scatterPayload{srcs: make(map[int]unsafe.Pointer, n), lens: make(map[int]int, n)}
	})
	p := r.payload.(*scatterPayload)

	if rank == root {
		comm.scratch.mu.Lock()
		if len(counts) != n || len(displs) != n {
			p.err = types.ErrMultiMismatch
		} else {
			for i := 0; i < n; i++ {
				off := displs[i] * elemSize
				p.srcs[i] = unsafe.Pointer(uintptr(sendBase) + uintptr(off))
				p.lens[i] = counts[i] * elemSize
			}
		}
		p.ready = true
		comm.scratch.cond.Broadcast()
		comm.scratch.mu.Unlock()
	}

	comm.scratch.mu.Lock()
	for !p.ready {
		comm.scratch.cond.Wait()
	}
	localErr, src, sl := p.err, p.srcs[rank], p.lens[rank]
	comm.scratch.mu.Unlock()

	if localErr == types.Success && recvBuf != nil {
		m := sl
		if recvLen < m {
			m = recvLen
			localErr = types.ErrXferBufsize
		}
		if m > 0 {
			copy(unsafe.Slice((*byte)(recvBuf), m), unsafe.Slice((*byte)(src), m))
		}
	}

	comm.scratch.leaveRound(r, n)
	return localErr
}

// GatherV is the inverse of ScatterV: every rank's sendbuf is copied into
// root's recvBase at the offset/count described by displs/counts. At
// root, sendBuf may be nil to request TMPI_IN_PLACE (root's own slot is
// assumed already populated).
func GatherV(comm *Communicator, self *Worker, sendBuf unsafe.Pointer, sendLen int, recvBase unsafe.Pointer, counts, displs []int, elemSize int, root int) types.ErrorCode {
	n := comm.group.Size()
	rank, ok := comm.group.Rank(self.ID)
	if !ok {
		return types.ErrComm
	}

	type gatherPayload struct {
		ready bool
		err   types.ErrorCode
		dests map[int]unsafe.Pointer
		lens  map[int]int
	}
	r := comm.scratch.joinRound(n, "gather", func() interface{} {
		return &gatherPayload{dests: make(map[int]unsafe.Pointer, n), lens: make(map[int]int, n)}
	})
	p := r.payload.(*gatherPayload)

	if rank == root {
		comm.scratch.mu.Lock()
		if len(counts) != n || len(displs) != n {
			p.err = types.ErrMultiMismatch
		} else {
			for i := 0; i < n; i++ {
				off := displs[i] * elemSize
				p.dests[i] = unsafe.Pointer(uintptr(recvBase) + uintptr(off))
				p.lens[i] = counts[i] * elemSize
			}
		}
		p.ready = true
		comm.scratch.cond.Broadcast()
		comm.scratch.mu.Unlock()
	}

	comm.scratch.mu.Lock()
	for !p.ready {
		comm.scratch.cond.Wait()
	}
	localErr, dst, dl := p.err, p.dests[rank], p.lens[rank]
	comm.scratch.mu.Unlock()

	if localErr == types.Success && sendBuf != nil {
		m := sendLen
		if dl < m {
			m = dl
			localErr = types.ErrXferBufsize
		}
		if m > 0 {
			copy(unsafe.Slice((*byte)(dst), m), unsafe.Slice((*byte)(sendBuf), m))
		}
	}

	comm.scratch.leaveRound(r, n)
	return localErr
}

// AlltoallV exchanges data among every pair of ranks: sendBase is each
// rank's own send buffer, with per-destination byte offsets/counts in
// sendOffsets/sendCounts; recvBase/recvOffsets/recvCounts describe where
// incoming data for each source lands.
func AlltoallV(comm *Communicator, self *Worker, sendBase unsafe.Pointer, sendOffsets, sendCounts []int, recvBase unsafe.Pointer, recvOffsets, recvCounts []int) types.ErrorCode {
	n := comm.group.Size()
	rank, ok := comm.group.Rank(self.ID)
	if !ok {
		return types.ErrComm
	}

	type a2aEntry struct {
		base    unsafe.Pointer
		offsets []int
		counts  []int
	}
	type a2aPayload struct {
		entries   map[int]a2aEntry
		published int
	}
	r := comm.scratch.joinRound(n, "alltoall", func() interface{} {
		return &a2aPayload{entries: make(map[int]a2aEntry, n)}
	})
	p := r.payload.(*a2aPayload)

	comm.scratch.mu.Lock()
	p.entries[rank] = a2aEntry{base: sendBase, offsets: sendOffsets, counts: sendCounts}
	p.published++
	if p.published == n {
		comm.scratch.cond.Broadcast()
	}
	for p.published < n {
		comm.scratch.cond.Wait()
	}
	entries := p.entries
	comm.scratch.mu.Unlock()

	var localErr types.ErrorCode = types.Success
	for src := 0; src < n; src++ {
		e := entries[src]
		if rank >= len(e.offsets) || rank >= len(e.counts) {
			localErr = types.ErrMultiMismatch
			continue
		}
		cnt := e.counts[rank]
		if cnt == 0 {
			continue
		}
		off := e.offsets[rank]
		dstOff := recvOffsets[src]
		if cnt > recvCounts[src] {
			cnt = recvCounts[src]
			localErr = types.ErrXferBufsize
		}
		dst := unsafe.Pointer(uintptr(recvBase) + uintptr(dstOff))
		srcPtr := unsafe.Pointer(uintptr(e.base) + uintptr(off))
		copy(unsafe.Slice((*byte)(dst), cnt), unsafe.Slice((*byte)(srcPtr), cnt))
	}

	comm.scratch.leaveRound(r, n)
	return localErr
}

// reducePayload is the per-round scratch for reduceTree: a map keyed by
// tree level, each holding the per-rank buffer pointer published at that
// level. Keying by level rather than resetting a single slot between
// levels means no rank ever has to wait for a slot to be cleared, so two
// ranks racing at different levels never interfere.
type reducePayload struct {
	levels map[int]map[int]unsafe.Pointer
}

func (rp *reducePayload) publish(scratchCond *sync.Cond, level, rank int, ptr unsafe.Pointer) {
	if rp.levels[level] == nil {
		rp.levels[level] = make(map[int]unsafe.Pointer)
	}
	rp.levels[level][rank] = ptr
	scratchCond.Broadcast()
}

// reduceTree combines nBase base elements of kind base across every
// member of comm using op, leaving the final result in local (every
// rank's own working buffer — callers seed it with their own
// contribution before calling). It returns the rank that ends up holding
// the final result (always 0, or -1 for ranks folded away early). The
// algorithm folds non-power-of-two extras into the low ranks first, then
// does log2 recursive-halving among the remaining power-of-two set — the
// standard approach for a commutative reduce (every operator in the
// table is commutative), per spec §4.4's "binary reduction tree of
// height ceil(log2 N)".
func reduceTree(comm *Communicator, rp *reducePayload, rank, n int, local unsafe.Pointer, nBase int, base types.BaseKind, op types.Op) (holder int) {
	pof2 := 1
	for pof2*2 <= n {
		pof2 *= 2
	}
	rem := n - pof2

	exchange := func(level, partner int, iAmReceiver bool) {
		comm.scratch.mu.Lock()
		rp.publish(comm.scratch.cond, level, rank, local)
		for rp.levels[level][partner] == nil {
			comm.scratch.cond.Wait()
		}
		partnerPtr := rp.levels[level][partner]
		comm.scratch.mu.Unlock()

		if iAmReceiver {
			combine(local, partnerPtr, nBase, base, op)
		}
	}

	// Fold step: ranks [pof2, n) send to rank-pof2; ranks [0, rem) receive.
	if rank >= pof2 {
		exchange(-1, rank-pof2, false)
		return -1
	}
	if rank < rem {
		exchange(-1, rank+pof2, true)
	}

	// Recursive halving among [0, pof2): partner = rank ^ half, low rank
	// keeps the combined result, high rank drops out.
	level := 1
	for half := pof2 / 2; half >= 1; half /= 2 {
		partner := rank ^ half
		iAmReceiver := rank < partner
		exchange(level, partner, iAmReceiver)
		level++
		if !iAmReceiver {
			return -1
		}
	}
	return 0
}

// combine applies op element-wise: dst[i] = dst[i] OP src[i], over count
// elements of the given base kind.
func combine(dst, src unsafe.Pointer, count int, base types.BaseKind, op types.Op) {
	switch base {
	case types.KindInt8:
		combineIntegerT[int8](dst, src, count, op)
	case types.KindInt16:
		combineIntegerT[int16](dst, src, count, op)
	case types.KindInt32:
		combineIntegerT[int32](dst, src, count, op)
	case types.KindInt64:
		combineIntegerT[int64](dst, src, count, op)
	case types.KindUint8:
		combineIntegerT[uint8](dst, src, count, op)
	case types.KindUint16:
		combineIntegerT[uint16](dst, src, count, op)
	case types.KindUint32:
		combineIntegerT[uint32](dst, src, count, op)
	case types.KindUint64:
		combineIntegerT[uint64](dst, src, count, op)
	case types.KindFloat32:
		combineFloatT[float32](dst, src, count, op)
	case types.KindFloat64:
		combineFloatT[float64](dst, src, count, op)
	}
}

// Integer is the constraint for operator table entries that support the
// bitwise/logical reduce operators in addition to the arithmetic ones.
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Float is the constraint for floating-point operator table entries,
// which support only the arithmetic reduce operators.
type Float interface {
	~float32 | ~float64
}

func combineIntegerT[T Integer](dst, src unsafe.Pointer, n int, op types.Op) {
	d := unsafe.Slice((*T)(dst), n)
	s := unsafe.Slice((*T)(src), n)
	for i := range d {
		switch op {
		case types.Max:
			if s[i] > d[i] {
				d[i] = s[i]
			}
		case types.Min:
			if s[i] < d[i] {
				d[i] = s[i]
			}
		case types.Sum:
			d[i] = d[i] + s[i]
		case types.Prod:
			d[i] = d[i] * s[i]
		case types.Land:
			d[i] = boolT[T](d[i] != 0 && s[i] != 0)
		case types.Band:
			d[i] = d[i] & s[i]
		case types.Lor:
			d[i] = boolT[T](d[i] != 0 || s[i] != 0)
		case types.Bor:
			d[i] = d[i] | s[i]
		case types.Lxor:
			d[i] = boolT[T]((d[i] != 0) != (s[i] != 0))
		case types.Bxor:
			d[i] = d[i] ^ s[i]
		}
	}
}

func boolT[T Integer](b bool) T {
	if b {
		return 1
	}
	return 0
}

func combineFloatT[T Float](dst, src unsafe.Pointer, n int, op types.Op) {
	d := unsafe.Slice((*T)(dst), n)
	s := unsafe.Slice((*T)(src), n)
	for i := range d {
		switch op {
		case types.Max:
			if s[i] > d[i] {
				d[i] = s[i]
			}
		case types.Min:
			if s[i] < d[i] {
				d[i] = s[i]
			}
		case types.Sum:
			d[i] += s[i]
		case types.Prod:
			d[i] *= s[i]
		}
	}
}

// reduce is the shared engine behind Reduce and Allreduce: it runs the
// binary tree, always leaving the final combined result at rank 0, then
// (for Reduce) hops it on to root if root != 0. sendBuf may be nil to
// request the TMPI_IN_PLACE form, where recvBuf is both operand and
// result — the contract the recovered ReduceFast entry point uses so the
// caller needs no separate receive buffer; see ReduceInPlace. Either way
// reduce works on its own internal copy of the operand.
func reduce(comm *Communicator, self *Worker, sendBuf, recvBuf unsafe.Pointer, count int, dt types.Datatype, op types.Op, root int) (holderHasResult func() unsafe.Pointer, byteLen int, code types.ErrorCode) {
	if !op.ValidFor(dt.Base()) {
		return nil, 0, types.ErrOpFn
	}
	n := comm.group.Size()
	rank, ok := comm.group.Rank(self.ID)
	if !ok {
		return nil, 0, types.ErrComm
	}

	nBase := count * dt.Repeat()
	byteLen = nBase * dt.ElemSize()

	work := make([]byte, byteLen+1)
	if sendBuf != nil {
		copy(work, unsafe.Slice((*byte)(sendBuf), byteLen))
	} else {
		copy(work, unsafe.Slice((*byte)(recvBuf), byteLen))
	}
	local := unsafe.Pointer(&work[0])

	r := comm.scratch.joinRound(n, "reduce", func() interface{} {
		return &reducePayload{levels: make(map[int]map[int]unsafe.Pointer)}
	})
	rp := r.payload.(*reducePayload)

	holder := reduceTree(comm, rp, rank, n, local, nBase, dt.Base(), op)

	if root != 0 {
		const hopLevel = 1 << 20
		comm.scratch.mu.Lock()
		if holder == 0 {
			rp.publish(comm.scratch.cond, hopLevel, 0, local)
		}
		if rank == root {
			for rp.levels[hopLevel][0] == nil {
				comm.scratch.cond.Wait()
			}
			local = rp.levels[hopLevel][0]
			holder = root
		}
		comm.scratch.mu.Unlock()
	}

	comm.scratch.leaveRound(r, n)

	if holder != root {
		return nil, byteLen, types.Success
	}
	return func() unsafe.Pointer { return local }, byteLen, types.Success
}

// Reduce combines count elements of dt's base kind from sendBuf across
// every member of comm with op, leaving the result in recvBuf at root
// only.
func Reduce(comm *Communicator, self *Worker, sendBuf, recvBuf unsafe.Pointer, count int, dt types.Datatype, op types.Op, root int) types.ErrorCode {
	result, byteLen, code := reduce(comm, self, sendBuf, recvBuf, count, dt, op, root)
	if code != types.Success {
		return code
	}
	if result != nil {
		copy(unsafe.Slice((*byte)(recvBuf), byteLen), unsafe.Slice((*byte)(result()), byteLen))
	}
	return types.Success
}

// ReduceInPlace is the TMPI_IN_PLACE / recovered ReduceFast form: buf is
// both the operand and, at root, the result, avoiding the caller having
// to allocate a separate receive buffer.
func ReduceInPlace(comm *Communicator, self *Worker, buf unsafe.Pointer, count int, dt types.Datatype, op types.Op, root int) types.ErrorCode {
	result, byteLen, code := reduce(comm, self, nil, buf, count, dt, op, root)
	if code != types.Success {
		return code
	}
	if result != nil {
		copy(unsafe.Slice((*byte)(buf), byteLen), unsafe.Slice((*byte)(result()), byteLen))
	}
	return types.Success
}

// Allreduce combines count elements from sendBuf across every member of
// comm with op and leaves the result in recvBuf at every member — the
// reduce tree followed by a broadcast of the rank-0 result, sharing one
// generation stamp per spec §4.4.
func Allreduce(comm *Communicator, self *Worker, sendBuf, recvBuf unsafe.Pointer, count int, dt types.Datatype, op types.Op) types.ErrorCode {
	if !op.ValidFor(dt.Base()) {
		return types.ErrOpFn
	}
	n := comm.group.Size()
	rank, ok := comm.group.Rank(self.ID)
	if !ok {
		return types.ErrComm
	}

	nBase := count * dt.Repeat()
	byteLen := nBase * dt.ElemSize()

	work := make([]byte, byteLen+1)
	if sendBuf != nil {
		copy(work, unsafe.Slice((*byte)(sendBuf), byteLen))
	} else {
		copy(work, unsafe.Slice((*byte)(recvBuf), byteLen))
	}
	local := unsafe.Pointer(&work[0])

	r := comm.scratch.joinRound(n, "allreduce", func() interface{} {
		return &reducePayload{levels: make(map[int]map[int]unsafe.Pointer)}
	})
	rp := r.payload.(*reducePayload)

	holder := reduceTree(comm, rp, rank, n, local, nBase, dt.Base(), op)

	const bcastLevel = 1 << 20
	comm.scratch.mu.Lock()
	if holder == 0 {
		rp.publish(comm.scratch.cond, bcastLevel, 0, local)
	}
	for rp.levels[bcastLevel][0] == nil {
		comm.scratch.cond.Wait()
	}
	final := rp.levels[bcastLevel][0]
	comm.scratch.mu.Unlock()

	if rank != 0 {
		copy(unsafe.Slice((*byte)(recvBuf), byteLen), unsafe.Slice((*byte)(final), byteLen))
	} else {
		copy(unsafe.Slice((*byte)(recvBuf), byteLen), work)
	}

	comm.scratch.leaveRound(r, n)
	return types.Success
}
