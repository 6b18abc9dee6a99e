package tmpi

import (
	"github.com/molnplus/tmpi/pkg/tmpi/core"
	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// Bcast sends buf's contents from root to every other member of comm, in
// place: at root buf is the source, everywhere else it is the
// destination.
func Bcast[T any](self *Self, buf []T, root int, comm *Communicator) error {
	ptr, n := sliceBytes(buf)
	code := core.Bcast(comm.c, self.inner.Worker(), ptr, n, root)
	return resolveErr(self, comm, code)
}

// elemCounts converts a per-rank element-count/displacement pair into the
// byte-unit form core.AlltoallV operates on. (core.ScatterV and
// core.GatherV take element units plus the element size instead.)
func elemCounts[T any](counts, displs []int) (byteCounts, byteDispls []int, elemSize int) {
	var zero T
	elemSize = sliceElemSize(zero)
	byteCounts = make([]int, len(counts))
	byteDispls = make([]int, len(displs))
	for i := range counts {
		byteCounts[i] = counts[i] * elemSize
	}
	for i := range displs {
		byteDispls[i] = displs[i] * elemSize
	}
	return
}

func sliceElemSize[T any](zero T) int {
	s := []T{zero}
	_, n := sliceBytes(s)
	return n
}

// Scatterv splits sendBuf (valid only at root) into chunks described by
// counts/displs (in elements) and copies rank r's chunk into recvBuf. At
// root, recvBuf may be nil to request the in-place form (root's own
// chunk is assumed already positioned).
func Scatterv[T any](self *Self, sendBuf []T, counts, displs []int, recvBuf []T, root int, comm *Communicator) error {
	sendPtr, _ := sliceBytes(sendBuf)
	recvPtr, recvLen := sliceBytes(recvBuf)
	var zero T
	code := core.ScatterV(comm.c, self.inner.Worker(), sendPtr, counts, displs, sliceElemSize(zero), recvPtr, recvLen, root)
	return resolveErr(self, comm, code)
}

// Scatter is Scatterv with uniform chunk sizes of len(recvBuf) elements.
func Scatter[T any](self *Self, sendBuf []T, recvBuf []T, root int, comm *Communicator) error {
	n := comm.Size()
	chunk := len(recvBuf)
	counts := make([]int, n)
	displs := make([]int, n)
	for i := range counts {
		counts[i] = chunk
		displs[i] = i * chunk
	}
	return Scatterv(self, sendBuf, counts, displs, recvBuf, root, comm)
}

// Gatherv is the inverse of Scatterv: every rank's sendBuf is copied into
// root's recvBuf at the offset/count described by displs/counts. At root,
// sendBuf may be nil to request the in-place form.
func Gatherv[T any](self *Self, sendBuf []T, recvBuf []T, counts, displs []int, root int, comm *Communicator) error {
	sendPtr, sendLen := sliceBytes(sendBuf)
	recvPtr, _ := sliceBytes(recvBuf)
	var zero T
	code := core.GatherV(comm.c, self.inner.Worker(), sendPtr, sendLen, recvPtr, counts, displs, sliceElemSize(zero), root)
	return resolveErr(self, comm, code)
}

// Gather is Gatherv with uniform chunk sizes of len(sendBuf) elements.
func Gather[T any](self *Self, sendBuf []T, recvBuf []T, root int, comm *Communicator) error {
	n := comm.Size()
	chunk := len(sendBuf)
	counts := make([]int, n)
	displs := make([]int, n)
	for i := range counts {
		counts[i] = chunk
		displs[i] = i * chunk
	}
	return Gatherv(self, sendBuf, recvBuf, counts, displs, root, comm)
}

// Alltoallv exchanges data among every pair of ranks: sendBuf is this
// rank's own send buffer, laid out per destination by sendCounts/
// sendDispls (in elements); recvBuf/recvCounts/recvDispls describe where
// incoming data from each source lands.
func Alltoallv[T any](self *Self, sendBuf []T, sendCounts, sendDispls []int, recvBuf []T, recvCounts, recvDispls []int, comm *Communicator) error {
	sendPtr, _ := sliceBytes(sendBuf)
	recvPtr, _ := sliceBytes(recvBuf)
	bSendCounts, bSendDispls, _ := elemCounts[T](sendCounts, sendDispls)
	bRecvCounts, bRecvDispls, _ := elemCounts[T](recvCounts, recvDispls)
	code := core.AlltoallV(comm.c, self.inner.Worker(), sendPtr, bSendDispls, bSendCounts, recvPtr, bRecvDispls, bRecvCounts)
	return resolveErr(self, comm, code)
}

// Alltoall is Alltoallv with uniform chunk sizes of len(sendBuf)/n
// elements.
func Alltoall[T any](self *Self, sendBuf []T, recvBuf []T, comm *Communicator) error {
	n := comm.Size()
	chunk := len(sendBuf) / n
	counts := make([]int, n)
	displs := make([]int, n)
	for i := range counts {
		counts[i] = chunk
		displs[i] = i * chunk
	}
	return Alltoallv(self, sendBuf, counts, displs, recvBuf, counts, displs, comm)
}

// Reduce combines sendBuf element-wise across every member of comm with
// op, leaving the result in recvBuf at root only.
func Reduce[T any](self *Self, sendBuf, recvBuf []T, op Op, root int, comm *Communicator) error {
	sendPtr, _ := sliceBytes(sendBuf)
	recvPtr, _ := sliceBytes(recvBuf)
	dt := dtypeFor[T]()
	code := core.Reduce(comm.c, self.inner.Worker(), sendPtr, recvPtr, len(sendBuf), dt, op, root)
	return resolveErr(self, comm, code)
}

// ReduceInPlace is the recovered ReduceFast entry point: buf is both the
// operand and, at root, the result, so the caller needs no separate
// receive buffer. It
// mirrors tMPI_Reduce_fast, dropped from most MPI-alike distillations but
// present in thread_mpi because intra-process reduce never needs to
// stage through a network buffer.
func ReduceInPlace[T any](self *Self, buf []T, op Op, root int, comm *Communicator) error {
	ptr, _ := sliceBytes(buf)
	dt := dtypeFor[T]()
	code := core.ReduceInPlace(comm.c, self.inner.Worker(), ptr, len(buf), dt, op, root)
	return resolveErr(self, comm, code)
}

// Allreduce combines sendBuf element-wise across every member of comm
// with op, leaving the result in recvBuf at every member.
func Allreduce[T any](self *Self, sendBuf, recvBuf []T, op Op, comm *Communicator) error {
	sendPtr, _ := sliceBytes(sendBuf)
	recvPtr, _ := sliceBytes(recvBuf)
	dt := dtypeFor[T]()
	code := core.Allreduce(comm.c, self.inner.Worker(), sendPtr, recvPtr, len(sendBuf), dt, op)
	return resolveErr(self, comm, code)
}

// dtypeFor derives the registered base Datatype matching T, defaulting to
// an opaque byte-sized type for anything not in the fixed registry (bit-
// wise/arithmetic reduce operators will then correctly reject it via
// Op.ValidFor).
func dtypeFor[T any]() Datatype {
	var zero T
	switch any(zero).(type) {
	case int8:
		return types.Int8
	case int16:
		return types.Int16
	case int32:
		return types.Int32
	case int64:
		return types.Int64
	case int:
		return types.Int64
	case uint8:
		return types.Uint8
	case uint16:
		return types.Uint16
	case uint32:
		return types.Uint32
	case uint64:
		return types.Uint64
	case uint:
		return types.Uint64
	case float32:
		return types.Float32
	case float64:
		return types.Float64
	default:
		return types.Byte
	}
}
