package types

// BaseKind enumerates the element kinds the fixed datatype registry
// understands, enough to validate operator/type pairings for Reduce
// without needing real datatype derivation (out of scope, see spec
// Non-goals).
type BaseKind int

const (
	KindOpaque BaseKind = iota // raw bytes, no arithmetic/bitwise op is valid
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
)

func (k BaseKind) baseSize() int {
	switch k {
	case KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// IsInteger reports whether the kind supports bitwise reduce operators.
func (k BaseKind) IsInteger() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether the kind supports arithmetic reduce operators
// (sum, prod, min, max).
func (k BaseKind) IsNumeric() bool {
	return k.IsInteger() || k == KindFloat32 || k == KindFloat64
}

// Datatype models "a fixed element size and alignment" plus the single
// derivation the spec allows: contiguous repetition of a base type. It is
// a value type, not a registry handle — tMPI_Type_contiguous/commit are
// modeled as constructors rather than mutation of an externed singleton.
type Datatype struct {
	base      BaseKind
	elemSize  int // size of one base element, in bytes
	count     int // repetitions (1 for a plain base type)
	committed bool
}

// Predefined base datatypes, mirroring TMPI_INT, TMPI_DOUBLE, etc.
var (
	Int8    = Datatype{base: KindInt8, elemSize: 1, count: 1, committed: true}
	Int16   = Datatype{base: KindInt16, elemSize: 2, count: 1, committed: true}
	Int32   = Datatype{base: KindInt32, elemSize: 4, count: 1, committed: true}
	Int64   = Datatype{base: KindInt64, elemSize: 8, count: 1, committed: true}
	Uint8   = Datatype{base: KindUint8, elemSize: 1, count: 1, committed: true}
	Uint16  = Datatype{base: KindUint16, elemSize: 2, count: 1, committed: true}
	Uint32  = Datatype{base: KindUint32, elemSize: 4, count: 1, committed: true}
	Uint64  = Datatype{base: KindUint64, elemSize: 8, count: 1, committed: true}
	Float32 = Datatype{base: KindFloat32, elemSize: 4, count: 1, committed: true}
	Float64 = Datatype{base: KindFloat64, elemSize: 8, count: 1, committed: true}
	Byte    = Datatype{base: KindOpaque, elemSize: 1, count: 1, committed: true}
)

// Contiguous creates a new datatype that is a vector of `count` copies of
// oldtype, mirroring tMPI_Type_contiguous. The result still needs Commit
// before use in a transfer.
func Contiguous(count int, oldtype Datatype) (Datatype, ErrorCode) {
	if count <= 0 || oldtype.elemSize <= 0 {
		return Datatype{}, ErrBuf
	}
	return Datatype{
		base:     oldtype.base,
		elemSize: oldtype.elemSize,
		count:    count * oldtype.count,
	}, Success
}

// Commit makes a datatype ready for use, mirroring tMPI_Type_commit.
func Commit(dt *Datatype) ErrorCode {
	if dt.elemSize <= 0 || dt.count <= 0 {
		return ErrBuf
	}
	dt.committed = true
	return Success
}

// Size returns the total byte length of the datatype (elemSize * count).
func (d Datatype) Size() int {
	return d.elemSize * d.count
}

// Base returns the underlying element kind, used by the reduce operator
// table to reject invalid operator/type pairings.
func (d Datatype) Base() BaseKind {
	return d.base
}

// Committed reports whether Commit has been called on this datatype.
func (d Datatype) Committed() bool {
	return d.committed
}

// ElemSize returns the byte size of one base element (ignoring any
// contiguous repetition), used by the reduce operator table to combine
// buffers element by element.
func (d Datatype) ElemSize() int {
	return d.elemSize
}

// Repeat returns the number of base-element repetitions this datatype
// was built from (1 for a plain base type, k for Contiguous(k, base)).
func (d Datatype) Repeat() int {
	return d.count
}
