package tmpi

import "github.com/molnplus/tmpi/pkg/tmpi/types"

// Datatype describes a fixed element size and the single derivation this
// library supports: contiguous repetition of a base type. It is a value,
// not a registry handle.
type Datatype = types.Datatype

// Op identifies a Reduce/Allreduce combiner.
type Op = types.Op

const (
	Max  = types.Max
	Min  = types.Min
	Sum  = types.Sum
	Prod = types.Prod
	Land = types.Land
	Band = types.Band
	Lor  = types.Lor
	Bor  = types.Bor
	Lxor = types.Lxor
	Bxor = types.Bxor
)

// Predefined base datatypes.
var (
	Int8    = types.Int8
	Int16   = types.Int16
	Int32   = types.Int32
	Int64   = types.Int64
	Uint8   = types.Uint8
	Uint16  = types.Uint16
	Uint32  = types.Uint32
	Uint64  = types.Uint64
	Float32 = types.Float32
	Float64 = types.Float64
	Byte    = types.Byte
)

// Contiguous creates a new datatype that is a vector of count copies of
// oldtype. The result still needs Commit before use in a transfer.
func Contiguous(count int, oldtype Datatype) (Datatype, error) {
	dt, code := types.Contiguous(count, oldtype)
	return dt, types.AsError(code)
}

// Commit makes a datatype ready for use in a transfer.
func Commit(dt *Datatype) error {
	return types.AsError(types.Commit(dt))
}

// AnySource/AnyTag are wildcards accepted by Recv/Irecv.
const (
	AnySource = types.AnySource
	AnyTag    = types.AnyTag
)
