// Package types holds the plain, allocation-free value types shared
// between the public tmpi facade and the internal core engine: status
// records, error codes, datatypes and reduce operators.
package types

// Sentinel values for source/tag/color wildcards, mirroring
// TMPI_ANY_SOURCE / TMPI_ANY_TAG / TMPI_UNDEFINED.
const (
	AnySource = -1
	AnyTag    = -1
	Undefined = -1
)

// Rank identifies a member's position inside a Group or Communicator.
type Rank = int
