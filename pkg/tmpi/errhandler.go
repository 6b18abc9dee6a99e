package tmpi

import (
	"github.com/molnplus/tmpi/pkg/tmpi/core"
	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// resolveErr applies comm's error-handler policy to a non-success code
// returned by one of the top-level, error-returning operations (Send,
// Barrier, and the collectives): under RETURN it hands code
// back to the caller as an error, same as always; under FATAL, the
// default, it logs via Abort and terminates the process instead of
// returning. Status-embedded codes from Recv/Irecv/Wait/Test never pass
// through here — a locally detected mismatch there must not abort the
// process, since the spec requires the detecting peer to still
// participate in any remaining per-member barriers before returning.
func resolveErr(self *Self, comm *Communicator, code types.ErrorCode) error {
	if code.OK() {
		return nil
	}
	if comm.c.ErrHandler() == core.ErrHandlerFatal {
		self.Abort(1, code.Error())
	}
	return code
}
