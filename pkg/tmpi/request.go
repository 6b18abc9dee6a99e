package tmpi

import (
	"github.com/molnplus/tmpi/pkg/tmpi/core"
	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// Status reports the outcome of a completed request: the resolved source
// and tag (meaningful when the request was posted with AnySource/AnyTag),
// the number of bytes actually transferred, and any error recorded during
// matching (buffer-size mismatch, overlap, ...).
type Status = types.Status

// Request represents a non-blocking send or receive posted by Isend or
// Irecv. Wait/Test/Waitall consume it; a Request must not be waited on
// twice. A Request may also carry no envelope at all: Isend/Irecv build
// one of these, carrying only err, when the call fails a range check
// before ever posting anything, so Wait/Test still have a well-formed
// outcome to report instead of leaking the unposted attempt.
type Request struct {
	env      *core.Envelope
	err      types.ErrorCode
	consumed bool
}

// Test reports whether the request has completed, without blocking; if
// done is true, status is valid and the request has been consumed
// exactly as Wait would, releasing its envelope. If done is false,
// status is the zero value and the request is untouched — callers
// should Test or Wait it again later. A nil Request, or one already
// consumed by Wait/Test, reports done with a status carrying
// ErrRequests.
func (r *Request) Test() (status Status, done bool) {
	if r == nil || r.consumed {
		return Status{Error: types.ErrRequests}, true
	}
	if r.env == nil {
		r.consumed = true
		return Status{Error: r.err}, true
	}
	if !r.env.Done() {
		return Status{}, false
	}
	st := r.env.Status()
	r.env.Release()
	r.env = nil
	r.consumed = true
	return st, true
}

// Wait blocks until the request completes and returns its status,
// releasing the envelope back to its owning worker's pool. A nil
// Request, or one already consumed by Wait/Test, returns a status
// carrying ErrRequests instead of panicking.
func (r *Request) Wait() Status {
	if r == nil || r.consumed {
		return Status{Error: types.ErrRequests}
	}
	if r.env == nil {
		r.consumed = true
		return Status{Error: r.err}
	}
	r.env.WaitDone()
	st := r.env.Status()
	r.env.Release()
	r.env = nil
	r.consumed = true
	return st
}

// Waitall blocks until every request in reqs has completed, returning
// their statuses in the same order.
func Waitall(reqs []*Request) []Status {
	out := make([]Status, len(reqs))
	for i, r := range reqs {
		out[i] = r.Wait()
	}
	return out
}
