package core

import (
	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

// matches reports whether posted receive r accepts send s, per spec
// §4.1's matching rule: same communicator (including isolation context,
// so collective traffic never cross-matches user messages, and distinct
// communicators over the same pair of workers never cross-match), and
// source/tag equal or wildcarded.
func matches(r, s *Envelope) bool {
	if r.Comm == nil || s.Comm == nil || r.Comm.isolation != s.Comm.isolation {
		return false
	}
	if r.Peer != types.AnySource && r.Peer != s.owner.ID {
		return false
	}
	if r.Tag != types.AnyTag && r.Tag != s.Tag {
		return false
	}
	return true
}

// PostSend posts a send envelope into dest's mailbox. If an already
// posted receive matches, the transfer completes synchronously on the
// caller's goroutine (this is the "sender arrives second" case: the
// receiver is parked waiting on its own envelope condition variable and
// has to be woken, so whoever discovers the pairing performs the copy
// into the receiver's buffer). Otherwise the send is appended to the
// unexpected-sends queue, FIFO, for a future receive to find.
func PostSend(dest *Mailbox, env *Envelope) {
	dest.mu.Lock()
	var matchedRecv *Envelope
	for i, r := range dest.postedReceives {
		if matches(r, env) {
			matchedRecv = r
			dest.postedReceives = append(dest.postedReceives[:i:i], dest.postedReceives[i+1:]...)
			break
		}
	}
	if matchedRecv == nil {
		env.setState(statePosted)
		dest.unexpectedSends = append(dest.unexpectedSends, env)
	}
	dest.reportDepth()
	dest.mu.Unlock()

	if matchedRecv != nil {
		completeTransfer(matchedRecv, env)
		matchedRecv.signalDone()
		env.signalDone()
	}
}

// PostRecv posts a receive envelope into self's mailbox, matching it
// against the unexpected-sends queue first (this is the ordinary "receiver
// performs the copy" case, since the posting goroutine here *is* the
// receiver and no one is parked).
func PostRecv(self *Mailbox, env *Envelope) {
	self.mu.Lock()
	var matchedSend *Envelope
	for i, s := range self.unexpectedSends {
		if matches(env, s) {
			matchedSend = s
			self.unexpectedSends = append(self.unexpectedSends[:i:i], self.unexpectedSends[i+1:]...)
			break
		}
	}
	if matchedSend == nil {
		env.setState(statePosted)
		self.postedReceives = append(self.postedReceives, env)
	}
	self.reportDepth()
	self.mu.Unlock()

	if matchedSend != nil {
		completeTransfer(env, matchedSend)
		matchedSend.signalDone()
		env.signalDone()
	}
}

// completeTransfer performs the §4.1 size policy and the copy itself,
// always into recv's buffer regardless of which goroutine is running.
func completeTransfer(recv, send *Envelope) {
	recv.setState(stateMatched)
	send.setState(stateMatched)
	recv.Matched = send
	send.Matched = recv

	recv.ResolvedSource = send.owner.ID
	if recv.Comm != nil {
		if rank, ok := recv.Comm.Rank(send.owner.ID); ok {
			recv.ResolvedSource = rank
		}
	}
	recv.ResolvedTag = send.Tag

	if overlaps(recv, send) {
		recv.Err = types.ErrXferBufOverlap
		send.Err = types.ErrXferBufOverlap
		return
	}

	n := send.BufLen
	if recv.BufLen < n {
		n = recv.BufLen
	}

	recv.setState(stateCopying)
	send.setState(stateCopying)
	if n > 0 {
		copy(recv.bytes()[:n], send.bytes()[:n])
	}
	recv.Transferred = n
	send.Transferred = n

	if send.BufLen > recv.BufLen {
		recv.Err = types.ErrXferBufsize
	}
}

// overlaps detects address-range aliasing between sendbuf and recvbuf at
// the same worker (send-to-self), per spec §4.1.
func overlaps(recv, send *Envelope) bool {
	if recv.owner != send.owner {
		return false
	}
	if recv.BufPtr == nil || send.BufPtr == nil || recv.BufLen == 0 || send.BufLen == 0 {
		return false
	}
	rStart := uintptrOf(recv.BufPtr)
	rEnd := rStart + uintptr(recv.BufLen)
	sStart := uintptrOf(send.BufPtr)
	sEnd := sStart + uintptr(send.BufLen)
	return rStart < sEnd && sStart < rEnd
}
