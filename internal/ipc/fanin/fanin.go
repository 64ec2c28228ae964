// Package fanin implements the Fan-in Channel: a round-robin multiplexer
// over N IPC receiver endpoints under a single recv_timeout interface,
// addressed by a strategy's logical id.
//
// Grounded on the teacher's UnifiedMessageDispatcher round-robin dispatch
// mode (dispatchRoundRobin) and its context.Done()/timeout select idiom in
// internal/messaging/unified_dispatcher.go, adapted from a one-shot
// timestamp-indexed pick into a persistent rotating cursor suited to a
// long-lived polling loop.
package fanin

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/abdoElHodaky/mdcore/internal/ipc"
	"github.com/abdoElHodaky/mdcore/internal/xerrors"
)

// receiver is the minimal surface fanin needs from ipc.Receiver, so tests
// can substitute a fake without a live transport.
type receiver interface {
	Receive() (uint64, ipc.Message, bool, error)
}

// sender is the minimal surface fanin needs from ipc.Sender.
type sender interface {
	Send(id uint64, msg ipc.Message) error
}

// pollSlice is the wait-primitive granularity on each tick, per §4.C's
// "waits in 1-nanosecond slices" so cancellation is observed promptly.
const pollSlice = time.Nanosecond

// Channel merges N IPC receivers into a single RecvTimeout interface and
// N IPC senders into a single indexed Send, for a strategy owning logical
// id.
type Channel struct {
	id        uint64
	receivers []receiver
	senders   []sender
	cursor    uint64 // round-robin index, advanced atomically
}

// New builds a fan-in channel over receivers/senders for the strategy
// identified by id. receivers and senders are positionally paired by
// asset number for the Send path.
func New(id uint64, receivers []receiver, senders []sender) *Channel {
	return &Channel{id: id, receivers: receivers, senders: senders}
}

// NewFromEndpoints is the concrete constructor wiring real ipc.Receiver
// and ipc.Sender endpoints.
func NewFromEndpoints(id uint64, receivers []*ipc.Receiver, senders []*ipc.Sender) *Channel {
	rs := make([]receiver, len(receivers))
	for i, r := range receivers {
		rs[i] = r
	}
	ss := make([]sender, len(senders))
	for i, s := range senders {
		ss[i] = s
	}
	return New(id, rs, ss)
}

// next advances and returns the round-robin cursor.
func (c *Channel) next() int {
	n := len(c.receivers)
	if n == 0 {
		return -1
	}
	i := atomic.AddUint64(&c.cursor, 1)
	return int(i % uint64(n))
}

// RecvTimeout polls all receivers round-robin until a message addressed
// to TO_ALL or this channel's id arrives, ctx is cancelled, or timeout
// elapses.
//
// Scheduling model: on each tick, select the next endpoint by round-robin
// index, poll it non-blockingly, and return any message whose dst_id is
// 0 or c.id; otherwise discard and continue. A monotonic deadline is
// established at entry.
func (c *Channel) RecvTimeout(ctx context.Context, timeout time.Duration) (ipc.Message, error) {
	if len(c.receivers) == 0 {
		return ipc.Message{}, xerrors.New(xerrors.Timeout, "no receivers configured")
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollSlice)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ipc.Message{}, xerrors.New(xerrors.Interrupted, "fan-in channel interrupted")
		case <-ticker.C:
			idx := c.next()
			dst, msg, ok, err := c.receivers[idx].Receive()
			// A receive error is local and recoverable: the poll is dropped
			// and the deadline check below still applies.
			if err == nil && ok && (dst == ipc.ToAll || dst == c.id) {
				return msg, nil
			}
			if time.Now().After(deadline) {
				return ipc.Message{}, xerrors.New(xerrors.Timeout, "recv_timeout elapsed")
			}
		}
	}
}

// Send indexes the sender list by assetNo and publishes request with
// id = TO_ALL. Out-of-range assetNo returns AssetNotFound.
func (c *Channel) Send(assetNo int, request ipc.Message) error {
	if assetNo < 0 || assetNo >= len(c.senders) {
		return xerrors.New(xerrors.AssetNotFound, "asset number out of range")
	}
	return c.senders[assetNo].Send(ipc.ToAll, request)
}
