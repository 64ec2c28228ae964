// Package ipc implements the Endpoint Sender/Receiver pair: a fixed
// {id, len} header plus a deterministic binary payload codec, carried over
// a bounded pub/sub transport between the connector and strategy
// processes.
//
// The spec names a zero-copy shared-memory pub/sub layer; no such binding
// exists anywhere in the retrieval pack, so this package is grounded
// instead on the teacher's own NATS event-bus adapter, using raw core NATS
// (no JetStream, since the spec disclaims ordered/durable delivery) as the
// bounded-buffer substitute transport.
package ipc

import (
	"fmt"
	"time"

	nats "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/mdcore/internal/xerrors"
)

// pollInterval is the timeout passed to NextMsg to approximate a
// non-blocking poll: short enough that Receive never meaningfully
// suspends the caller, long enough to dodge scheduler noise around a
// literal zero timeout.
const pollInterval = 50 * time.Microsecond

// Capacity parameters from §4.B, carried as PendingLimits on the
// subscription rather than as real shared-memory slot counts.
const (
	SubscriberMaxBufferSize = 100_000
	MaxPublishers           = 500
	MaxSubscribers          = 500
	MaxPayloadSize          = MaxPayloadBytes
)

// ServiceNames returns the pair of topic names for asset service name,
// per §3: "{name}/FromBot" (strategy → connector) and "{name}/ToBot"
// (connector → strategy).
func ServiceNames(name string) (fromBot, toBot string) {
	return name + "/FromBot", name + "/ToBot"
}

// Sender publishes messages onto a named subject. One Sender per
// (asset, direction), matching the connector's one-publisher-per-service
// policy in §5.
type Sender struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// NewSender builds a Sender against subject on conn.
func NewSender(conn *nats.Conn, subject string, logger *zap.Logger) *Sender {
	return &Sender{conn: conn, subject: subject, logger: logger}
}

// Send encodes msg, frames it with the given routing id, and publishes it.
// Failure modes are surfaced as typed errors: encode failure or send
// failure (the publish call itself; core NATS has no explicit slot-loan
// step).
func (s *Sender) Send(id uint64, msg Message) error {
	payload, err := Encode(msg)
	if err != nil {
		return xerrors.Wrap(err, xerrors.IpcEncodeFailed, "failed to encode ipc message")
	}
	hdr := Header{Id: id, Len: uint32(len(payload))}
	frame := frameBytes(hdr, payload)
	if err := s.conn.Publish(s.subject, frame); err != nil {
		s.logger.Error("ipc send failed",
			zap.String("subject", s.subject), zap.Uint64("id", id), zap.Error(err))
		return xerrors.Wrap(err, xerrors.IpcSendFailed, "failed to publish ipc message")
	}
	return nil
}

// Receiver subscribes to a named subject and non-blockingly polls for the
// next message.
type Receiver struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
	logger  *zap.Logger
}

// NewReceiver subscribes to subject on conn with the spec's buffer sizing
// applied as the subscription's pending message limit.
func NewReceiver(conn *nats.Conn, subject string, logger *zap.Logger) (*Receiver, error) {
	sub, err := conn.SubscribeSync(subject)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.IpcBuildFailed, "failed to subscribe ipc receiver")
	}
	if err := sub.SetPendingLimits(SubscriberMaxBufferSize, SubscriberMaxBufferSize*MaxPayloadSize); err != nil {
		logger.Warn("failed to set ipc pending limits", zap.String("subject", subject), zap.Error(err))
	}
	return &Receiver{conn: conn, subject: subject, sub: sub, logger: logger}, nil
}

// Receive is a non-blocking poll returning (id, decoded, true) if a message
// was present, or (_, _, false) if not. Decode failures are surfaced as a
// typed error rather than silently skipped.
func (r *Receiver) Receive() (uint64, Message, bool, error) {
	msg, err := r.sub.NextMsg(pollInterval)
	if err == nats.ErrTimeout {
		return 0, Message{}, false, nil
	}
	if err != nil {
		return 0, Message{}, false, xerrors.Wrap(err, xerrors.IpcReceiveFailed, "failed to receive ipc message")
	}
	hdr, payload, err := unframeBytes(msg.Data)
	if err != nil {
		return 0, Message{}, false, err
	}
	if int(hdr.Len) > len(payload) {
		return 0, Message{}, false, xerrors.New(xerrors.IpcDecodeFailed,
			fmt.Sprintf("header length %d exceeds payload of %d bytes", hdr.Len, len(payload)))
	}
	decoded, err := Decode(payload[:hdr.Len])
	if err != nil {
		return 0, Message{}, false, xerrors.Wrap(err, xerrors.IpcDecodeFailed, "failed to decode ipc message")
	}
	return hdr.Id, decoded, true, nil
}

// Close drains and unsubscribes the receiver's subscription.
func (r *Receiver) Close() error {
	return r.sub.Drain()
}

func frameBytes(hdr Header, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	putHeader(buf, hdr)
	copy(buf[HeaderSize:], payload)
	return buf
}

func unframeBytes(frame []byte) (Header, []byte, error) {
	if len(frame) < HeaderSize {
		return Header{}, nil, xerrors.New(xerrors.IpcDecodeFailed, fmt.Sprintf("frame too short: %d bytes", len(frame)))
	}
	hdr := getHeader(frame)
	return hdr, frame[HeaderSize:], nil
}
