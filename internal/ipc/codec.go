package ipc

import (
	"encoding/binary"
	"math"

	"github.com/abdoElHodaky/mdcore/internal/xerrors"
)

// MaxPayloadBytes is the max payload slice size for an IPC slot, per §4.B.
const MaxPayloadBytes = 128

// HeaderSize is the on-wire size of the fixed CustomHeader: id (u64) + len
// (u32), naturally aligned, per §6.
const HeaderSize = 8 + 4

// TO_ALL is the reserved routing id meaning broadcast to every receiver.
const ToAll uint64 = 0

// Header is the fixed-layout routing header prepended to every payload.
type Header struct {
	Id  uint64
	Len uint32
}

// putHeader writes hdr into the first HeaderSize bytes of buf.
func putHeader(buf []byte, hdr Header) {
	binary.LittleEndian.PutUint64(buf[0:8], hdr.Id)
	binary.LittleEndian.PutUint32(buf[8:12], hdr.Len)
}

// getHeader reads a Header from the first HeaderSize bytes of buf.
func getHeader(buf []byte) Header {
	return Header{
		Id:  binary.LittleEndian.Uint64(buf[0:8]),
		Len: binary.LittleEndian.Uint32(buf[8:12]),
	}
}

// Message is the logical payload carried in an IPC slot: a Feed event or a
// bot request, reduced to its wire fields.
type Message struct {
	Kind    uint8
	ExchTs  int64
	LocalTs int64
	OrderId int64
	Px      float64
	Qty     float64
	Ival    int64
	Fval    float64
}

// wireLen is the exact number of bytes Encode writes for a Message.
const wireLen = 1 + 8*7

// Encode writes m into a deterministic little-endian binary layout. The
// encoded length must not exceed MaxPayloadBytes.
func Encode(m Message) ([]byte, error) {
	if wireLen > MaxPayloadBytes {
		return nil, xerrors.New(xerrors.IpcEncodeFailed, "encoded message exceeds max payload size")
	}
	buf := make([]byte, wireLen)
	buf[0] = m.Kind
	binary.LittleEndian.PutUint64(buf[1:9], uint64(m.ExchTs))
	binary.LittleEndian.PutUint64(buf[9:17], uint64(m.LocalTs))
	binary.LittleEndian.PutUint64(buf[17:25], uint64(m.OrderId))
	binary.LittleEndian.PutUint64(buf[25:33], math.Float64bits(m.Px))
	binary.LittleEndian.PutUint64(buf[33:41], math.Float64bits(m.Qty))
	binary.LittleEndian.PutUint64(buf[41:49], uint64(m.Ival))
	binary.LittleEndian.PutUint64(buf[49:57], math.Float64bits(m.Fval))
	return buf, nil
}

// Decode reads the first wireLen bytes of payload into a Message; trailing bytes beyond
// wireLen are ignored, per §4.B's "Receive" contract.
func Decode(payload []byte) (Message, error) {
	if len(payload) < wireLen {
		return Message{}, xerrors.New(xerrors.IpcDecodeFailed, "payload shorter than expected message length")
	}
	return Message{
		Kind:    payload[0],
		ExchTs:  int64(binary.LittleEndian.Uint64(payload[1:9])),
		LocalTs: int64(binary.LittleEndian.Uint64(payload[9:17])),
		OrderId: int64(binary.LittleEndian.Uint64(payload[17:25])),
		Px:      math.Float64frombits(binary.LittleEndian.Uint64(payload[25:33])),
		Qty:     math.Float64frombits(binary.LittleEndian.Uint64(payload[33:41])),
		Ival:    int64(binary.LittleEndian.Uint64(payload[41:49])),
		Fval:    math.Float64frombits(binary.LittleEndian.Uint64(payload[49:57])),
	}, nil
}
