package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := Message{
		Kind:    1,
		ExchTs:  1_700_000_000_000_000_000,
		LocalTs: 1_700_000_000_100_000_000,
		OrderId: 42,
		Px:      50000.5,
		Qty:     1.25,
		Ival:    7,
		Fval:    3.5,
	}
	payload, err := Encode(m)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(payload), MaxPayloadBytes)

	decoded, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestDecodeTrailingBytesIgnored(t *testing.T) {
	m := Message{Kind: 2, OrderId: 1}
	payload, err := Encode(m)
	require.NoError(t, err)
	padded := append(payload, make([]byte, 40)...)

	decoded, err := Decode(padded)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestDecodeShortPayloadFails(t *testing.T) {
	_, err := Decode(make([]byte, 4))
	require.Error(t, err)
}

func TestFrameUnframeRoundTrip(t *testing.T) {
	payload, err := Encode(Message{Kind: 3, OrderId: 99})
	require.NoError(t, err)
	hdr := Header{Id: 7, Len: uint32(len(payload))}
	frame := frameBytes(hdr, payload)

	gotHdr, gotPayload, err := unframeBytes(frame)
	require.NoError(t, err)
	assert.Equal(t, hdr, gotHdr)
	decoded, err := Decode(gotPayload[:gotHdr.Len])
	require.NoError(t, err)
	assert.Equal(t, int64(99), decoded.OrderId)
}
