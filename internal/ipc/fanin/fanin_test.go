package fanin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdoElHodaky/mdcore/internal/ipc"
	"github.com/abdoElHodaky/mdcore/internal/xerrors"
)

// fakeReceiver is a queue of canned (id, msg) pairs, draining one per
// Receive call, empty thereafter.
type fakeReceiver struct {
	queue []queuedMsg
}

type queuedMsg struct {
	id  uint64
	msg ipc.Message
}

func (f *fakeReceiver) Receive() (uint64, ipc.Message, bool, error) {
	if len(f.queue) == 0 {
		return 0, ipc.Message{}, false, nil
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	return next.id, next.msg, true, nil
}

type fakeSender struct {
	sent []ipc.Message
}

func (f *fakeSender) Send(id uint64, msg ipc.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

func TestRecvTimeoutDeliversAddressedMessage(t *testing.T) {
	target := &fakeReceiver{queue: []queuedMsg{{id: 5, msg: ipc.Message{OrderId: 1}}}}
	other := &fakeReceiver{}
	c := New(5, []receiver{other, target}, nil)

	got, err := c.RecvTimeout(context.Background(), 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.OrderId)
}

func TestRecvTimeoutDeliversBroadcast(t *testing.T) {
	r := &fakeReceiver{queue: []queuedMsg{{id: ipc.ToAll, msg: ipc.Message{OrderId: 2}}}}
	c := New(9, []receiver{r}, nil)

	got, err := c.RecvTimeout(context.Background(), 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.OrderId)
}

func TestRecvTimeoutIgnoresOtherIds(t *testing.T) {
	r := &fakeReceiver{queue: []queuedMsg{{id: 3, msg: ipc.Message{OrderId: 9}}}}
	c := New(5, []receiver{r}, nil)

	_, err := c.RecvTimeout(context.Background(), 20*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, xerrors.Timeout, xerrors.Code(err))
}

func TestRecvTimeoutExpires(t *testing.T) {
	r := &fakeReceiver{}
	c := New(1, []receiver{r}, nil)

	_, err := c.RecvTimeout(context.Background(), 10*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, xerrors.Timeout, xerrors.Code(err))
}

func TestRecvTimeoutRespectsCancellation(t *testing.T) {
	r := &fakeReceiver{}
	c := New(1, []receiver{r}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.RecvTimeout(ctx, time.Second)
	require.Error(t, err)
	assert.Equal(t, xerrors.Interrupted, xerrors.Code(err))
}

func TestSendIndexesByAssetNo(t *testing.T) {
	s0 := &fakeSender{}
	s1 := &fakeSender{}
	c := New(1, nil, []sender{s0, s1})

	require.NoError(t, c.Send(1, ipc.Message{OrderId: 7}))
	assert.Len(t, s1.sent, 1)
	assert.Len(t, s0.sent, 0)
}

func TestSendAssetNotFound(t *testing.T) {
	c := New(1, nil, []sender{&fakeSender{}})
	err := c.Send(5, ipc.Message{})
	require.Error(t, err)
	assert.Equal(t, xerrors.AssetNotFound, xerrors.Code(err))
}

func TestRoundRobinNoStarvation(t *testing.T) {
	a := &fakeReceiver{queue: []queuedMsg{{id: ipc.ToAll, msg: ipc.Message{OrderId: 1}}}}
	b := &fakeReceiver{queue: []queuedMsg{{id: ipc.ToAll, msg: ipc.Message{OrderId: 2}}}}
	c := New(0, []receiver{a, b}, nil)

	first, err := c.RecvTimeout(context.Background(), 200*time.Millisecond)
	require.NoError(t, err)
	second, err := c.RecvTimeout(context.Background(), 200*time.Millisecond)
	require.NoError(t, err)

	ids := map[int64]bool{first.OrderId: true, second.OrderId: true}
	assert.True(t, ids[1])
	assert.True(t, ids[2])
}
