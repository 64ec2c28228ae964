package stream

import "context"

// fakeConn is a test double for rawReadWriter: ReadFrame blocks on a
// channel fed by the test, WriteText is captured for assertion.
type fakeConn struct {
	frames chan frameMsg
	writes chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan frameMsg, 16),
		writes: make(chan []byte, 16),
	}
}

func (f *fakeConn) ReadFrame() (frameKind, []byte, error) {
	fm := <-f.frames
	return fm.kind, fm.data, fm.err
}

func (f *fakeConn) WriteText(payload []byte) error {
	f.writes <- payload
	return nil
}

func (f *fakeConn) WritePong(payload []byte) error { return nil }

func (f *fakeConn) Close() error { return nil }

// fakeProvider is a test double for Provider.
type fakeProvider struct {
	conn        *fakeConn
	getSnapshot func(ctx context.Context, symbol string) (DepthSnapshot, error)
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Connect(ctx context.Context) (rawReadWriter, error) {
	return p.conn, nil
}

func (p *fakeProvider) GetDepthSnapshot(ctx context.Context, symbol string) (DepthSnapshot, error) {
	if p.getSnapshot == nil {
		return DepthSnapshot{}, nil
	}
	return p.getSnapshot(ctx, symbol)
}
